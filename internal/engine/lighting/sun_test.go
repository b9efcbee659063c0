package lighting

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSunDirection(t *testing.T) {
	tests := []struct {
		name          string
		azimuth, elev float32
		want          mgl32.Vec3
	}{
		{"zenith", 0, 90, mgl32.Vec3{0, 0, 1}},
		{"north horizon", 0, 0, mgl32.Vec3{0, 1, 0}},
		{"east horizon", 90, 0, mgl32.Vec3{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SunDirection(tt.azimuth, tt.elev)
			if !got.ApproxEqualThreshold(tt.want, 1e-5) {
				t.Errorf("SunDirection(%v, %v) = %v, want %v", tt.azimuth, tt.elev, got, tt.want)
			}
			if l := got.Len(); math32.Abs(l-1) > 1e-5 {
				t.Errorf("length = %v, want 1", l)
			}
		})
	}
}

func TestDaylight(t *testing.T) {
	if got := Daylight(mgl32.Vec3{0, 0, 1}); got != 1 {
		t.Errorf("noon Daylight = %v, want 1", got)
	}
	if got := Daylight(mgl32.Vec3{0, 0, -1}); got != 0 {
		t.Errorf("midnight Daylight = %v, want 0", got)
	}
	dusk := Daylight(mgl32.Vec3{1, 0, 0})
	if dusk <= 0 || dusk >= 1 {
		t.Errorf("horizon Daylight = %v, want between 0 and 1", dusk)
	}
}

func TestSunLightNeverFromBelow(t *testing.T) {
	l := SunLight(mgl32.Vec3{0.3, 0, -0.9})
	if l.Direction.Z() <= 0 {
		t.Errorf("night light direction = %v, want positive Z", l.Direction)
	}
	day := SunLight(mgl32.Vec3{0, 0, 1})
	if l.Diffuse[0] >= day.Diffuse[0] {
		t.Errorf("night diffuse %v should be dimmer than day %v", l.Diffuse, day.Diffuse)
	}
}

func TestSkyColorsDarkenAtNight(t *testing.T) {
	_, dayZenith := SkyColors(mgl32.Vec3{0, 0, 1})
	_, nightZenith := SkyColors(mgl32.Vec3{0, 0, -1})
	if nightZenith[2] >= dayZenith[2] {
		t.Errorf("night zenith %v should be darker than day %v", nightZenith, dayZenith)
	}
}
