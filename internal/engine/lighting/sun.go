// Package lighting derives the sun light and sky colours from the region sun direction.
package lighting

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/gpu"
)

// SunDirection converts an azimuth (degrees clockwise from north) and elevation
// (degrees above the horizon) to a unit vector pointing towards the sun. Z is up.
func SunDirection(azimuth, elevation float32) mgl32.Vec3 {
	az := mgl32.DegToRad(azimuth)
	el := mgl32.DegToRad(elevation)
	return mgl32.Vec3{
		math32.Cos(el) * math32.Sin(az),
		math32.Cos(el) * math32.Cos(az),
		math32.Sin(el),
	}
}

// Daylight returns 1 with the sun well above the horizon, fading to 0 once it is
// more than ten degrees below.
func Daylight(sun mgl32.Vec3) float32 {
	const (
		full = 0.2
		dark = -0.17
	)
	z := sun.Normalize().Z()
	switch {
	case z >= full:
		return 1
	case z <= dark:
		return 0
	}
	return (z - dark) / (full - dark)
}

// SunLight builds the directional light for the given sun direction. At night the
// light comes from the opposite direction, dimmed, standing in for the moon.
func SunLight(sun mgl32.Vec3) gpu.Light {
	sun = sun.Normalize()
	day := Daylight(sun)

	dir := sun
	if sun.Z() < 0 {
		dir = sun.Mul(-1)
	}
	ambient := lerp3([3]float32{0.12, 0.12, 0.2}, [3]float32{0.4, 0.4, 0.4}, day)
	diffuse := lerp3([3]float32{0.15, 0.15, 0.25}, [3]float32{0.85, 0.8, 0.7}, day)
	return gpu.Light{Direction: dir, Ambient: ambient, Diffuse: diffuse}
}

// SkyColors returns the horizon and zenith colours for the given sun direction.
func SkyColors(sun mgl32.Vec3) (horizon, zenith [4]float32) {
	day := Daylight(sun)
	h := lerp3([3]float32{0.05, 0.05, 0.12}, [3]float32{0.75, 0.85, 0.95}, day)
	z := lerp3([3]float32{0.0, 0.0, 0.04}, [3]float32{0.25, 0.45, 0.85}, day)

	// Warm the horizon while the sun is low.
	if dusk := 1 - math32.Abs(sun.Normalize().Z())*4; dusk > 0 {
		h = lerp3(h, [3]float32{0.95, 0.55, 0.3}, dusk*0.6)
	}
	return [4]float32{h[0], h[1], h[2], 1}, [4]float32{z[0], z[1], z[2], 1}
}

func lerp3(a, b [3]float32, t float32) [3]float32 {
	return [3]float32{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}
