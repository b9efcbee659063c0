package hud

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/gpu/gputest"
)

func testCamera() (view, proj mgl32.Mat4) {
	view = mgl32.LookAtV(mgl32.Vec3{0, -10, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})
	proj = mgl32.Perspective(mgl32.DegToRad(60), 640.0/480.0, 0.1, 100)
	return view, proj
}

func TestProjectCentre(t *testing.T) {
	view, proj := testCamera()
	x, y, ok := Project(mgl32.Vec3{}, view, proj, 640, 480)
	if !ok {
		t.Fatal("origin should be visible")
	}
	if x < 319 || x > 321 || y < 239 || y > 241 {
		t.Errorf("Project(origin) = (%v, %v), want screen centre", x, y)
	}

	// Above the focus point is higher on screen, so a smaller y.
	_, yUp, _ := Project(mgl32.Vec3{0, 0, 1}, view, proj, 640, 480)
	if yUp >= y {
		t.Errorf("point above origin projected to y=%v, want < %v", yUp, y)
	}
}

func TestProjectBehindCamera(t *testing.T) {
	view, proj := testCamera()
	if _, _, ok := Project(mgl32.Vec3{0, -20, 0}, view, proj, 640, 480); ok {
		t.Error("point behind the camera should not project")
	}
}

func TestRasterizeSize(t *testing.T) {
	l := NewLabels()
	short := l.Rasterize("Al")
	long := l.Rasterize("Alexander Resident")
	if long.Bounds().Dx() <= short.Bounds().Dx() {
		t.Errorf("longer text should be wider: %d vs %d", long.Bounds().Dx(), short.Bounds().Dx())
	}
	if short.Bounds().Dy() != long.Bounds().Dy() {
		t.Error("labels should share a height")
	}
}

func TestDrawCachesAndReleases(t *testing.T) {
	dev := gputest.New()
	view, proj := testCamera()
	l := NewLabels()

	tags := []Tag{
		{Text: "Ann", Anchor: mgl32.Vec3{0, 0, 1}},
		{Text: "Bo", Anchor: mgl32.Vec3{1, 0, 1}},
		{Text: "Hidden", Anchor: mgl32.Vec3{0, -20, 0}},
		{Text: "", Anchor: mgl32.Vec3{}},
	}
	if n := l.Draw(dev, tags, view, proj); n != 2 {
		t.Errorf("Draw() = %d, want 2", n)
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
	if got := dev.LiveCount(gputest.KindTexture); got != 2 {
		t.Errorf("live textures = %d, want 2", got)
	}

	// Same tags again reuse the textures.
	l.Draw(dev, tags, view, proj)
	if got := dev.LiveCount(gputest.KindTexture); got != 2 {
		t.Errorf("live textures after redraw = %d, want 2", got)
	}

	// A tag that is no longer drawn loses its texture.
	l.Draw(dev, tags[1:2], view, proj)
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
	if got := dev.LiveCount(gputest.KindTexture); got != 1 {
		t.Errorf("live textures = %d, want 1", got)
	}

	l.Release(dev)
	if got := dev.LiveCount(gputest.KindTexture); got != 0 {
		t.Errorf("live textures after Release = %d, want 0", got)
	}
}
