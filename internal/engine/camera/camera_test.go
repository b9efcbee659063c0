package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
)

func TestStepConvergesWithoutOvershoot(t *testing.T) {
	c := New()
	c.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0})
	c.Snap()
	c.LookAt(mgl32.Vec3{10, 0, 0}, mgl32.Vec3{11, 0, 0})

	for i := 0; i < 240; i++ {
		c.Step(1.0 / 60)
		if c.RenderPosition[0] > 10+1e-3 {
			t.Fatalf("overshoot at step %d: %v", i, c.RenderPosition)
		}
	}
	if c.RenderPosition != c.Position {
		t.Errorf("RenderPosition = %v, want %v", c.RenderPosition, c.Position)
	}
}

func TestModifiedOnlyWhenMoving(t *testing.T) {
	c := New()
	c.Update()
	if c.Modified {
		t.Fatal("Modified after Update")
	}
	c.Step(1.0 / 60)
	if c.Modified {
		t.Error("Step on a settled camera set Modified")
	}
	if c.Update() {
		t.Error("Update recomputed an unmodified camera")
	}
	c.HandleZoom(1)
	c.Step(1.0 / 60)
	if !c.Modified {
		t.Error("moving camera not Modified")
	}
}

func TestFrustumFollowsCamera(t *testing.T) {
	c := New()
	c.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 0, 0})
	c.Snap()
	c.Update()

	ahead := geom.Sphere{Center: mgl32.Vec3{20, 0, 0}, Radius: 1}
	behind := geom.Sphere{Center: mgl32.Vec3{-20, 0, 0}, Radius: 1}
	if !c.Frustum().IntersectsSphere(ahead) {
		t.Error("object ahead culled")
	}
	if c.Frustum().IntersectsSphere(behind) {
		t.Error("object behind visible")
	}
}

func TestZoomClamp(t *testing.T) {
	c := New()
	c.LookAt(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{})
	for i := 0; i < 100; i++ {
		c.HandleZoom(5)
	}
	if d := c.Distance(); d < c.MinDistance-1e-4 {
		t.Errorf("Distance() = %v below minimum %v", d, c.MinDistance)
	}
}

func TestDragKeepsDistance(t *testing.T) {
	c := New()
	c.LookAt(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{})
	c.HandleDrag(100, 30)
	if d := c.Distance(); d < 4.999 || d > 5.001 {
		t.Errorf("Distance() = %v after drag, want 5", d)
	}
}

func TestMovementPansBoth(t *testing.T) {
	c := New()
	c.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 0, 0})
	c.HandleMovement(1, 0, 0)
	if c.Position[0] <= 0 || c.FocalPoint[0] <= 10 {
		t.Errorf("forward movement: pos %v focal %v", c.Position, c.FocalPoint)
	}
	if c.Distance() < 9.999 || c.Distance() > 10.001 {
		t.Errorf("pan changed distance to %v", c.Distance())
	}
}
