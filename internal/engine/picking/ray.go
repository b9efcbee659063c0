// Package picking provides ray casting helpers and the colour encoding used by
// off-screen pick passes.
package picking

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// ScreenToRay converts window coordinates (origin top-left) to a world-space ray.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, view, projection mgl32.Mat4) Ray {
	// Window y grows downward, GL window coordinates grow upward.
	winY := viewportH - screenY
	near, errNear := mgl32.UnProject(mgl32.Vec3{screenX, winY, 0}, view, projection, 0, 0, int(viewportW), int(viewportH))
	far, errFar := mgl32.UnProject(mgl32.Vec3{screenX, winY, 1}, view, projection, 0, 0, int(viewportW), int(viewportH))
	if errNear != nil || errFar != nil {
		return Ray{}
	}
	dir := far.Sub(near)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: near, Direction: dir}
}

// IntersectPlaneZ intersects a ray with a horizontal plane at the given height.
// Returns the intersection point and whether the intersection is valid.
func (r Ray) IntersectPlaneZ(planeZ float32) (mgl32.Vec3, bool) {
	if math32.Abs(r.Direction[2]) < 0.001 {
		return mgl32.Vec3{}, false // Ray parallel to plane
	}
	t := (planeZ - r.Origin[2]) / r.Direction[2]
	if t < 0 {
		return mgl32.Vec3{}, false // Intersection behind ray origin
	}
	return r.At(t), true
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box geom.AABB) (t float32, hit bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		if r.Direction[axis] == 0 {
			if r.Origin[axis] < box.Min[axis] || r.Origin[axis] > box.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (box.Min[axis] - r.Origin[axis]) / r.Direction[axis]
		t2 := (box.Max[axis] - r.Origin[axis]) / r.Direction[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// Candidate is something a ray can hit.
type Candidate struct {
	ID     uint32
	Bounds geom.AABB
}

// Nearest returns the index of the closest candidate hit by the ray, or -1.
func (r Ray) Nearest(cands []Candidate) (int, float32) {
	best, bestT := -1, float32(math32.MaxFloat32)
	for i, c := range cands {
		if t, ok := r.IntersectAABB(c.Bounds); ok && t < bestT {
			best, bestT = i, t
		}
	}
	return best, bestT
}
