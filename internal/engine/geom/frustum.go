package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is ax+by+cz+d >= 0 for points on the inside.
type Plane [4]float32

// Frustum holds the six clip planes in order left, right, bottom, top, near, far.
type Frustum [6]Plane

// FrustumFromMatrix extracts normalized planes from a combined projection*view matrix.
// mgl32 matrices are column-major, so row i is (m[i], m[i+4], m[i+8], m[i+12]).
func FrustumFromMatrix(clip mgl32.Mat4) Frustum {
	row := func(i int) [4]float32 {
		return [4]float32{clip[i], clip[i+4], clip[i+8], clip[i+12]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combine := func(a, b [4]float32, sign float32) Plane {
		return normalizePlane(Plane{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2], a[3] + sign*b[3]})
	}

	return Frustum{
		combine(r3, r0, 1),
		combine(r3, r0, -1),
		combine(r3, r1, 1),
		combine(r3, r1, -1),
		combine(r3, r2, 1),
		combine(r3, r2, -1),
	}
}

func normalizePlane(p Plane) Plane {
	l := math32.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
	if l == 0 {
		return p
	}
	return Plane{p[0] / l, p[1] / l, p[2] / l, p[3] / l}
}

// Distance returns the signed distance from the plane to p.
func (p Plane) Distance(v mgl32.Vec3) float32 {
	return p[0]*v[0] + p[1]*v[1] + p[2]*v[2] + p[3]
}

// IntersectsSphere reports whether the sphere is at least partially inside.
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	for i := range f {
		if f[i].Distance(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

// IntersectsAABB tests the box against each plane using its positive vertex.
func (f *Frustum) IntersectsAABB(b AABB) bool {
	for i := range f {
		p := f[i]
		px := b.Max[0]
		if p[0] < 0 {
			px = b.Min[0]
		}
		py := b.Max[1]
		if p[1] < 0 {
			py = b.Min[1]
		}
		pz := b.Max[2]
		if p[2] < 0 {
			pz = b.Min[2]
		}
		if p[0]*px+p[1]*py+p[2]*pz+p[3] < 0 {
			return false
		}
	}
	return true
}
