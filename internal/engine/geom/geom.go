// Package geom provides bounding volumes and frustum tests for scene culling.
package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Extend call will replace.
func EmptyAABB() AABB {
	return AABB{
		Min: mgl32.Vec3{1e10, 1e10, 1e10},
		Max: mgl32.Vec3{-1e10, -1e10, -1e10},
	}
}

// NewAABB creates an AABB from two corners, handling swapped axes.
func NewAABB(a, b mgl32.Vec3) AABB {
	box := AABB{Min: a, Max: b}
	for i := 0; i < 3; i++ {
		if box.Min[i] > box.Max[i] {
			box.Min[i], box.Max[i] = box.Max[i], box.Min[i]
		}
	}
	return box
}

// Extend grows the box to contain p.
func (b *AABB) Extend(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Union returns a box containing both b and other.
func (b AABB) Union(other AABB) AABB {
	out := b
	out.Extend(other.Min)
	out.Extend(other.Max)
	return out
}

// Valid reports whether the box has been extended at least once.
func (b AABB) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Center returns the box midpoint.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extents.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius returns the radius of the sphere enclosing the box around its center.
func (b AABB) Radius() float32 {
	return b.Size().Len() * 0.5
}

// Contains reports whether p lies inside the box.
func (b AABB) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Transform returns the world-space box enclosing b after scale, rotation and translation.
func (b AABB) Transform(pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) AABB {
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		corner = mgl32.Vec3{corner[0] * scale[0], corner[1] * scale[1], corner[2] * scale[2]}
		out.Extend(pos.Add(rot.Rotate(corner)))
	}
	return out
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// ScaledRadius returns the radius of the box after a non-uniform scale.
func ScaledRadius(local AABB, scale mgl32.Vec3) float32 {
	s := local.Size()
	sx, sy, sz := s[0]*scale[0], s[1]*scale[1], s[2]*scale[2]
	return math32.Sqrt(sx*sx+sy*sy+sz*sz) * 0.5
}

// LODFactor returns radius²/distance², the screen-coverage proxy used for LOD gating.
// A zero distance yields +Inf so that objects at the eye are never skipped.
func LODFactor(radius, distanceSquared float32) float32 {
	if distanceSquared <= 0 {
		return math32.Inf(1)
	}
	return radius * radius / distanceSquared
}
