// Package water builds the region water plane.
package water

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
)

// DefaultPadding extends the plane beyond the region edge so the horizon is not a hard line.
const DefaultPadding = 512.0

// Color is the tint the water texture is modulated with.
var Color = [4]float32{0.35, 0.55, 0.75, 0.6}

// tile is the size in metres of one repeat of the water texture.
const tile = 8

// BuildPlane creates an upward-facing quad at the given height covering the region
// plus padding on every side.
func BuildPlane(regionSize, height, padding float32) primmesh.Face {
	lo := -padding
	hi := regionSize + padding
	corners := [4]mgl32.Vec2{{lo, lo}, {hi, lo}, {hi, hi}, {lo, hi}}

	face := primmesh.Face{
		Vertices: make([]float32, 0, 4*gpu.VertexStride),
		Indices:  []uint16{0, 1, 2, 0, 2, 3},
		Bounds:   geom.EmptyAABB(),
	}
	for _, c := range corners {
		face.Vertices = append(face.Vertices,
			c[0], c[1], height,
			0, 0, 1,
			c[0]/tile, c[1]/tile,
		)
		face.Bounds.Extend(mgl32.Vec3{c[0], c[1], height})
	}
	return face
}

// Scroll returns the texture matrix for the water animation at time t seconds.
// speed is in texture repeats per second.
func Scroll(t, speed float32) mgl32.Mat4 {
	off := t * speed
	off -= float32(int(off))
	return mgl32.Translate3D(off, off*0.5, 0)
}
