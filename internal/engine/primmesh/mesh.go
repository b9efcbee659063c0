// Package primmesh turns primitive shape descriptions, sculpt maps and mesh assets into
// triangle lists. Everything here is pure data so it can run on worker goroutines.
package primmesh

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
)

// ErrUnsupported is returned for shape parameters this generator cannot build.
var ErrUnsupported = errors.New("primmesh: unsupported shape")

// maxVertices is the largest face addressable with 16-bit indices.
const maxVertices = 1 << 16

// Face is one texturable surface in interleaved gpu.VertexStride layout.
type Face struct {
	ID       int
	Vertices []float32
	Indices  []uint16
	Bounds   geom.AABB
}

// VertexCount returns the number of vertices in the face.
func (f *Face) VertexCount() int {
	return len(f.Vertices) / gpu.VertexStride
}

// Mesh is the full set of faces of an object in its unit local space.
type Mesh struct {
	Faces  []Face
	Bounds geom.AABB
}

type faceBuilder struct {
	face Face
}

func newFaceBuilder(id int) *faceBuilder {
	return &faceBuilder{face: Face{ID: id, Bounds: geom.EmptyAABB()}}
}

func (b *faceBuilder) vertex(pos, normal mgl32.Vec3, u, v float32) uint16 {
	idx := uint16(len(b.face.Vertices) / gpu.VertexStride)
	b.face.Vertices = append(b.face.Vertices,
		pos[0], pos[1], pos[2],
		normal[0], normal[1], normal[2],
		u, v,
	)
	b.face.Bounds.Extend(pos)
	return idx
}

func (b *faceBuilder) triangle(a, c, d uint16) {
	b.face.Indices = append(b.face.Indices, a, c, d)
}

func (b *faceBuilder) count() int {
	return len(b.face.Vertices) / gpu.VertexStride
}

func finish(faces []Face) (*Mesh, error) {
	m := &Mesh{Bounds: geom.EmptyAABB()}
	for _, f := range faces {
		if len(f.Indices) == 0 {
			continue
		}
		if f.VertexCount() > maxVertices {
			return nil, errors.New("primmesh: face exceeds 16-bit index range")
		}
		m.Faces = append(m.Faces, f)
		m.Bounds = m.Bounds.Union(f.Bounds)
	}
	if len(m.Faces) == 0 {
		return nil, errors.New("primmesh: no geometry")
	}
	return m, nil
}
