package resource

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
	"github.com/Faultbox/gridview/internal/engine/texanim"
	"github.com/Faultbox/gridview/internal/logger"
)

// FaceData is the GPU bundle for one face. Buffers follows the State machine: a failed
// upload is permanent and the face draws from client-side arrays for the rest of its life.
type FaceData struct {
	Geometry gpu.Geometry
	Bounds   geom.AABB
	Anim     *texanim.Animator
	PickID   uint32

	Texture uuid.UUID
	Buffers State
}

// NewFaceData wraps generated face geometry. Nothing is uploaded yet.
func NewFaceData(f *primmesh.Face) *FaceData {
	return &FaceData{
		Geometry: gpu.Geometry{
			ClientSide: true,
			Vertices:   f.Vertices,
			Indices:    f.Indices,
		},
		Bounds: f.Bounds,
	}
}

// VBOFailed reports whether buffer upload failed permanently.
func (f *FaceData) VBOFailed() bool { return f.Buffers == Failed }

// Upload moves the vertex data into GPU buffers when the device and settings allow it.
// On verification failure the face is pinned to client-side arrays.
func (f *FaceData) Upload(dev gpu.Device, useBuffers bool) {
	if f.Buffers != Unloaded || !useBuffers || len(f.Geometry.Indices) == 0 {
		return
	}
	caps := dev.Capabilities()
	if !caps.VertexBuffers {
		return
	}
	f.Buffers = Loading

	vbo, err := dev.CreateVertexBuffer(f.Geometry.Vertices)
	if err != nil {
		f.fail(err)
		return
	}
	ibo, err := dev.CreateIndexBuffer(f.Geometry.Indices)
	if err != nil {
		dev.DeleteBuffer(vbo)
		f.fail(err)
		return
	}
	f.Geometry.VertexBuffer = vbo
	f.Geometry.IndexBuffer = ibo
	f.Geometry.ClientSide = false

	if caps.VertexArrays {
		vao, err := dev.CreateVertexArray(&f.Geometry)
		if err == nil {
			f.Geometry.VertexArray = vao
		}
	}
	f.Buffers = Ready
}

func (f *FaceData) fail(err error) {
	f.Buffers = Failed
	f.Geometry.ClientSide = true
	logger.Named("faces").Warn("face buffer upload failed, using client arrays", zap.Error(err))
}

// Release deletes any GPU buffers. The client-side data stays so the face could be drawn
// again, but callers normally drop the FaceData afterwards.
func (f *FaceData) Release(dev gpu.Device) {
	if f.Geometry.VertexArray != 0 {
		dev.DeleteVertexArray(f.Geometry.VertexArray)
		f.Geometry.VertexArray = 0
	}
	if f.Geometry.VertexBuffer != 0 {
		dev.DeleteBuffer(f.Geometry.VertexBuffer)
		f.Geometry.VertexBuffer = 0
	}
	if f.Geometry.IndexBuffer != 0 {
		dev.DeleteBuffer(f.Geometry.IndexBuffer)
		f.Geometry.IndexBuffer = 0
	}
	f.Geometry.ClientSide = true
	if f.Buffers == Ready {
		f.Buffers = Unloaded
	}
}
