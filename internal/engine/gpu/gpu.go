// Package gpu defines the graphics-device surface the scene renderer draws through.
//
// Every method must be called from the thread that owns the graphics context. Workers
// produce plain data (pixels, triangle lists) and hand it to that thread; they never
// hold a Device.
package gpu

import (
	"errors"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrBufferVerify is returned when an uploaded buffer reports a different size than requested.
var ErrBufferVerify = errors.New("gpu: buffer size verification failed")

// Capabilities is detected once at context creation and passed to every component that
// needs to branch on hardware support. It is never mutated afterwards.
type Capabilities struct {
	VertexBuffers    bool
	VertexArrays     bool
	Shaders          bool
	OcclusionQueries bool
	Stencil          bool
	Framebuffers     bool
	MaxTextureSize   int32

	Vendor   string
	Renderer string
	Version  string
}

// StencilMode selects how the stencil buffer participates in a pass.
type StencilMode uint8

const (
	// StencilOff disables the stencil test.
	StencilOff StencilMode = iota
	// StencilWrite marks covered pixels with 1 regardless of the current value.
	StencilWrite
	// StencilExclude only draws where the stencil value is not 1.
	StencilExclude
)

// State is the complete fixed-function state a pass runs under.
type State struct {
	DepthTest  bool
	DepthWrite bool
	ColorWrite bool
	Blend      bool
	AlphaTest  bool
	AlphaRef   float32
	CullBack   bool
	Lighting   bool
	Texturing  bool
	Stencil    StencilMode
}

// DefaultState is the state a freshly created context is put into.
func DefaultState() State {
	return State{
		DepthTest:  true,
		DepthWrite: true,
		ColorWrite: true,
		CullBack:   true,
		Lighting:   true,
		Texturing:  true,
	}
}

// VertexStride is the number of float32 values per interleaved vertex:
// position (3), normal (3), texcoord (2).
const VertexStride = 8

// Geometry references one face worth of vertex data, either uploaded or client-side.
type Geometry struct {
	VertexBuffer uint32
	IndexBuffer  uint32
	VertexArray  uint32

	// ClientSide draws straight from Vertices/Indices instead of the buffer handles.
	ClientSide bool
	Vertices   []float32
	Indices    []uint16
}

// IndexCount returns the number of indices to draw.
func (g *Geometry) IndexCount() int32 {
	return int32(len(g.Indices))
}

// DrawCall is a single textured, coloured face draw.
type DrawCall struct {
	Model      mgl32.Mat4
	Geometry   *Geometry
	Texture    uint32
	Color      [4]float32
	TexMatrix  mgl32.Mat4
	Fullbright bool
	Shiny      float32
	Glow       float32
}

// Light is the directional sun light applied when lighting is enabled.
type Light struct {
	Direction mgl32.Vec3
	Ambient   [3]float32
	Diffuse   [3]float32
}

// Device is the render-thread-only graphics surface.
type Device interface {
	Capabilities() Capabilities

	Viewport() (width, height int32)
	SetViewport(width, height int32)
	Clear(color [4]float32)

	SetCamera(projection, view mgl32.Mat4)
	SetLight(l Light)
	State() State
	SetState(s State)
	// SetShaderPath switches between the shader attribute path and the fixed-function
	// client-array path. Callers only switch at pass boundaries.
	SetShaderPath(enabled bool)

	CreateVertexBuffer(data []float32) (uint32, error)
	CreateIndexBuffer(data []uint16) (uint32, error)
	DeleteBuffer(id uint32)
	CreateVertexArray(g *Geometry) (uint32, error)
	DeleteVertexArray(id uint32)
	CreateTexture(img *image.RGBA, mipmaps bool) (uint32, error)
	DeleteTexture(id uint32)

	Draw(dc DrawCall)
	DrawBox(box [2]mgl32.Vec3, color [4]float32)
	DrawOverlay(texture uint32, x, y, w, h float32, color [4]float32)

	CreateQuery() (uint32, error)
	DeleteQuery(id uint32)
	BeginQuery(id uint32)
	EndQuery()
	// QueryResult returns the number of samples that passed and whether the result is ready.
	QueryResult(id uint32) (samples uint32, ready bool)

	// BeginOffscreen redirects drawing into an offscreen target sized like the viewport.
	// The returned function restores the previous target.
	BeginOffscreen() (restore func(), err error)
	ReadPixel(x, y int32) (rgba [4]byte, depth float32)
}
