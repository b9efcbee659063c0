// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"errors"
	"image"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/gpu"
)

// ResourceKind tags a recorded handle.
type ResourceKind int

const (
	KindBuffer ResourceKind = iota
	KindVertexArray
	KindTexture
	KindQuery
)

// Draw is one recorded draw call together with the state it ran under.
type Draw struct {
	Call      gpu.DrawCall
	State     gpu.State
	Shader    bool
	Offscreen bool
}

// Recorder implements gpu.Device by recording every call.
// It is safe for concurrent inspection but, like a real device, expects a single caller.
type Recorder struct {
	mu sync.Mutex

	Caps gpu.Capabilities

	// FailBufferUpload makes every buffer creation fail verification.
	FailBufferUpload bool
	// QuerySamples holds the sample count reported per query; missing entries report 1.
	QuerySamples map[uint32]uint32
	// QueryPending marks queries whose result is not yet ready.
	QueryPending map[uint32]bool
	// Pixel and Depth are returned by ReadPixel.
	Pixel [4]byte
	Depth float32

	// PixelReads records the coordinates passed to ReadPixel.
	PixelReads [][2]int32

	nextID    uint32
	live      map[uint32]ResourceKind
	released  map[uint32]ResourceKind
	state     gpu.State
	shader    bool
	offscreen bool
	width     int32
	height    int32

	Draws          []Draw
	Boxes          [][2]mgl32.Vec3
	Overlays       []uint32
	ShaderSwitches []bool
	States         []gpu.State
	QueriesBegun   []uint32
	Clears         int
	Light          gpu.Light
	Projection     mgl32.Mat4
	View           mgl32.Mat4
}

// New returns a recorder advertising every capability.
func New() *Recorder {
	return &Recorder{
		Caps: gpu.Capabilities{
			VertexBuffers:    true,
			VertexArrays:     true,
			Shaders:          true,
			OcclusionQueries: true,
			Stencil:          true,
			Framebuffers:     true,
			MaxTextureSize:   2048,
			Renderer:         "recorder",
		},
		QuerySamples: make(map[uint32]uint32),
		QueryPending: make(map[uint32]bool),
		live:         make(map[uint32]ResourceKind),
		released:     make(map[uint32]ResourceKind),
		state:        gpu.DefaultState(),
		width:        640,
		height:       480,
		Depth:        1,
	}
}

func (r *Recorder) alloc(kind ResourceKind) uint32 {
	r.nextID++
	r.live[r.nextID] = kind
	return r.nextID
}

func (r *Recorder) free(id uint32) {
	if id == 0 {
		return
	}
	if kind, ok := r.live[id]; ok {
		delete(r.live, id)
		r.released[id] = kind
	}
}

// Live reports whether a handle is allocated and not yet released.
func (r *Recorder) Live(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.live[id]
	return ok
}

// Released reports whether a handle was explicitly deleted.
func (r *Recorder) Released(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.released[id]
	return ok
}

// LiveCount returns the number of live handles of a kind.
func (r *Recorder) LiveCount(kind ResourceKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.live {
		if k == kind {
			n++
		}
	}
	return n
}

// Reset clears recorded calls but keeps resource bookkeeping.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Draws = nil
	r.Boxes = nil
	r.Overlays = nil
	r.ShaderSwitches = nil
	r.States = nil
	r.QueriesBegun = nil
	r.PixelReads = nil
	r.Clears = 0
}

func (r *Recorder) Capabilities() gpu.Capabilities { return r.Caps }

func (r *Recorder) Viewport() (int32, int32) { return r.width, r.height }

func (r *Recorder) SetViewport(w, h int32) {
	r.width, r.height = w, h
}

func (r *Recorder) Clear(color [4]float32) {
	r.mu.Lock()
	r.Clears++
	r.mu.Unlock()
}

func (r *Recorder) SetCamera(projection, view mgl32.Mat4) {
	r.Projection, r.View = projection, view
}

func (r *Recorder) SetLight(l gpu.Light) { r.Light = l }

func (r *Recorder) State() gpu.State { return r.state }

func (r *Recorder) SetState(s gpu.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	r.States = append(r.States, s)
}

func (r *Recorder) SetShaderPath(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enabled != r.shader {
		r.ShaderSwitches = append(r.ShaderSwitches, enabled)
	}
	r.shader = enabled
}

// ShaderPath reports the currently selected path.
func (r *Recorder) ShaderPath() bool { return r.shader }

func (r *Recorder) CreateVertexBuffer(data []float32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailBufferUpload {
		return 0, gpu.ErrBufferVerify
	}
	return r.alloc(KindBuffer), nil
}

func (r *Recorder) CreateIndexBuffer(data []uint16) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailBufferUpload {
		return 0, gpu.ErrBufferVerify
	}
	return r.alloc(KindBuffer), nil
}

func (r *Recorder) DeleteBuffer(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free(id)
}

func (r *Recorder) CreateVertexArray(g *gpu.Geometry) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alloc(KindVertexArray), nil
}

func (r *Recorder) DeleteVertexArray(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free(id)
}

func (r *Recorder) CreateTexture(img *image.RGBA, mipmaps bool) (uint32, error) {
	if img == nil {
		return 0, errors.New("gputest: nil image")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alloc(KindTexture), nil
}

func (r *Recorder) DeleteTexture(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free(id)
}

func (r *Recorder) Draw(dc gpu.DrawCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Draws = append(r.Draws, Draw{Call: dc, State: r.state, Shader: r.shader, Offscreen: r.offscreen})
}

func (r *Recorder) DrawBox(box [2]mgl32.Vec3, color [4]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Boxes = append(r.Boxes, box)
}

func (r *Recorder) DrawOverlay(texture uint32, x, y, w, h float32, color [4]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Overlays = append(r.Overlays, texture)
}

func (r *Recorder) CreateQuery() (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alloc(KindQuery), nil
}

func (r *Recorder) DeleteQuery(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free(id)
}

func (r *Recorder) BeginQuery(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.QueriesBegun = append(r.QueriesBegun, id)
}

func (r *Recorder) EndQuery() {}

func (r *Recorder) QueryResult(id uint32) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.QueryPending[id] {
		return 0, false
	}
	if n, ok := r.QuerySamples[id]; ok {
		return n, true
	}
	return 1, true
}

func (r *Recorder) BeginOffscreen() (func(), error) {
	r.mu.Lock()
	r.offscreen = true
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.offscreen = false
		r.mu.Unlock()
	}, nil
}

// Offscreen reports whether an offscreen target is bound.
func (r *Recorder) Offscreen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offscreen
}

func (r *Recorder) ReadPixel(x, y int32) ([4]byte, float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PixelReads = append(r.PixelReads, [2]int32{x, y})
	return r.Pixel, r.Depth
}

var _ gpu.Device = (*Recorder)(nil)
