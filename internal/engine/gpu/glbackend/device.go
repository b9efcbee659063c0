// Package glbackend implements gpu.Device on an OpenGL compatibility context.
//
// Both draw paths are kept: the fixed-function client-array path (works on any 1.x
// context) and the GLSL 1.20 attribute path. They read the same matrix stack so their
// output matches.
package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v3.2-compatibility/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/gpu/glbackend/shaders"
	"github.com/Faultbox/gridview/internal/engine/shader"
	"github.com/Faultbox/gridview/internal/logger"
)

var faceUniforms = []string{
	"uTexture", "uUseTexture", "uLighting", "uFullbright", "uColor",
	"uLightDir", "uAmbient", "uDiffuse", "uShiny", "uGlow",
}

// Device is the OpenGL implementation of gpu.Device.
// IMPORTANT: New must be called after the context is current, on the thread that owns it.
type Device struct {
	caps gpu.Capabilities
	log  *zap.Logger

	width, height int32

	projection mgl32.Mat4
	view       mgl32.Mat4
	light      gpu.Light

	state      gpu.State
	shaderPath bool
	program    *shader.Program

	offscreen *framebuffer
}

// New initializes GL function pointers, detects capabilities and applies the default state.
// disableShaders forces the fixed-function path even when GLSL is available.
func New(width, height int32, disableShaders bool) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	d := &Device{
		log:        logger.Named("gl"),
		width:      width,
		height:     height,
		projection: mgl32.Ident4(),
		view:       mgl32.Ident4(),
	}
	d.caps = detectCapabilities()
	if disableShaders {
		d.caps.Shaders = false
	}

	if d.caps.Shaders {
		p, err := shader.NewProgram(shaders.FaceVertexShader, shaders.FaceFragmentShader, faceUniforms...)
		if err != nil {
			d.log.Warn("face shader unavailable, using fixed-function path", zap.Error(err))
			d.caps.Shaders = false
		} else {
			d.program = p
		}
	}

	d.log.Info("OpenGL initialized",
		zap.String("version", d.caps.Version),
		zap.String("vendor", d.caps.Vendor),
		zap.String("renderer", d.caps.Renderer),
		zap.Bool("vbo", d.caps.VertexBuffers),
		zap.Bool("vao", d.caps.VertexArrays),
		zap.Bool("shaders", d.caps.Shaders),
		zap.Bool("occlusion", d.caps.OcclusionQueries),
		zap.Bool("stencil", d.caps.Stencil),
		zap.Bool("fbo", d.caps.Framebuffers),
	)

	gl.DepthFunc(gl.LEQUAL)
	gl.FrontFace(gl.CCW)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.LIGHT0)
	gl.Enable(gl.COLOR_MATERIAL)
	gl.ColorMaterial(gl.FRONT_AND_BACK, gl.AMBIENT_AND_DIFFUSE)
	gl.Enable(gl.NORMALIZE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.Viewport(0, 0, width, height)

	d.state = gpu.DefaultState()
	d.applyState(d.state, true)
	return d, nil
}

// Close releases device-owned objects. Scene resources are released by their owners.
func (d *Device) Close() {
	d.log.Info("closing device")
	if d.program != nil {
		d.program.Delete()
	}
	if d.offscreen != nil {
		d.offscreen.destroy()
		d.offscreen = nil
	}
}

func (d *Device) Capabilities() gpu.Capabilities { return d.caps }

func (d *Device) Viewport() (int32, int32) { return d.width, d.height }

func (d *Device) SetViewport(width, height int32) {
	d.width, d.height = width, height
	gl.Viewport(0, 0, width, height)
	d.log.Debug("viewport resized", zap.Int32("width", width), zap.Int32("height", height))
}

func (d *Device) Clear(color [4]float32) {
	gl.ClearColor(color[0], color[1], color[2], color[3])
	gl.ClearStencil(0)
	// Depth and stencil writes must be on for the clear to reach them.
	gl.DepthMask(true)
	gl.StencilMask(0xFF)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
	d.applyState(d.state, true)
}

func (d *Device) SetCamera(projection, view mgl32.Mat4) {
	d.projection, d.view = projection, view
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadMatrixf(&d.projection[0])
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadMatrixf(&d.view[0])
	d.applyLight()
}

func (d *Device) SetLight(l gpu.Light) {
	d.light = l
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadMatrixf(&d.view[0])
	d.applyLight()
}

// applyLight expects the view matrix on the modelview stack so the direction is
// transformed to eye space the same way the shader path does it.
func (d *Device) applyLight() {
	dir := [4]float32{d.light.Direction[0], d.light.Direction[1], d.light.Direction[2], 0}
	amb := [4]float32{d.light.Ambient[0], d.light.Ambient[1], d.light.Ambient[2], 1}
	dif := [4]float32{d.light.Diffuse[0], d.light.Diffuse[1], d.light.Diffuse[2], 1}
	black := [4]float32{0, 0, 0, 1}
	gl.Lightfv(gl.LIGHT0, gl.POSITION, &dir[0])
	gl.Lightfv(gl.LIGHT0, gl.AMBIENT, &amb[0])
	gl.Lightfv(gl.LIGHT0, gl.DIFFUSE, &dif[0])
	gl.LightModelfv(gl.LIGHT_MODEL_AMBIENT, &black[0])
}

func (d *Device) State() gpu.State { return d.state }

func (d *Device) SetState(s gpu.State) {
	d.applyState(s, false)
	d.state = s
}

func (d *Device) applyState(s gpu.State, force bool) {
	prev := d.state
	if force || s.DepthTest != prev.DepthTest {
		toggle(gl.DEPTH_TEST, s.DepthTest)
	}
	if force || s.DepthWrite != prev.DepthWrite {
		gl.DepthMask(s.DepthWrite)
	}
	if force || s.ColorWrite != prev.ColorWrite {
		gl.ColorMask(s.ColorWrite, s.ColorWrite, s.ColorWrite, s.ColorWrite)
	}
	if force || s.Blend != prev.Blend {
		toggle(gl.BLEND, s.Blend)
	}
	if force || s.AlphaTest != prev.AlphaTest || s.AlphaRef != prev.AlphaRef {
		toggle(gl.ALPHA_TEST, s.AlphaTest)
		gl.AlphaFunc(gl.GREATER, s.AlphaRef)
	}
	if force || s.CullBack != prev.CullBack {
		toggle(gl.CULL_FACE, s.CullBack)
		gl.CullFace(gl.BACK)
	}
	if force || s.Lighting != prev.Lighting {
		toggle(gl.LIGHTING, s.Lighting)
	}
	if force || s.Texturing != prev.Texturing {
		toggle(gl.TEXTURE_2D, s.Texturing)
	}
	if force || s.Stencil != prev.Stencil {
		d.applyStencil(s.Stencil)
	}
}

func (d *Device) applyStencil(mode gpu.StencilMode) {
	if !d.caps.Stencil {
		return
	}
	switch mode {
	case gpu.StencilWrite:
		gl.Enable(gl.STENCIL_TEST)
		gl.StencilMask(0xFF)
		gl.StencilFunc(gl.ALWAYS, 1, 0xFF)
		gl.StencilOp(gl.KEEP, gl.KEEP, gl.REPLACE)
	case gpu.StencilExclude:
		gl.Enable(gl.STENCIL_TEST)
		gl.StencilMask(0x00)
		gl.StencilFunc(gl.NOTEQUAL, 1, 0xFF)
		gl.StencilOp(gl.KEEP, gl.KEEP, gl.KEEP)
	default:
		gl.Disable(gl.STENCIL_TEST)
	}
}

func toggle(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

func (d *Device) SetShaderPath(enabled bool) {
	enabled = enabled && d.program != nil
	if enabled == d.shaderPath {
		return
	}
	d.shaderPath = enabled
	if enabled {
		gl.UseProgram(d.program.ID)
		gl.Uniform1i(d.program.Uniform("uTexture"), 0)
	} else {
		gl.UseProgram(0)
	}
}

func (d *Device) BeginOffscreen() (func(), error) {
	if !d.caps.Framebuffers {
		// Drawing into the back buffer is fine: the next frame clears it before swap.
		return func() {}, nil
	}
	if d.offscreen == nil {
		fb, err := newFramebuffer(d.width, d.height)
		if err != nil {
			return nil, err
		}
		d.offscreen = fb
	}
	d.offscreen.resize(d.width, d.height)
	restore := d.offscreen.bind()
	gl.Disable(gl.DITHER)
	gl.Disable(gl.MULTISAMPLE)
	return func() {
		gl.Enable(gl.DITHER)
		gl.Enable(gl.MULTISAMPLE)
		restore()
	}, nil
}

func (d *Device) ReadPixel(x, y int32) ([4]byte, float32) {
	var rgba [4]byte
	var depth float32
	gl.ReadPixels(x, y, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&rgba[0]))
	gl.ReadPixels(x, y, 1, 1, gl.DEPTH_COMPONENT, gl.FLOAT, gl.Ptr(&depth))
	return rgba, depth
}

// ReadFrame reads the whole viewport as RGBA rows, bottom row first.
func (d *Device) ReadFrame() []byte {
	pix := make([]byte, int(d.width)*int(d.height)*4)
	if len(pix) == 0 {
		return pix
	}
	gl.ReadPixels(0, 0, d.width, d.height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pix[0]))
	return pix
}

var _ gpu.Device = (*Device)(nil)
