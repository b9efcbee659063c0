package glbackend

import (
	"github.com/go-gl/gl/v3.2-compatibility/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
)

func (d *Device) Draw(dc gpu.DrawCall) {
	g := dc.Geometry
	if g == nil || g.IndexCount() == 0 {
		return
	}

	modelView := d.view.Mul4(dc.Model)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadMatrixf(&modelView[0])

	texMatrix := dc.TexMatrix
	if texMatrix == (mgl32.Mat4{}) {
		texMatrix = mgl32.Ident4()
	}
	gl.MatrixMode(gl.TEXTURE)
	gl.LoadMatrixf(&texMatrix[0])
	gl.MatrixMode(gl.MODELVIEW)

	useTexture := d.state.Texturing && dc.Texture != 0
	gl.BindTexture(gl.TEXTURE_2D, dc.Texture)

	if d.shaderPath {
		d.drawShader(dc, g, useTexture)
	} else {
		d.drawFixed(dc, g, useTexture)
	}

	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *Device) drawShader(dc gpu.DrawCall, g *gpu.Geometry, useTexture bool) {
	p := d.program
	gl.Uniform1i(p.Uniform("uUseTexture"), boolInt(useTexture))
	gl.Uniform1i(p.Uniform("uLighting"), boolInt(d.state.Lighting))
	gl.Uniform1i(p.Uniform("uFullbright"), boolInt(dc.Fullbright))
	gl.Uniform4f(p.Uniform("uColor"), dc.Color[0], dc.Color[1], dc.Color[2], dc.Color[3])
	eyeDir := d.view.Mul4x1(d.light.Direction.Vec4(0)).Vec3()
	gl.Uniform3f(p.Uniform("uLightDir"), eyeDir[0], eyeDir[1], eyeDir[2])
	gl.Uniform3f(p.Uniform("uAmbient"), d.light.Ambient[0], d.light.Ambient[1], d.light.Ambient[2])
	gl.Uniform3f(p.Uniform("uDiffuse"), d.light.Diffuse[0], d.light.Diffuse[1], d.light.Diffuse[2])
	gl.Uniform1f(p.Uniform("uShiny"), dc.Shiny)
	gl.Uniform1f(p.Uniform("uGlow"), dc.Glow)

	count := g.IndexCount()
	switch {
	case !g.ClientSide && g.VertexArray != 0:
		gl.BindVertexArray(g.VertexArray)
		gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_SHORT, gl.PtrOffset(0))
		gl.BindVertexArray(0)
	case !g.ClientSide:
		gl.BindBuffer(gl.ARRAY_BUFFER, g.VertexBuffer)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.IndexBuffer)
		setAttribPointers(nil)
		gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_SHORT, gl.PtrOffset(0))
		disableAttribPointers()
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	default:
		setAttribPointers(g.Vertices)
		gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_SHORT, gl.Ptr(&g.Indices[0]))
		disableAttribPointers()
	}
}

func (d *Device) drawFixed(dc gpu.DrawCall, g *gpu.Geometry, useTexture bool) {
	if useTexture != d.state.Texturing {
		toggle(gl.TEXTURE_2D, useTexture)
		defer toggle(gl.TEXTURE_2D, d.state.Texturing)
	}
	if dc.Fullbright && d.state.Lighting {
		gl.Disable(gl.LIGHTING)
		defer gl.Enable(gl.LIGHTING)
	}
	if dc.Glow > 0 {
		emission := [4]float32{dc.Color[0] * dc.Glow, dc.Color[1] * dc.Glow, dc.Color[2] * dc.Glow, 1}
		gl.Materialfv(gl.FRONT_AND_BACK, gl.EMISSION, &emission[0])
		defer func() {
			black := [4]float32{0, 0, 0, 1}
			gl.Materialfv(gl.FRONT_AND_BACK, gl.EMISSION, &black[0])
		}()
	}
	gl.Color4f(dc.Color[0], dc.Color[1], dc.Color[2], dc.Color[3])

	count := g.IndexCount()
	if g.ClientSide {
		setClientPointers(g.Vertices)
		gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_SHORT, gl.Ptr(&g.Indices[0]))
	} else {
		gl.BindBuffer(gl.ARRAY_BUFFER, g.VertexBuffer)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.IndexBuffer)
		setClientPointers(nil)
		gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_SHORT, gl.PtrOffset(0))
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	}
	disableClientPointers()
}

// DrawBox draws a solid world-space box through the fixed pipeline. It is used for
// occlusion proxies and debug bounds, so it ignores the shader path.
func (d *Device) DrawBox(box [2]mgl32.Vec3, color [4]float32) {
	verts := geom.BoxTriangles(geom.NewAABB(box[0], box[1]))

	if d.shaderPath {
		gl.UseProgram(0)
		defer gl.UseProgram(d.program.ID)
	}
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadMatrixf(&d.view[0])
	gl.PushAttrib(gl.ENABLE_BIT)
	gl.Disable(gl.TEXTURE_2D)
	gl.Disable(gl.LIGHTING)
	gl.Disable(gl.CULL_FACE)
	gl.Color4f(color[0], color[1], color[2], color[3])

	gl.EnableClientState(gl.VERTEX_ARRAY)
	gl.VertexPointer(3, gl.FLOAT, 0, gl.Ptr(&verts[0]))
	gl.DrawArrays(gl.TRIANGLES, 0, geom.BoxTriangleVertexCount)
	gl.DisableClientState(gl.VERTEX_ARRAY)
	gl.PopAttrib()
}

// DrawOverlay draws a textured quad in window pixels, origin top-left.
func (d *Device) DrawOverlay(texture uint32, x, y, w, h float32, color [4]float32) {
	if d.shaderPath {
		gl.UseProgram(0)
		defer gl.UseProgram(d.program.ID)
	}
	gl.PushAttrib(gl.ENABLE_BIT | gl.DEPTH_BUFFER_BIT | gl.COLOR_BUFFER_BIT)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.LIGHTING)
	gl.Disable(gl.CULL_FACE)
	gl.Enable(gl.BLEND)
	gl.Enable(gl.TEXTURE_2D)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	gl.MatrixMode(gl.PROJECTION)
	gl.PushMatrix()
	gl.LoadIdentity()
	gl.Ortho(0, float64(d.width), float64(d.height), 0, -1, 1)
	gl.MatrixMode(gl.MODELVIEW)
	gl.PushMatrix()
	gl.LoadIdentity()
	gl.MatrixMode(gl.TEXTURE)
	gl.LoadIdentity()

	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.Color4f(color[0], color[1], color[2], color[3])
	gl.Begin(gl.QUADS)
	gl.TexCoord2f(0, 0)
	gl.Vertex2f(x, y)
	gl.TexCoord2f(0, 1)
	gl.Vertex2f(x, y+h)
	gl.TexCoord2f(1, 1)
	gl.Vertex2f(x+w, y+h)
	gl.TexCoord2f(1, 0)
	gl.Vertex2f(x+w, y)
	gl.End()
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.MatrixMode(gl.PROJECTION)
	gl.PopMatrix()
	gl.MatrixMode(gl.MODELVIEW)
	gl.PopMatrix()
	gl.PopAttrib()
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
