package glbackend

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v3.2-compatibility/gl"

	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/shader"
)

// createBuffer uploads data and verifies the driver allocated the full size.
func (d *Device) createBuffer(target uint32, size int, ptr func() any) (uint32, error) {
	if !d.caps.VertexBuffers {
		return 0, errors.New("vertex buffers not supported")
	}
	if size == 0 {
		return 0, errors.New("empty buffer")
	}
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(target, id)
	gl.BufferData(target, size, gl.Ptr(ptr()), gl.STATIC_DRAW)

	var got int32
	gl.GetBufferParameteriv(target, gl.BUFFER_SIZE, &got)
	gl.BindBuffer(target, 0)
	if int(got) != size {
		gl.DeleteBuffers(1, &id)
		return 0, fmt.Errorf("%w: requested %d bytes, got %d", gpu.ErrBufferVerify, size, got)
	}
	return id, nil
}

func (d *Device) CreateVertexBuffer(data []float32) (uint32, error) {
	return d.createBuffer(gl.ARRAY_BUFFER, len(data)*4, func() any { return &data[0] })
}

func (d *Device) CreateIndexBuffer(data []uint16) (uint32, error) {
	return d.createBuffer(gl.ELEMENT_ARRAY_BUFFER, len(data)*2, func() any { return &data[0] })
}

func (d *Device) DeleteBuffer(id uint32) {
	if id != 0 {
		gl.DeleteBuffers(1, &id)
	}
}

// CreateVertexArray records the attribute bindings of g's buffers for the shader path.
func (d *Device) CreateVertexArray(g *gpu.Geometry) (uint32, error) {
	if !d.caps.VertexArrays {
		return 0, errors.New("vertex arrays not supported")
	}
	if g.VertexBuffer == 0 || g.IndexBuffer == 0 {
		return 0, errors.New("vertex array needs uploaded buffers")
	}
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.VertexBuffer)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.IndexBuffer)
	setAttribPointers(nil)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	return vao, nil
}

func (d *Device) DeleteVertexArray(id uint32) {
	if id != 0 {
		gl.DeleteVertexArrays(1, &id)
	}
}

func (d *Device) CreateTexture(img *image.RGBA, mipmaps bool) (uint32, error) {
	if img == nil {
		return 0, errors.New("nil image")
	}
	w, h := int32(img.Rect.Dx()), int32(img.Rect.Dy())
	if w == 0 || h == 0 {
		return 0, errors.New("empty image")
	}
	if d.caps.MaxTextureSize > 0 && (w > d.caps.MaxTextureSize || h > d.caps.MaxTextureSize) {
		return 0, fmt.Errorf("texture %dx%d exceeds max %d", w, h, d.caps.MaxTextureSize)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	if mipmaps {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		if !d.caps.Framebuffers {
			gl.TexParameteri(gl.TEXTURE_2D, gl.GENERATE_MIPMAP, gl.TRUE)
		}
	} else {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	if mipmaps && d.caps.Framebuffers {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex, nil
}

func (d *Device) DeleteTexture(id uint32) {
	if id != 0 {
		gl.DeleteTextures(1, &id)
	}
}

func (d *Device) CreateQuery() (uint32, error) {
	if !d.caps.OcclusionQueries {
		return 0, errors.New("occlusion queries not supported")
	}
	var id uint32
	gl.GenQueries(1, &id)
	return id, nil
}

func (d *Device) DeleteQuery(id uint32) {
	if id != 0 {
		gl.DeleteQueries(1, &id)
	}
}

func (d *Device) BeginQuery(id uint32) { gl.BeginQuery(gl.SAMPLES_PASSED, id) }

func (d *Device) EndQuery() { gl.EndQuery(gl.SAMPLES_PASSED) }

func (d *Device) QueryResult(id uint32) (uint32, bool) {
	var available uint32
	gl.GetQueryObjectuiv(id, gl.QUERY_RESULT_AVAILABLE, &available)
	if available == 0 {
		return 0, false
	}
	var samples uint32
	gl.GetQueryObjectuiv(id, gl.QUERY_RESULT, &samples)
	return samples, true
}

// setAttribPointers points the shader attribute slots at an interleaved vertex layout.
// base is nil when a buffer is bound, otherwise the client-side vertex slice.
func setAttribPointers(base []float32) {
	const stride = gpu.VertexStride * 4
	if base == nil {
		gl.VertexAttribPointer(shader.AttribPosition, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
		gl.VertexAttribPointer(shader.AttribNormal, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
		gl.VertexAttribPointer(shader.AttribTexCoord, 2, gl.FLOAT, false, stride, gl.PtrOffset(6*4))
	} else {
		gl.VertexAttribPointer(shader.AttribPosition, 3, gl.FLOAT, false, stride, gl.Ptr(&base[0]))
		gl.VertexAttribPointer(shader.AttribNormal, 3, gl.FLOAT, false, stride, gl.Ptr(&base[3]))
		gl.VertexAttribPointer(shader.AttribTexCoord, 2, gl.FLOAT, false, stride, gl.Ptr(&base[6]))
	}
	gl.EnableVertexAttribArray(shader.AttribPosition)
	gl.EnableVertexAttribArray(shader.AttribNormal)
	gl.EnableVertexAttribArray(shader.AttribTexCoord)
}

func disableAttribPointers() {
	gl.DisableVertexAttribArray(shader.AttribPosition)
	gl.DisableVertexAttribArray(shader.AttribNormal)
	gl.DisableVertexAttribArray(shader.AttribTexCoord)
}

// setClientPointers is the fixed-function counterpart of setAttribPointers.
func setClientPointers(base []float32) {
	const stride = gpu.VertexStride * 4
	gl.EnableClientState(gl.VERTEX_ARRAY)
	gl.EnableClientState(gl.NORMAL_ARRAY)
	gl.EnableClientState(gl.TEXTURE_COORD_ARRAY)
	if base == nil {
		gl.VertexPointer(3, gl.FLOAT, stride, gl.PtrOffset(0))
		gl.NormalPointer(gl.FLOAT, stride, gl.PtrOffset(3*4))
		gl.TexCoordPointer(2, gl.FLOAT, stride, gl.PtrOffset(6*4))
	} else {
		gl.VertexPointer(3, gl.FLOAT, stride, gl.Ptr(&base[0]))
		gl.NormalPointer(gl.FLOAT, stride, gl.Ptr(&base[3]))
		gl.TexCoordPointer(2, gl.FLOAT, stride, gl.Ptr(&base[6]))
	}
}

func disableClientPointers() {
	gl.DisableClientState(gl.VERTEX_ARRAY)
	gl.DisableClientState(gl.NORMAL_ARRAY)
	gl.DisableClientState(gl.TEXTURE_COORD_ARRAY)
}
