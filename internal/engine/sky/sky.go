// Package sky builds the sky dome and its gradient texture.
package sky

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/lighting"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
)

const (
	rings    = 8
	segments = 24
	// GradientHeight is the number of texels from horizon to zenith.
	GradientHeight = 32
)

// Dome returns a unit hemisphere seen from inside, with a skirt below the horizon.
// The v texture coordinate runs from 0 at the horizon to 1 at the zenith.
func Dome() primmesh.Face {
	face := primmesh.Face{Bounds: geom.EmptyAABB()}
	add := func(p mgl32.Vec3, v float32) {
		n := p.Mul(-1)
		face.Vertices = append(face.Vertices, p[0], p[1], p[2], n[0], n[1], n[2], 0.5, v)
		face.Bounds.Extend(p)
	}

	// Ring -1 is the skirt.
	for r := -1; r <= rings; r++ {
		el := float32(r) / rings * math32.Pi / 2
		v := float32(r) / rings
		if r < 0 {
			v = 0
		}
		for s := 0; s <= segments; s++ {
			az := float32(s) / segments * 2 * math32.Pi
			add(mgl32.Vec3{
				math32.Cos(el) * math32.Cos(az),
				math32.Cos(el) * math32.Sin(az),
				math32.Sin(el),
			}, v)
		}
	}

	const row = segments + 1
	for r := 0; r < rings+1; r++ {
		for s := 0; s < segments; s++ {
			a := uint16(r*row + s)
			b := a + 1
			c := a + row
			d := c + 1
			// Wound clockwise from outside so the inside faces the camera.
			face.Indices = append(face.Indices, a, d, b, a, c, d)
		}
	}
	return face
}

// Gradient renders the horizon to zenith colours for the given sun direction into a
// one texel wide strip. Row 0 is the horizon.
func Gradient(sun mgl32.Vec3) *image.RGBA {
	horizon, zenith := lighting.SkyColors(sun)
	img := image.NewRGBA(image.Rect(0, 0, 1, GradientHeight))
	for y := 0; y < GradientHeight; y++ {
		t := float32(y) / (GradientHeight - 1)
		t = math32.Sqrt(t)
		img.SetRGBA(0, y, color.RGBA{
			R: toByte(horizon[0] + (zenith[0]-horizon[0])*t),
			G: toByte(horizon[1] + (zenith[1]-horizon[1])*t),
			B: toByte(horizon[2] + (zenith[2]-horizon[2])*t),
			A: 255,
		})
	}
	return img
}

// Model places the dome around the eye, scaled to sit inside the far plane.
func Model(eye mgl32.Vec3, far float32) mgl32.Mat4 {
	r := far * 0.9
	return mgl32.Translate3D(eye[0], eye[1], eye[2]).Mul4(mgl32.Scale3D(r, r, r))
}

// State is the pass state for the dome: no depth writes, unlit.
func State() gpu.State {
	s := gpu.DefaultState()
	s.DepthTest = false
	s.DepthWrite = false
	s.Lighting = false
	s.CullBack = false
	return s
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
