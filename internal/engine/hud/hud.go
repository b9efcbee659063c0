// Package hud draws screen-space text such as avatar name tags.
package hud

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Faultbox/gridview/internal/engine/gpu"
)

const padding = 2

// Tag is a label anchored at a world position.
type Tag struct {
	Text   string
	Anchor mgl32.Vec3
}

type label struct {
	texture uint32
	w, h    int
	used    bool
}

// Labels renders text to textures once and reuses them while the text stays on screen.
type Labels struct {
	face   font.Face
	labels map[string]*label
}

// NewLabels creates an empty label cache using the built-in bitmap font.
func NewLabels() *Labels {
	return &Labels{
		face:   basicfont.Face7x13,
		labels: make(map[string]*label),
	}
}

// Rasterize draws text onto a transparent image with a dark backing so it reads on
// any background.
func (l *Labels) Rasterize(text string) *image.RGBA {
	d := &font.Drawer{Face: l.face}
	width := d.MeasureString(text).Ceil() + 2*padding
	m := l.face.Metrics()
	height := (m.Ascent + m.Descent).Ceil() + 2*padding

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{A: 128}), image.Point{}, draw.Src)

	d.Dst = img
	d.Src = image.White
	d.Dot = fixed.Point26_6{
		X: fixed.I(padding),
		Y: fixed.I(padding) + m.Ascent,
	}
	d.DrawString(text)
	return img
}

func (l *Labels) get(dev gpu.Device, text string) (*label, error) {
	if lb, ok := l.labels[text]; ok {
		lb.used = true
		return lb, nil
	}
	img := l.Rasterize(text)
	tex, err := dev.CreateTexture(img, false)
	if err != nil {
		return nil, err
	}
	lb := &label{texture: tex, w: img.Bounds().Dx(), h: img.Bounds().Dy(), used: true}
	l.labels[text] = lb
	return lb, nil
}

// Draw renders the tags that project in front of the camera, then frees the textures
// of labels not drawn this frame.
func (l *Labels) Draw(dev gpu.Device, tags []Tag, view, proj mgl32.Mat4) int {
	for _, lb := range l.labels {
		lb.used = false
	}

	w, h := dev.Viewport()
	drawn := 0
	for _, tag := range tags {
		if tag.Text == "" {
			continue
		}
		x, y, ok := Project(tag.Anchor, view, proj, w, h)
		if !ok {
			continue
		}
		lb, err := l.get(dev, tag.Text)
		if err != nil {
			continue
		}
		dev.DrawOverlay(lb.texture, x-float32(lb.w)/2, y-float32(lb.h), float32(lb.w), float32(lb.h),
			[4]float32{1, 1, 1, 1})
		drawn++
	}

	for text, lb := range l.labels {
		if !lb.used {
			dev.DeleteTexture(lb.texture)
			delete(l.labels, text)
		}
	}
	return drawn
}

// Len returns the number of cached label textures.
func (l *Labels) Len() int { return len(l.labels) }

// Release frees every cached texture.
func (l *Labels) Release(dev gpu.Device) {
	for text, lb := range l.labels {
		dev.DeleteTexture(lb.texture)
		delete(l.labels, text)
	}
}

// Project maps a world position to top-left origin screen coordinates. It reports
// false for points behind the camera or outside the viewport.
func Project(p mgl32.Vec3, view, proj mgl32.Mat4, width, height int32) (x, y float32, ok bool) {
	clip := proj.Mul4(view).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	if ndc.X() < -1 || ndc.X() > 1 || ndc.Y() < -1 || ndc.Y() > 1 {
		return 0, 0, false
	}
	x = (ndc.X() + 1) / 2 * float32(width)
	y = (1 - ndc.Y()) / 2 * float32(height)
	return x, y, true
}
