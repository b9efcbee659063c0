package primmesh

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// SculptType selects how the edges of a sculpt map are stitched.
type SculptType uint8

const (
	SculptSphere   SculptType = 1
	SculptTorus    SculptType = 2
	SculptPlane    SculptType = 3
	SculptCylinder SculptType = 4

	sculptTypeMask = 0x07
	// SculptInvert flips the surface inside out.
	SculptInvert SculptType = 0x40
	// SculptMirror mirrors the surface along X.
	SculptMirror SculptType = 0x80
)

// Base returns the stitching type without modifier bits.
func (t SculptType) Base() SculptType { return t & sculptTypeMask }

// Sculpt builds a single-face mesh from a sculpt map whose RGB channels encode XYZ.
// detail is the number of grid cells along each axis.
func Sculpt(img *image.RGBA, typ SculptType, detail int) (*Mesh, error) {
	if img == nil || img.Rect.Empty() {
		return nil, errors.New("primmesh: empty sculpt map")
	}
	base := typ.Base()
	if base < SculptSphere || base > SculptCylinder {
		return nil, fmt.Errorf("%w: sculpt type %d", ErrUnsupported, typ)
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	cols := min(max(2, detail), w)
	rows := min(max(2, detail), h)

	wrapU := base == SculptSphere || base == SculptTorus || base == SculptCylinder
	wrapV := base == SculptTorus

	// grid holds (cols+1)×(rows+1) positions; the last column/row repeats the first when
	// wrapping so seams get their own texture coordinates.
	grid := make([]mgl32.Vec3, (cols+1)*(rows+1))
	at := func(c, r int) *mgl32.Vec3 { return &grid[r*(cols+1)+c] }
	sample := func(u, v float32) mgl32.Vec3 {
		x := min(int(u*float32(w)), w-1)
		y := min(int(v*float32(h)), h-1)
		o := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
		p := mgl32.Vec3{
			float32(img.Pix[o])/255 - 0.5,
			float32(img.Pix[o+1])/255 - 0.5,
			float32(img.Pix[o+2])/255 - 0.5,
		}
		if typ&SculptMirror != 0 {
			p[0] = -p[0]
		}
		return p
	}
	for r := 0; r <= rows; r++ {
		for c := 0; c <= cols; c++ {
			u, v := float32(c)/float32(cols), float32(r)/float32(rows)
			if wrapU && c == cols {
				u = 0
			}
			if wrapV && r == rows {
				v = 0
			}
			*at(c, r) = sample(u, v)
		}
	}

	if base == SculptSphere {
		// Collapse the poles so the sphere closes.
		for _, r := range []int{0, rows} {
			var sum mgl32.Vec3
			for c := 0; c < cols; c++ {
				sum = sum.Add(*at(c, r))
			}
			pole := sum.Mul(1 / float32(cols))
			for c := 0; c <= cols; c++ {
				*at(c, r) = pole
			}
		}
	}

	flip := (typ&SculptInvert != 0) != (typ&SculptMirror != 0)

	normals := make([]mgl32.Vec3, len(grid))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p0, p1, p2, p3 := *at(c, r), *at(c+1, r), *at(c+1, r+1), *at(c, r+1)
			n := p1.Sub(p0).Cross(p2.Sub(p0)).Add(p2.Sub(p0).Cross(p3.Sub(p0)))
			if flip {
				n = n.Mul(-1)
			}
			for _, idx := range [4]int{r*(cols+1) + c, r*(cols+1) + c + 1, (r+1)*(cols+1) + c + 1, (r+1)*(cols+1) + c} {
				normals[idx] = normals[idx].Add(n)
			}
		}
	}
	// Seams share normals with the column/row they duplicate.
	if wrapU {
		for r := 0; r <= rows; r++ {
			i, j := r*(cols+1), r*(cols+1)+cols
			sum := normals[i].Add(normals[j])
			normals[i], normals[j] = sum, sum
		}
	}
	if wrapV {
		for c := 0; c <= cols; c++ {
			i, j := c, rows*(cols+1)+c
			sum := normals[i].Add(normals[j])
			normals[i], normals[j] = sum, sum
		}
	}

	b := newFaceBuilder(0)
	for r := 0; r <= rows; r++ {
		for c := 0; c <= cols; c++ {
			n := normals[r*(cols+1)+c]
			if n.Len() > 1e-12 {
				n = n.Normalize()
			} else {
				n = mgl32.Vec3{0, 0, 1}
			}
			b.vertex(*at(c, r), n, float32(c)/float32(cols), float32(r)/float32(rows))
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i0 := uint16(r*(cols+1) + c)
			i1 := i0 + 1
			i3 := i0 + uint16(cols+1)
			i2 := i3 + 1
			if flip {
				b.triangle(i0, i2, i1)
				b.triangle(i0, i3, i2)
			} else {
				b.triangle(i0, i1, i2)
				b.triangle(i0, i2, i3)
			}
		}
	}
	return finish([]Face{b.face})
}
