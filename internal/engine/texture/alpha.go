package texture

import (
	"image"

	"github.com/google/uuid"
)

// Alpha thresholds for treating a channel as binary.
const (
	maskLow  = 8
	maskHigh = 247
)

// Alpha is the classification of a decoded texture's alpha channel.
type Alpha struct {
	// HasAlpha is set when any pixel is not fully opaque.
	HasAlpha bool
	// FullAlpha is set when every pixel is fully transparent.
	FullAlpha bool
	// IsMask is set when every pixel is close to either transparent or opaque, so the
	// texture can be alpha-tested instead of blended.
	IsMask bool
}

// Flags packs the classification into the on-disk flag byte.
func (a Alpha) Flags() byte {
	var f byte
	if a.HasAlpha {
		f |= 1
	}
	if a.FullAlpha {
		f |= 2
	}
	if a.IsMask {
		f |= 4
	}
	return f
}

// AlphaFromFlags is the inverse of Alpha.Flags.
func AlphaFromFlags(f byte) Alpha {
	return Alpha{HasAlpha: f&1 != 0, FullAlpha: f&2 != 0, IsMask: f&4 != 0}
}

// Classify scans the alpha channel of img.
func Classify(img *image.RGBA) Alpha {
	a := Alpha{FullAlpha: true, IsMask: true}
	b := img.Rect
	if b.Empty() {
		return Alpha{}
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 3; i < len(row); i += 4 {
			v := row[i]
			if v < 255 {
				a.HasAlpha = true
			}
			if v != 0 {
				a.FullAlpha = false
			}
			if v > maskLow && v < maskHigh {
				a.IsMask = false
			}
		}
	}
	if !a.HasAlpha {
		a.IsMask = false
	}
	return a
}

// Textures that render as invisible masks: they occlude what is behind them through the
// stencil buffer rather than being drawn.
var invisiprims = map[uuid.UUID]struct{}{
	uuid.MustParse("38b86f85-2575-52a9-a531-23108d8da837"): {},
	uuid.MustParse("e97cf410-8e61-7005-ec06-629eba4cd1fb"): {},
}

// IsInvisiprim reports whether id is one of the invisible-mask textures.
func IsInvisiprim(id uuid.UUID) bool {
	_, ok := invisiprims[id]
	return ok
}
