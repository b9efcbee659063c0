package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrUnknownFormat is returned when no decoder recognises the payload.
var ErrUnknownFormat = errors.New("texture: unknown image format")

// Decode turns a compressed payload into an RGBA bitmap no larger than maxSize on either
// axis (0 means unbounded). PNG, JPEG, BMP and WebP are sniffed by magic; anything else
// is tried as TGA.
func Decode(data []byte, maxSize int) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if !errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("texture: decode: %w", err)
		}
		if !looksLikeTGA(data) {
			return nil, ErrUnknownFormat
		}
		rgba, terr := DecodeTGA(data)
		if terr != nil {
			return nil, terr
		}
		return Fit(rgba, maxSize), nil
	}
	return Fit(ToRGBA(img), maxSize), nil
}

// ToRGBA converts any image to a zero-origin *image.RGBA.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}

// Fit downsamples img so neither side exceeds maxSize, keeping the aspect ratio.
func Fit(img *image.RGBA, maxSize int) *image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}
	nw, nh := maxSize, maxSize
	if w > h {
		nh = max(1, h*maxSize/w)
	} else if h > w {
		nw = max(1, w*maxSize/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, img, img.Rect, draw.Src, nil)
	return dst
}
