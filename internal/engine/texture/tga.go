// Package texture decodes compressed image payloads into RGBA bitmaps and classifies
// their alpha channel.
package texture

import (
	"errors"
	"fmt"
	"image"
)

// TGA image types.
const (
	TGATypeTrueColor    = 2
	TGATypeGray         = 3
	TGATypeTrueColorRLE = 10
	TGATypeGrayRLE      = 11
)

const tgaHeaderSize = 18

// DecodeTGA decodes uncompressed or RLE true-colour (24/32 bpp) and greyscale (8 bpp) TGA.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, errors.New("tga: header truncated")
	}
	idLength := int(data[0])
	if data[1] != 0 {
		return nil, errors.New("tga: colour-mapped images not supported")
	}
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	switch imageType {
	case TGATypeTrueColor, TGATypeTrueColorRLE:
		if bpp != 24 && bpp != 32 {
			return nil, fmt.Errorf("tga: unsupported true-colour depth %d", bpp)
		}
	case TGATypeGray, TGATypeGrayRLE:
		if bpp != 8 {
			return nil, fmt.Errorf("tga: unsupported greyscale depth %d", bpp)
		}
	default:
		return nil, fmt.Errorf("tga: unsupported image type %d", imageType)
	}
	if width == 0 || height == 0 {
		return nil, errors.New("tga: empty image")
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, errors.New("tga: data truncated")
	}

	r := tgaReader{src: data[offset:], bytesPerPixel: bpp / 8}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rle := imageType == TGATypeTrueColorRLE || imageType == TGATypeGrayRLE

	var packetLeft int
	var packetRepeat bool
	var repeated [4]byte
	for i := 0; i < width*height; i++ {
		var px [4]byte
		var ok bool
		if !rle {
			px, ok = r.pixel()
		} else {
			if packetLeft == 0 {
				header, hok := r.byte()
				if !hok {
					return nil, errors.New("tga: rle data truncated")
				}
				packetLeft = int(header&0x7F) + 1
				packetRepeat = header&0x80 != 0
				if packetRepeat {
					if repeated, ok = r.pixel(); !ok {
						return nil, errors.New("tga: rle data truncated")
					}
				}
			}
			packetLeft--
			if packetRepeat {
				px, ok = repeated, true
			} else {
				px, ok = r.pixel()
			}
		}
		if !ok {
			return nil, errors.New("tga: pixel data truncated")
		}

		x, y := i%width, i/width
		if !topToBottom {
			y = height - 1 - y
		}
		copy(img.Pix[img.PixOffset(x, y):], px[:])
	}
	return img, nil
}

type tgaReader struct {
	src           []byte
	pos           int
	bytesPerPixel int
}

func (r *tgaReader) byte() (byte, bool) {
	if r.pos >= len(r.src) {
		return 0, false
	}
	b := r.src[r.pos]
	r.pos++
	return b, true
}

// pixel reads one BGR(A) or grey pixel and returns it as RGBA.
func (r *tgaReader) pixel() ([4]byte, bool) {
	if r.pos+r.bytesPerPixel > len(r.src) {
		return [4]byte{}, false
	}
	p := r.src[r.pos : r.pos+r.bytesPerPixel]
	r.pos += r.bytesPerPixel
	switch r.bytesPerPixel {
	case 1:
		return [4]byte{p[0], p[0], p[0], 255}, true
	case 3:
		return [4]byte{p[2], p[1], p[0], 255}, true
	default:
		return [4]byte{p[2], p[1], p[0], p[3]}, true
	}
}

// looksLikeTGA is a weak sniff; TGA has no magic number.
func looksLikeTGA(data []byte) bool {
	if len(data) < tgaHeaderSize || data[1] != 0 {
		return false
	}
	switch data[2] {
	case TGATypeTrueColor, TGATypeTrueColorRLE, TGATypeGray, TGATypeGrayRLE:
		return true
	}
	return false
}
