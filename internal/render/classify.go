package render

import "github.com/Faultbox/gridview/internal/engine/texture"

// FaceClass is the pass a face is drawn in.
type FaceClass uint8

const (
	// ClassSkip faces are fully transparent and never drawn.
	ClassSkip FaceClass = iota
	// ClassOpaque faces are drawn front to back with alpha testing, which also covers
	// binary alpha masks.
	ClassOpaque
	// ClassAlpha faces are blended back to front.
	ClassAlpha
)

func (c FaceClass) String() string {
	switch c {
	case ClassSkip:
		return "skip"
	case ClassOpaque:
		return "opaque"
	case ClassAlpha:
		return "alpha"
	}
	return "unknown"
}

// ClassifyFace picks the pass for a face from its colour alpha and the alpha
// classification of its texture. Untextured or not yet loaded faces pass a zero Alpha.
func ClassifyFace(faceAlpha float32, tex texture.Alpha) FaceClass {
	switch {
	case faceAlpha <= 0 || tex.FullAlpha:
		return ClassSkip
	case faceAlpha < 1:
		return ClassAlpha
	case tex.HasAlpha && !tex.IsMask:
		return ClassAlpha
	}
	return ClassOpaque
}
