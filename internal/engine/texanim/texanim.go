// Package texanim computes per-face texture coordinate animation.
//
// The result depends only on the animation parameters and the sum of the deltas passed
// to Advance, so two animators fed the same deltas produce identical transforms.
package texanim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Flags select the animation mode.
type Flags uint8

const (
	On Flags = 1 << iota
	Loop
	Reverse
	PingPong
	Smooth
	Rotate
	Scale
)

// Params are the animation settings carried by a face.
type Params struct {
	Flags  Flags
	Rate   float32 // frames per second
	Start  float32 // first frame
	Length float32 // number of frames; 0 means SizeX*SizeY
	SizeX  int
	SizeY  int
}

// Enabled reports whether the animation should run.
func (p Params) Enabled() bool { return p.Flags&On != 0 }

// Transform is a texture-space placement: offset and scale around the texture centre,
// then rotation.
type Transform struct {
	OffsetS, OffsetT float32
	ScaleS, ScaleT   float32
	Rotation         float32
}

// Identity is the untransformed placement.
var Identity = Transform{ScaleS: 1, ScaleT: 1}

// Matrix returns the texture matrix: coordinates are moved to the centre, scaled, rotated,
// offset and moved back.
func (t Transform) Matrix() mgl32.Mat4 {
	m := mgl32.Translate3D(0.5+t.OffsetS, 0.5+t.OffsetT, 0)
	if t.Rotation != 0 {
		m = m.Mul4(mgl32.HomogRotate3DZ(t.Rotation))
	}
	m = m.Mul4(mgl32.Scale3D(t.ScaleS, t.ScaleT, 1))
	return m.Mul4(mgl32.Translate3D(-0.5, -0.5, 0))
}

// Animator is the running state of one face's animation.
type Animator struct {
	Params
	elapsed float64
}

// New returns an animator at time zero.
func New(p Params) *Animator {
	return &Animator{Params: p}
}

// Reset restarts the animation with new parameters.
func (a *Animator) Reset(p Params) {
	a.Params = p
	a.elapsed = 0
}

// Advance adds dt seconds to the animation clock.
func (a *Animator) Advance(dt float64) {
	a.elapsed += dt
}

// Elapsed returns the accumulated animation time.
func (a *Animator) Elapsed() float64 { return a.elapsed }

// numFrames is Length, or the grid size when no explicit length is given.
func (p Params) numFrames() float32 {
	if p.Length > 0 {
		return p.Length
	}
	return float32(max(1, p.SizeX*p.SizeY))
}

// fullLength is the cycle length in frames, including the return leg for ping-pong.
func (p Params) fullLength(n float32) float32 {
	if p.Flags&PingPong == 0 {
		return n
	}
	switch {
	case p.Flags&Smooth != 0:
		return 2 * n
	case p.Flags&Loop != 0:
		return math32.Max(1, 2*n-2)
	default:
		return math32.Max(1, 2*n-1)
	}
}

// Frame returns the logical frame counter at the given elapsed time, after loop,
// ping-pong, reverse and start offset are applied.
func (p Params) Frame(elapsed float64) float32 {
	n := p.numFrames()
	full := p.fullLength(n)
	smooth := p.Flags&Smooth != 0

	fc := float32(elapsed) * p.Rate
	if p.Flags&Loop != 0 {
		fc = math32.Mod(fc, full)
		if fc < 0 {
			fc += full
		}
	} else if smooth {
		fc = math32.Min(full, fc)
	} else {
		fc = math32.Min(full-1, fc)
	}
	if !smooth {
		fc = math32.Floor(fc + 0.01)
	}

	if p.Flags&PingPong != 0 && fc >= n {
		if smooth {
			fc = n - (fc - n)
		} else {
			fc = (n - 1.99) - (fc - n)
		}
	}
	if p.Flags&Reverse != 0 {
		if smooth {
			fc = n - fc
		} else {
			fc = (n - 0.99) - fc
		}
	}

	fc += p.Start
	if !smooth {
		fc = math32.Floor(fc)
	}
	return fc
}

// Apply returns base with the animated components replaced.
func (a *Animator) Apply(base Transform) Transform {
	if !a.Enabled() {
		return base
	}
	fc := a.Frame(a.elapsed)
	out := base
	switch {
	case a.Flags&Rotate != 0:
		out.Rotation = fc
	case a.Flags&Scale != 0:
		out.ScaleS, out.ScaleT = fc, fc
	default:
		sizeX := float32(max(1, a.SizeX))
		sizeY := float32(max(1, a.SizeY))
		out.ScaleS, out.ScaleT = 1/sizeX, 1/sizeY
		xFrame := math32.Mod(fc, sizeX)
		if xFrame < 0 {
			xFrame += sizeX
		}
		yFrame := float32(int(fc / sizeX))
		out.OffsetS = (-0.5 + 0.5*out.ScaleS) + xFrame*out.ScaleS
		out.OffsetT = (0.5 - 0.5*out.ScaleT) - yFrame*out.ScaleT
	}
	return out
}
