package render

import "github.com/Faultbox/gridview/internal/engine/gpu"

// Pass identifies one stage of a frame.
type Pass uint8

const (
	PassNone Pass = iota
	PassPicking
	PassSky
	PassTerrain
	PassSimple
	PassInvisible
	PassAvatar
	PassOcclusion
	PassWater
	PassAlpha
	PassHUD
	numPasses
)

var passNames = [numPasses]string{
	PassNone:      "none",
	PassPicking:   "picking",
	PassSky:       "sky",
	PassTerrain:   "terrain",
	PassSimple:    "simple",
	PassInvisible: "invisible",
	PassAvatar:    "avatar",
	PassOcclusion: "occlusion",
	PassWater:     "water",
	PassAlpha:     "alpha",
	PassHUD:       "hud",
}

func (p Pass) String() string {
	if p < numPasses {
		return passNames[p]
	}
	return "unknown"
}

// maskRef is the alpha test reference for mask textures.
const maskRef = 0.5

// passState returns the fixed-function state a pass runs under.
func passState(p Pass, stencil bool) gpu.State {
	s := gpu.DefaultState()
	switch p {
	case PassPicking:
		s.Lighting = false
		s.Texturing = false
	case PassSky:
		s.DepthTest = false
		s.DepthWrite = false
		s.Lighting = false
		s.CullBack = false
	case PassSimple:
		s.AlphaTest = true
		s.AlphaRef = maskRef
	case PassInvisible:
		s.ColorWrite = false
		s.DepthWrite = false
		s.Lighting = false
		s.Texturing = false
		s.Stencil = gpu.StencilWrite
	case PassAvatar:
		s.AlphaTest = true
		s.AlphaRef = maskRef
		if stencil {
			s.Stencil = gpu.StencilExclude
		}
	case PassOcclusion:
		s.DepthWrite = false
		s.ColorWrite = false
		s.CullBack = false
		s.Lighting = false
		s.Texturing = false
	case PassWater:
		s.Blend = true
		s.DepthWrite = false
		s.CullBack = false
	case PassAlpha:
		s.Blend = true
		s.DepthWrite = false
	case PassHUD:
		s.DepthTest = false
		s.DepthWrite = false
		s.Blend = true
		s.Lighting = false
		s.CullBack = false
	}
	return s
}

// usesShaders reports whether a pass may run on the shader attribute path. The choice
// is made once per pass; faces inside a pass never switch paths.
func usesShaders(p Pass) bool {
	switch p {
	case PassTerrain, PassSimple, PassAvatar, PassWater, PassAlpha:
		return true
	}
	return false
}
