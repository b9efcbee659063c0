// Package shaders provides embedded GLSL sources for the attribute draw path.
package shaders

import _ "embed"

// FaceVertexShader transforms prim, avatar and terrain faces.
//
//go:embed face.vert
var FaceVertexShader string

// FaceFragmentShader shades faces with texture, tint, sun lighting, shine and glow.
//
//go:embed face.frag
var FaceFragmentShader string
