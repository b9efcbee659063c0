package glbackend

import (
	"strconv"
	"strings"

	"github.com/go-gl/gl/v3.2-compatibility/gl"

	"github.com/Faultbox/gridview/internal/engine/gpu"
)

// parseVersion extracts major and minor from a GL_VERSION string such as
// "4.6.0 NVIDIA 535.54" or "OpenGL ES 3.2 Mesa".
func parseVersion(s string) (major, minor int) {
	for _, field := range strings.Fields(s) {
		parts := strings.SplitN(field, ".", 3)
		if len(parts) < 2 {
			continue
		}
		maj, err1 := strconv.Atoi(parts[0])
		mnr, err2 := strconv.Atoi(parts[1])
		if err1 == nil && err2 == nil {
			return maj, mnr
		}
	}
	return 0, 0
}

func atLeast(major, minor, wantMajor, wantMinor int) bool {
	return major > wantMajor || (major == wantMajor && minor >= wantMinor)
}

func hasExtension(extensions, name string) bool {
	for _, ext := range strings.Fields(extensions) {
		if ext == name {
			return true
		}
	}
	return false
}

// capabilitiesFrom derives feature support from the strings the driver reports.
func capabilitiesFrom(version, extensions string, stencilBits, maxTexture int32) gpu.Capabilities {
	major, minor := parseVersion(version)
	return gpu.Capabilities{
		VertexBuffers:    atLeast(major, minor, 1, 5) || hasExtension(extensions, "GL_ARB_vertex_buffer_object"),
		VertexArrays:     atLeast(major, minor, 3, 0) || hasExtension(extensions, "GL_ARB_vertex_array_object"),
		Shaders:          atLeast(major, minor, 2, 0),
		OcclusionQueries: atLeast(major, minor, 1, 5) || hasExtension(extensions, "GL_ARB_occlusion_query"),
		Stencil:          stencilBits > 0,
		Framebuffers:     atLeast(major, minor, 3, 0) || hasExtension(extensions, "GL_ARB_framebuffer_object"),
		MaxTextureSize:   maxTexture,
		Version:          version,
	}
}

func detectCapabilities() gpu.Capabilities {
	version := gl.GoStr(gl.GetString(gl.VERSION))
	extensions := gl.GoStr(gl.GetString(gl.EXTENSIONS))

	var stencilBits, maxTexture int32
	gl.GetIntegerv(gl.STENCIL_BITS, &stencilBits)
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTexture)

	caps := capabilitiesFrom(version, extensions, stencilBits, maxTexture)
	caps.Vendor = gl.GoStr(gl.GetString(gl.VENDOR))
	caps.Renderer = gl.GoStr(gl.GetString(gl.RENDERER))
	return caps
}
