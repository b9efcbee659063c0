package water

import (
	"testing"

	"github.com/Faultbox/gridview/internal/engine/gpu"
)

func TestBuildPlane(t *testing.T) {
	face := BuildPlane(256, 20, 10)
	if face.VertexCount() != 4 {
		t.Fatalf("VertexCount() = %d, want 4", face.VertexCount())
	}
	if len(face.Indices) != 6 {
		t.Errorf("len(Indices) = %d, want 6", len(face.Indices))
	}
	for v := 0; v < 4; v++ {
		if z := face.Vertices[v*gpu.VertexStride+2]; z != 20 {
			t.Errorf("vertex %d z = %v, want 20", v, z)
		}
		if nz := face.Vertices[v*gpu.VertexStride+5]; nz != 1 {
			t.Errorf("vertex %d normal z = %v, want 1", v, nz)
		}
	}
	if face.Bounds.Min.X() != -10 || face.Bounds.Max.X() != 266 {
		t.Errorf("bounds X = %v..%v, want -10..266", face.Bounds.Min.X(), face.Bounds.Max.X())
	}
}

func TestScrollWraps(t *testing.T) {
	m := Scroll(10.25, 1)
	if got := m.Col(3).X(); got != 0.25 {
		t.Errorf("offset = %v, want 0.25", got)
	}
}
