package primmesh

import (
	"errors"
	"image"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/gpu"
)

func TestBoxFaces(t *testing.T) {
	m, err := Generate(Box(), 8)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(m.Faces) != 6 {
		t.Fatalf("box has %d faces, want 6", len(m.Faces))
	}
	for i, f := range m.Faces {
		if f.ID != i {
			t.Errorf("face %d has ID %d", i, f.ID)
		}
	}
	want := mgl32.Vec3{1, 1, 1}
	if got := m.Bounds.Size(); !got.ApproxEqual(want) {
		t.Errorf("box bounds size = %v, want %v", got, want)
	}
}

func TestGenerateShapes(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		faces int
	}{
		{"cylinder", Shape{Profile: ProfileCircle, Path: PathLine}, 3},
		{"prism", Shape{Profile: ProfileEquilateralTriangle, Path: PathLine}, 5},
		{"right prism", Shape{Profile: ProfileRightTriangle, Path: PathLine}, 5},
		{"half cylinder", Shape{Profile: ProfileHalfCircle, Path: PathLine}, 4},
		{"torus", Shape{Profile: ProfileCircle, Path: PathCircle, HoleSizeY: 0.25}, 1},
		{"tube", Shape{Profile: ProfileSquare, Path: PathCircle}, 4},
		{"twisted box", Shape{Profile: ProfileSquare, Path: PathLine, TwistEnd: math32.Pi / 2}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Generate(tt.shape, 12)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if len(m.Faces) != tt.faces {
				t.Errorf("faces = %d, want %d", len(m.Faces), tt.faces)
			}
			checkMesh(t, m)
		})
	}
}

func checkMesh(t *testing.T, m *Mesh) {
	t.Helper()
	for _, f := range m.Faces {
		if len(f.Indices)%3 != 0 {
			t.Errorf("face %d index count %d not a multiple of 3", f.ID, len(f.Indices))
		}
		vc := f.VertexCount()
		for _, i := range f.Indices {
			if int(i) >= vc {
				t.Fatalf("face %d index %d out of range %d", f.ID, i, vc)
			}
		}
		for v := 0; v < vc; v++ {
			p := mgl32.Vec3{f.Vertices[v*gpu.VertexStride], f.Vertices[v*gpu.VertexStride+1], f.Vertices[v*gpu.VertexStride+2]}
			// twisting can swing corners out to half the diagonal
			for k := 0; k < 3; k++ {
				if p[k] < -0.7072 || p[k] > 0.7072 {
					t.Fatalf("face %d vertex %v outside bounds", f.ID, p)
				}
			}
		}
	}
}

func TestBoxWindingOutward(t *testing.T) {
	m, err := Generate(Box(), 8)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range m.Faces {
		for tri := 0; tri < len(f.Indices); tri += 3 {
			p := func(i uint16) mgl32.Vec3 {
				o := int(i) * gpu.VertexStride
				return mgl32.Vec3{f.Vertices[o], f.Vertices[o+1], f.Vertices[o+2]}
			}
			a, b, c := p(f.Indices[tri]), p(f.Indices[tri+1]), p(f.Indices[tri+2])
			n := b.Sub(a).Cross(c.Sub(a))
			centroid := a.Add(b).Add(c).Mul(1.0 / 3)
			if n.Dot(centroid) <= 0 {
				t.Fatalf("face %d triangle %d winds inward", f.ID, tri/3)
			}
		}
	}
}

func TestTaperShrinksTop(t *testing.T) {
	m, err := Generate(Shape{Profile: ProfileSquare, Path: PathLine, TopScaleX: 0.5, TopScaleY: 0.5}, 8)
	if err != nil {
		t.Fatal(err)
	}
	top := m.Faces[0]
	if top.Bounds.Size()[0] > 0.51 {
		t.Errorf("top cap width = %v, want 0.5", top.Bounds.Size()[0])
	}
}

func TestGenerateUnsupported(t *testing.T) {
	s := Box()
	s.Hollow = 0.5
	if _, err := Generate(s, 8); !errors.Is(err, ErrUnsupported) {
		t.Errorf("hollow: error = %v, want ErrUnsupported", err)
	}
	s = Box()
	s.ProfileBegin = 0.25
	if _, err := Generate(s, 8); !errors.Is(err, ErrUnsupported) {
		t.Errorf("cut: error = %v, want ErrUnsupported", err)
	}
}

func sphereMap(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			u := float32(x) / float32(size-1)
			v := float32(y) / float32(size-1)
			theta, phi := u*2*math32.Pi, v*math32.Pi
			p := mgl32.Vec3{
				math32.Sin(phi) * math32.Cos(theta),
				math32.Sin(phi) * math32.Sin(theta),
				-math32.Cos(phi),
			}
			o := img.PixOffset(x, y)
			img.Pix[o] = uint8((p[0]*0.5 + 0.5) * 255)
			img.Pix[o+1] = uint8((p[1]*0.5 + 0.5) * 255)
			img.Pix[o+2] = uint8((p[2]*0.5 + 0.5) * 255)
			img.Pix[o+3] = 255
		}
	}
	return img
}

func TestSculptSphere(t *testing.T) {
	m, err := Sculpt(sphereMap(32), SculptSphere, 16)
	if err != nil {
		t.Fatalf("Sculpt() error = %v", err)
	}
	if len(m.Faces) != 1 {
		t.Fatalf("sculpt faces = %d, want 1", len(m.Faces))
	}
	checkMesh(t, m)
	if m.Faces[0].VertexCount() != 17*17 {
		t.Errorf("vertex count = %d, want %d", m.Faces[0].VertexCount(), 17*17)
	}
}

func TestSculptRejectsBadType(t *testing.T) {
	if _, err := Sculpt(sphereMap(8), 0, 8); !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
	if _, err := Sculpt(nil, SculptPlane, 8); err == nil {
		t.Error("expected error for nil map")
	}
}

func TestAssetRoundTrip(t *testing.T) {
	src, err := Generate(Shape{Profile: ProfileCircle, Path: PathLine}, 12)
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeAsset(src)
	if err != nil {
		t.Fatalf("EncodeAsset() error = %v", err)
	}
	got, err := DecodeAsset(data)
	if err != nil {
		t.Fatalf("DecodeAsset() error = %v", err)
	}
	if len(got.Faces) != len(src.Faces) {
		t.Fatalf("faces = %d, want %d", len(got.Faces), len(src.Faces))
	}
	for i := range src.Faces {
		a, b := src.Faces[i], got.Faces[i]
		if len(a.Indices) != len(b.Indices) || a.VertexCount() != b.VertexCount() {
			t.Fatalf("face %d shape mismatch", i)
		}
		for v := range a.Vertices {
			if math32.Abs(a.Vertices[v]-b.Vertices[v]) > 1e-3 {
				t.Fatalf("face %d value %d = %v, want %v", i, v, b.Vertices[v], a.Vertices[v])
			}
		}
	}
}

func TestDecodeAssetMalformed(t *testing.T) {
	tests := map[string][]byte{
		"empty":     nil,
		"bad magic": []byte("NOPE\x01"),
		"version":   append(assetMagic[:], 9),
		"truncated": append(assetMagic[:], assetVersion, 0x78, 0x9c),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeAsset(data); !errors.Is(err, ErrBadAsset) {
				t.Errorf("error = %v, want ErrBadAsset", err)
			}
		})
	}
}
