package primmesh

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
)

// Mesh asset layout: magic "GVMH", version byte, then a zlib stream holding a face count
// byte and per face:
//
//	vertexCount u16 | indexCount u32 | posMin, posMax [3]f32 | uvMin, uvMax [2]f32 |
//	positions [vc][3]u16 | normals [vc][3]u16 | uvs [vc][2]u16 | indices [ic]u16
//
// Positions and texture coordinates are quantized over their domain, normals over -1..1.
// All integers are little endian.
var assetMagic = [4]byte{'G', 'V', 'M', 'H'}

const assetVersion = 1

// ErrBadAsset is returned for malformed mesh assets.
var ErrBadAsset = errors.New("primmesh: malformed mesh asset")

type faceHeader struct {
	VertexCount uint16
	IndexCount  uint32
	PosMin      [3]float32
	PosMax      [3]float32
	UVMin       [2]float32
	UVMax       [2]float32
}

func dequantize(q uint16, lo, hi float32) float32 {
	return lo + float32(q)/65535*(hi-lo)
}

func quantize(v, lo, hi float32) uint16 {
	if hi <= lo {
		return 0
	}
	t := (v - lo) / (hi - lo)
	t = mgl32.Clamp(t, 0, 1)
	return uint16(t*65535 + 0.5)
}

// DecodeAsset parses a mesh asset into faces.
func DecodeAsset(data []byte) (*Mesh, error) {
	if len(data) < 5 || !bytes.Equal(data[:4], assetMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrBadAsset)
	}
	if data[4] != assetVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadAsset, data[4])
	}
	zr, err := zlib.NewReader(bytes.NewReader(data[5:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAsset, err)
	}
	defer zr.Close()
	r := bufio.NewReader(zr)

	var faceCount uint8
	if err := binary.Read(r, binary.LittleEndian, &faceCount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAsset, err)
	}

	faces := make([]Face, 0, faceCount)
	for i := 0; i < int(faceCount); i++ {
		f, err := decodeFace(r, i)
		if err != nil {
			return nil, fmt.Errorf("%w: face %d: %v", ErrBadAsset, i, err)
		}
		faces = append(faces, f)
	}
	return finish(faces)
}

func decodeFace(r io.Reader, id int) (Face, error) {
	var hdr faceHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return Face{}, err
	}
	vc, ic := int(hdr.VertexCount), int(hdr.IndexCount)
	if ic%3 != 0 {
		return Face{}, fmt.Errorf("index count %d not a multiple of 3", ic)
	}

	pos := make([]uint16, vc*3)
	nrm := make([]uint16, vc*3)
	uvs := make([]uint16, vc*2)
	idx := make([]uint16, ic)
	for _, dst := range [][]uint16{pos, nrm, uvs, idx} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return Face{}, err
		}
	}
	for _, i := range idx {
		if int(i) >= vc {
			return Face{}, fmt.Errorf("index %d out of range (%d vertices)", i, vc)
		}
	}

	b := newFaceBuilder(id)
	for v := 0; v < vc; v++ {
		p := mgl32.Vec3{
			dequantize(pos[v*3], hdr.PosMin[0], hdr.PosMax[0]),
			dequantize(pos[v*3+1], hdr.PosMin[1], hdr.PosMax[1]),
			dequantize(pos[v*3+2], hdr.PosMin[2], hdr.PosMax[2]),
		}
		n := mgl32.Vec3{
			dequantize(nrm[v*3], -1, 1),
			dequantize(nrm[v*3+1], -1, 1),
			dequantize(nrm[v*3+2], -1, 1),
		}
		if n.Len() > 1e-6 {
			n = n.Normalize()
		}
		b.vertex(p, n,
			dequantize(uvs[v*2], hdr.UVMin[0], hdr.UVMax[0]),
			dequantize(uvs[v*2+1], hdr.UVMin[1], hdr.UVMax[1]),
		)
	}
	b.face.Indices = idx
	return b.face, nil
}

// EncodeAsset writes m in the mesh asset layout. Used by tooling and tests.
func EncodeAsset(m *Mesh) ([]byte, error) {
	if len(m.Faces) > 255 {
		return nil, fmt.Errorf("too many faces: %d", len(m.Faces))
	}
	var out bytes.Buffer
	out.Write(assetMagic[:])
	out.WriteByte(assetVersion)

	zw := zlib.NewWriter(&out)
	w := bufio.NewWriter(zw)
	if err := w.WriteByte(byte(len(m.Faces))); err != nil {
		return nil, err
	}
	for _, f := range m.Faces {
		if err := encodeFace(w, &f); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func encodeFace(w io.Writer, f *Face) error {
	vc := f.VertexCount()
	if vc >= maxVertices {
		return fmt.Errorf("face %d: %d vertices", f.ID, vc)
	}
	bounds := geom.EmptyAABB()
	uvMin := [2]float32{1e10, 1e10}
	uvMax := [2]float32{-1e10, -1e10}
	for v := 0; v < vc; v++ {
		o := v * gpu.VertexStride
		bounds.Extend(mgl32.Vec3{f.Vertices[o], f.Vertices[o+1], f.Vertices[o+2]})
		for k := 0; k < 2; k++ {
			uvMin[k] = min(uvMin[k], f.Vertices[o+6+k])
			uvMax[k] = max(uvMax[k], f.Vertices[o+6+k])
		}
	}
	hdr := faceHeader{
		VertexCount: uint16(vc),
		IndexCount:  uint32(len(f.Indices)),
		PosMin:      bounds.Min,
		PosMax:      bounds.Max,
		UVMin:       uvMin,
		UVMax:       uvMax,
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}

	pos := make([]uint16, 0, vc*3)
	nrm := make([]uint16, 0, vc*3)
	uvs := make([]uint16, 0, vc*2)
	for v := 0; v < vc; v++ {
		o := v * gpu.VertexStride
		for k := 0; k < 3; k++ {
			pos = append(pos, quantize(f.Vertices[o+k], hdr.PosMin[k], hdr.PosMax[k]))
			nrm = append(nrm, quantize(f.Vertices[o+3+k], -1, 1))
		}
		for k := 0; k < 2; k++ {
			uvs = append(uvs, quantize(f.Vertices[o+6+k], uvMin[k], uvMax[k]))
		}
	}
	for _, data := range [][]uint16{pos, nrm, uvs, f.Indices} {
		if err := binary.Write(w, binary.LittleEndian, data); err != nil {
			return err
		}
	}
	return nil
}
