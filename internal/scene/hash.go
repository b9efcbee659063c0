package scene

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"slices"
)

// primHashes are content hashes of the packed payloads of a full primitive update.
type primHashes struct {
	shape    uint64
	sculpt   uint64
	textures uint64
}

// packer appends little-endian fields for hashing.
type packer []byte

func (p *packer) u8(v uint8)    { *p = append(*p, v) }
func (p *packer) u32(v uint32)  { *p = binary.LittleEndian.AppendUint32(*p, v) }
func (p *packer) f32(v float32) { p.u32(math.Float32bits(v)) }
func (p *packer) raw(b []byte)  { *p = append(*p, b...) }
func (p *packer) flag(v bool) {
	if v {
		p.u8(1)
	} else {
		p.u8(0)
	}
}

func (p *packer) sum() uint64 {
	h := fnv.New64a()
	h.Write(*p)
	return h.Sum64()
}

func (p *packer) entry(e TextureEntry) {
	p.raw(e.TextureID[:])
	for _, c := range e.Color {
		p.f32(c)
	}
	p.f32(e.RepeatS)
	p.f32(e.RepeatT)
	p.f32(e.OffsetS)
	p.f32(e.OffsetT)
	p.f32(e.Rotation)
	p.flag(e.Fullbright)
	p.f32(e.Shiny)
	p.f32(e.Glow)
}

func hashPrim(u *PrimUpdate) primHashes {
	var h primHashes
	buf := make(packer, 0, 256)

	s := u.Shape
	buf.u8(uint8(u.Source))
	buf.u8(uint8(s.Profile))
	buf.u8(uint8(s.Path))
	for _, v := range []float32{s.TopScaleX, s.TopScaleY, s.TwistBegin, s.TwistEnd, s.HoleSizeY, s.ProfileBegin, s.ProfileEnd, s.Hollow} {
		buf.f32(v)
	}
	h.shape = buf.sum()

	buf = buf[:0]
	buf.raw(u.SculptID[:])
	buf.u8(uint8(u.SculptType))
	h.sculpt = buf.sum()

	buf = buf[:0]
	buf.entry(u.Textures.Default)
	keys := make([]int, 0, len(u.Textures.Faces))
	for k := range u.Textures.Faces {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		buf.u32(uint32(k))
		buf.entry(u.Textures.Faces[k])
	}
	if a := u.Anim; a != nil {
		buf.u8(uint8(a.Flags))
		buf.f32(a.Rate)
		buf.f32(a.Start)
		buf.f32(a.Length)
		buf.u32(uint32(a.SizeX))
		buf.u32(uint32(a.SizeY))
		buf.u32(uint32(int32(a.Face)))
	}
	h.textures = buf.sum()
	return h
}
