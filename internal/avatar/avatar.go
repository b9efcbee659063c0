// Package avatar provides avatar body meshes and attachment points.
//
// Skeletal animation is out of scope; the built-in provider assembles a static stand-in
// body from boxes so avatars have bounds, bake-textured faces and attachment frames.
package avatar

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
)

// Slot indexes the baked texture array of an avatar.
type Slot int

const (
	SlotHead Slot = iota
	SlotUpper
	SlotLower
	SlotEyes
	SlotSkirt
	SlotHair

	NumSlots
)

var slotNames = [NumSlots]string{"head", "upper", "lower", "eyes", "skirt", "hair"}

func (s Slot) String() string {
	if s < 0 || s >= NumSlots {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// ParseSlot returns the slot with the given name.
func ParseSlot(name string) (Slot, bool) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), true
		}
	}
	return 0, false
}

// Attachment point ids used by the stand-in body.
const (
	AttachChest     uint8 = 1
	AttachSkull     uint8 = 2
	AttachLeftHand  uint8 = 5
	AttachRightHand uint8 = 6
	AttachLeftFoot  uint8 = 7
	AttachRightFoot uint8 = 8
	AttachSpine     uint8 = 9
	AttachPelvis    uint8 = 10
	AttachMouth     uint8 = 11
	AttachNose      uint8 = 17
	AttachStomach   uint8 = 28
	AttachHUDCenter uint8 = 31
	firstHUDAttach  uint8 = 31
	lastHUDAttach   uint8 = 38
)

// IsHUD reports whether the point is a screen-space HUD attachment, which is never drawn
// in the world.
func IsHUD(point uint8) bool {
	return point >= firstHUDAttach && point <= lastHUDAttach
}

// Frame is an attachment frame relative to the avatar origin.
type Frame struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Part is one piece of the body, textured with the bake of its slot.
type Part struct {
	Slot Slot
	Face primmesh.Face
}

// Body is the mesh set of one avatar in avatar-local space, origin at the pelvis.
type Body struct {
	Parts       []Part
	Bounds      geom.AABB
	attachments map[uint8]Frame
}

// Attachment returns the frame for point. Unknown points fall back to the pelvis.
func (b *Body) Attachment(point uint8) Frame {
	if f, ok := b.attachments[point]; ok {
		return f
	}
	return Frame{Rotation: mgl32.QuatIdent()}
}

// Provider builds avatar bodies. Implementations must be safe for concurrent use.
type Provider interface {
	Body(size mgl32.Vec3) (*Body, error)
}

// SimpleProvider builds box bodies proportioned to the avatar size.
type SimpleProvider struct{}

// DefaultSize is used when the feed reports no size.
var DefaultSize = mgl32.Vec3{0.45, 0.6, 1.9}

func (SimpleProvider) Body(size mgl32.Vec3) (*Body, error) {
	if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
		size = DefaultSize
	}
	w, d, h := size[0], size[1], size[2]

	b := &Body{Bounds: geom.EmptyAABB(), attachments: make(map[uint8]Frame)}
	add := func(slot Slot, center, extent mgl32.Vec3) error {
		f, err := boxFace(len(b.Parts), center, extent)
		if err != nil {
			return err
		}
		b.Parts = append(b.Parts, Part{Slot: slot, Face: f})
		b.Bounds = b.Bounds.Union(f.Bounds)
		return nil
	}

	headZ := h/2 - h*0.07
	parts := []struct {
		slot   Slot
		center mgl32.Vec3
		extent mgl32.Vec3
	}{
		{SlotLower, mgl32.Vec3{0, 0, -h / 4}, mgl32.Vec3{w * 0.8, d * 0.6, h / 2}},
		{SlotUpper, mgl32.Vec3{0, 0, h * 0.12}, mgl32.Vec3{w, d * 0.7, h * 0.36}},
		{SlotHead, mgl32.Vec3{0, 0, headZ}, mgl32.Vec3{w * 0.45, d * 0.45, h * 0.14}},
		{SlotEyes, mgl32.Vec3{d * 0.23, 0, headZ + h*0.02}, mgl32.Vec3{0.01, w * 0.3, h * 0.02}},
		{SlotHair, mgl32.Vec3{0, 0, headZ + h*0.08}, mgl32.Vec3{w * 0.5, d * 0.5, h * 0.03}},
	}
	for _, p := range parts {
		if err := add(p.slot, p.center, p.extent); err != nil {
			return nil, fmt.Errorf("building %s: %w", p.slot, err)
		}
	}

	ident := mgl32.QuatIdent()
	set := func(point uint8, pos mgl32.Vec3) {
		b.attachments[point] = Frame{Position: pos, Rotation: ident}
	}
	set(AttachChest, mgl32.Vec3{d * 0.35, 0, h * 0.18})
	set(AttachSkull, mgl32.Vec3{0, 0, headZ + h*0.07})
	set(AttachLeftHand, mgl32.Vec3{0, w * 0.6, -h * 0.05})
	set(AttachRightHand, mgl32.Vec3{0, -w * 0.6, -h * 0.05})
	set(AttachLeftFoot, mgl32.Vec3{0, w * 0.2, -h / 2})
	set(AttachRightFoot, mgl32.Vec3{0, -w * 0.2, -h / 2})
	set(AttachSpine, mgl32.Vec3{-d * 0.35, 0, h * 0.12})
	set(AttachPelvis, mgl32.Vec3{})
	set(AttachMouth, mgl32.Vec3{d * 0.23, 0, headZ - h*0.03})
	set(AttachNose, mgl32.Vec3{d * 0.25, 0, headZ})
	set(AttachStomach, mgl32.Vec3{d * 0.35, 0, 0})
	return b, nil
}

// boxFace merges the faces of a unit box into a single face placed at center with extent.
func boxFace(id int, center, extent mgl32.Vec3) (primmesh.Face, error) {
	m, err := primmesh.Generate(primmesh.Box(), 4)
	if err != nil {
		return primmesh.Face{}, err
	}
	out := primmesh.Face{ID: id, Bounds: geom.EmptyAABB()}
	for _, f := range m.Faces {
		base := uint16(len(out.Vertices) / gpu.VertexStride)
		for i := 0; i < len(f.Vertices); i += gpu.VertexStride {
			v := f.Vertices[i : i+gpu.VertexStride]
			p := mgl32.Vec3{
				center[0] + v[0]*extent[0],
				center[1] + v[1]*extent[1],
				center[2] + v[2]*extent[2],
			}
			out.Vertices = append(out.Vertices, p[0], p[1], p[2], v[3], v[4], v[5], v[6], v[7])
			out.Bounds.Extend(p)
		}
		for _, idx := range f.Indices {
			out.Indices = append(out.Indices, base+idx)
		}
	}
	return out, nil
}
