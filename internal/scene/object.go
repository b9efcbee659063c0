// Package scene is the client-side mirror of the streamed world: primitives, avatars,
// terrain patches and region settings, keyed by the simulator's local ids.
//
// Upserts and removals arrive from the feed goroutine; everything else (interpolation,
// transform resolution, GPU resources) belongs to the render thread.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/Faultbox/gridview/internal/avatar"
	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
	"github.com/Faultbox/gridview/internal/engine/texanim"
	"github.com/Faultbox/gridview/internal/resource"
)

// LocalID is the region-scoped object id. Zero means "no object".
type LocalID uint32

// Kind tags the variant carried by an Object.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindAvatar
)

func (k Kind) String() string {
	if k == KindAvatar {
		return "avatar"
	}
	return "primitive"
}

// State is the object lifecycle.
type State uint8

const (
	// Uninitialized objects have raw transforms but no interpolation state yet.
	Uninitialized State = iota
	Initialized
)

// MeshState tracks a primitive's geometry.
type MeshState uint8

const (
	Unmeshed MeshState = iota
	Meshing
	Meshed
)

// MeshSource says where a primitive's geometry comes from.
type MeshSource uint8

const (
	SourceParametric MeshSource = iota
	SourceSculpt
	SourceMesh
)

// Motion is the network-supplied kinematic state.
type Motion struct {
	Velocity        mgl32.Vec3
	Acceleration    mgl32.Vec3
	AngularVelocity mgl32.Vec3
}

// TextureEntry is the appearance of one face.
type TextureEntry struct {
	TextureID        uuid.UUID
	Color            [4]float32
	RepeatS, RepeatT float32
	OffsetS, OffsetT float32
	Rotation         float32
	Fullbright       bool
	Shiny            float32
	Glow             float32
}

// DefaultTextureEntry is an untextured white face.
func DefaultTextureEntry() TextureEntry {
	return TextureEntry{Color: [4]float32{1, 1, 1, 1}, RepeatS: 1, RepeatT: 1}
}

// Transform returns the static texture placement of the entry.
func (e TextureEntry) Transform() texanim.Transform {
	t := texanim.Transform{
		OffsetS:  e.OffsetS,
		OffsetT:  e.OffsetT,
		ScaleS:   e.RepeatS,
		ScaleT:   e.RepeatT,
		Rotation: e.Rotation,
	}
	if t.ScaleS == 0 {
		t.ScaleS = 1
	}
	if t.ScaleT == 0 {
		t.ScaleT = 1
	}
	return t
}

// TextureEntries holds a default entry plus per-face overrides.
type TextureEntries struct {
	Default TextureEntry
	Faces   map[int]TextureEntry
}

// Face returns the entry for face i.
func (t TextureEntries) Face(i int) TextureEntry {
	if e, ok := t.Faces[i]; ok {
		return e
	}
	return t.Default
}

// AnimParams is a texture animation and the face it applies to; Face < 0 means all faces.
type AnimParams struct {
	texanim.Params
	Face int
}

// Applies reports whether the animation runs on face i.
func (a *AnimParams) Applies(i int) bool {
	return a != nil && a.Enabled() && (a.Face < 0 || a.Face == i)
}

// Face is one drawable surface of a primitive or avatar.
type Face struct {
	Index     int
	Data      *resource.FaceData
	Entry     TextureEntry
	Slot      avatar.Slot
	Invisible bool
}

// Occlusion carries the hardware occlusion query of an object between frames.
type Occlusion struct {
	Query   uint32
	Tested  bool // a query result has been read at least once
	Pending bool // a query was issued and its result is not read yet
	Visible bool // last read result
}

// Forget drops any result so the object counts as never queried. The query object is kept.
func (occ *Occlusion) Forget() {
	occ.Tested = false
	occ.Pending = false
	occ.Visible = false
}

// Prim is the primitive variant.
type Prim struct {
	Source          MeshSource
	Shape           primmesh.Shape
	SculptID        uuid.UUID
	SculptType      primmesh.SculptType
	Textures        TextureEntries
	Anim            *AnimParams
	AttachmentPoint uint8

	Mesh MeshState
	// MeshGen increases whenever the geometry becomes stale; asynchronous results carrying an
	// older generation are discarded.
	MeshGen uint64
	Faces   []*Face

	hashes primHashes
}

// Avatar is the avatar variant.
type Avatar struct {
	Name  string
	Size  mgl32.Vec3
	Bakes [avatar.NumSlots]uuid.UUID

	Body   *avatar.Body
	Faces  []*Face
	Meshed bool
	// BakesDirty is set when bake ids changed after the faces were built.
	BakesDirty bool
}

// Object is one scene entity. All fields except the raw update data are owned by the
// render thread.
type Object struct {
	Kind     Kind
	LocalID  LocalID
	FullID   uuid.UUID
	ParentID LocalID
	State    State

	// Authoritative transform, relative to the parent.
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Motion   Motion

	InterpolatedPosition mgl32.Vec3
	InterpolatedRotation mgl32.Quat

	// World transform; valid only when resolved in the current frame.
	RenderPosition  mgl32.Vec3
	RenderRotation  mgl32.Quat
	DistanceSquared float32

	LocalBounds geom.AABB
	WorldBounds geom.AABB
	Radius      float32

	Occlusion Occlusion

	Prim   *Prim
	Avatar *Avatar

	snap        bool
	resolvedGen uint64
	resolvedOK  bool
	resolving   bool
	resolveSeq  int
}

// Initialize seeds the interpolation state from the authoritative transform.
func (o *Object) Initialize() {
	o.InterpolatedPosition = o.Position
	o.InterpolatedRotation = o.Rotation
	o.snap = false
	o.State = Initialized
}

// IsRoot reports whether the object has no parent.
func (o *Object) IsRoot() bool { return o.ParentID == 0 }

// Faces returns the drawable faces of either variant.
func (o *Object) Faces() []*Face {
	switch {
	case o.Prim != nil:
		return o.Prim.Faces
	case o.Avatar != nil:
		return o.Avatar.Faces
	}
	return nil
}

// HasInvisibleFaces reports whether any face uses an invisible-mask texture.
func (o *Object) HasInvisibleFaces() bool {
	for _, f := range o.Faces() {
		if f.Invisible {
			return true
		}
	}
	return false
}

// ModelMatrix returns the world matrix from the resolved render transform.
func (o *Object) ModelMatrix() mgl32.Mat4 {
	m := mgl32.Translate3D(o.RenderPosition[0], o.RenderPosition[1], o.RenderPosition[2])
	m = m.Mul4(o.RenderRotation.Normalize().Mat4())
	s := o.Scale
	if o.Kind == KindAvatar || s == (mgl32.Vec3{}) {
		return m
	}
	return m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// UpdateBounds recomputes the world bounds and radius from the render transform.
func (o *Object) UpdateBounds() {
	scale := o.Scale
	if o.Kind == KindAvatar || scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}
	o.WorldBounds = o.LocalBounds.Transform(o.RenderPosition, o.RenderRotation, scale)
	o.Radius = geom.ScaledRadius(o.LocalBounds, scale)
}

// SetFaces replaces the face list, releasing the previous faces first.
func (o *Object) SetFaces(dev gpu.Device, textures *resource.TextureCache, faces []*Face) {
	o.ReleaseFaces(dev, textures)
	switch {
	case o.Prim != nil:
		o.Prim.Faces = faces
	case o.Avatar != nil:
		o.Avatar.Faces = faces
	}
}

// ReleaseFaces deletes the GPU buffers of every face and drops their texture references.
func (o *Object) ReleaseFaces(dev gpu.Device, textures *resource.TextureCache) {
	for _, f := range o.Faces() {
		if f.Data == nil {
			continue
		}
		f.Data.Release(dev)
		if f.Data.Texture != uuid.Nil && textures != nil {
			textures.Release(dev, f.Data.Texture)
		}
	}
	switch {
	case o.Prim != nil:
		o.Prim.Faces = nil
	case o.Avatar != nil:
		o.Avatar.Faces = nil
	}
}

// Dispose releases every GPU resource held by the object. Render thread only.
func (o *Object) Dispose(dev gpu.Device, textures *resource.TextureCache) {
	o.ReleaseFaces(dev, textures)
	if o.Occlusion.Query != 0 {
		dev.DeleteQuery(o.Occlusion.Query)
	}
	o.Occlusion = Occlusion{}
	if o.Prim != nil {
		o.Prim.Mesh = Unmeshed
	}
	if o.Avatar != nil {
		o.Avatar.Meshed = false
	}
}

// unitBox is the placeholder bounds of a primitive before it is meshed.
func unitBox() geom.AABB {
	return geom.NewAABB(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5})
}

func avatarBox(size mgl32.Vec3) geom.AABB {
	if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
		size = avatar.DefaultSize
	}
	half := size.Mul(0.5)
	return geom.NewAABB(half.Mul(-1), half)
}
