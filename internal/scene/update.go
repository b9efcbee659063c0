package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/Faultbox/gridview/internal/avatar"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
)

// PrimUpdate is a primitive notification as delivered by the feed.
type PrimUpdate struct {
	LocalID  LocalID
	FullID   uuid.UUID
	ParentID LocalID
	// Terse updates carry only the transform and motion fields.
	Terse bool

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Motion   Motion

	AttachmentPoint uint8
	Source          MeshSource
	Shape           primmesh.Shape
	// SculptID is the sculpt map texture, or the mesh asset when Source is SourceMesh.
	SculptID   uuid.UUID
	SculptType primmesh.SculptType
	Textures   TextureEntries
	Anim       *AnimParams
}

// AvatarUpdate is an avatar notification as delivered by the feed.
type AvatarUpdate struct {
	LocalID  LocalID
	FullID   uuid.UUID
	ParentID LocalID
	Terse    bool

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Motion   Motion

	Name  string
	Size  mgl32.Vec3
	Bakes [avatar.NumSlots]uuid.UUID
}

// pending is a parked update waiting for the render thread.
type pending struct {
	prim   *PrimUpdate
	hashes primHashes
	avatar *AvatarUpdate
}

// mergePrim folds u into the parked update. A terse update only overwrites the transform
// part of whatever is parked, so a parked full update keeps its shape and textures.
func (p *pending) mergePrim(u PrimUpdate, h primHashes) {
	if p.prim == nil || !u.Terse {
		p.prim, p.hashes = &u, h
		return
	}
	merged := *p.prim
	merged.Position = u.Position
	merged.Rotation = u.Rotation
	merged.Motion = u.Motion
	p.prim = &merged
}

func (p *pending) mergeAvatar(u AvatarUpdate) {
	if p.avatar == nil || !u.Terse {
		p.avatar = &u
		return
	}
	merged := *p.avatar
	merged.Position = u.Position
	merged.Rotation = u.Rotation
	merged.Motion = u.Motion
	p.avatar = &merged
}

func normalizeQuat(q mgl32.Quat) mgl32.Quat {
	if q.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}
