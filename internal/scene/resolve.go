package scene

import "github.com/Faultbox/gridview/internal/avatar"

// BeginFrame starts a new resolution generation. Render transforms resolved in earlier
// frames are stale from here on.
func (s *Store) BeginFrame() uint64 {
	s.gen++
	s.seq = 0
	return s.gen
}

// Generation returns the current resolution generation.
func (s *Store) Generation() uint64 { return s.gen }

// Resolved reports whether o has a valid render transform for the current frame.
func (s *Store) Resolved(o *Object) bool {
	return o.resolvedGen == s.gen && o.resolvedOK
}

// ResolveSeq returns the order in which o was resolved this frame, starting at 1.
// Zero means it was not resolved.
func (o *Object) ResolveSeq() int { return o.resolveSeq }

// Resolve computes o's render transform, resolving its parent chain first. Each object is
// resolved at most once per generation. It returns false when a parent is missing or the
// chain loops; such objects are not drawn this frame.
func (s *Store) Resolve(o *Object) bool {
	if o.resolvedGen == s.gen {
		return o.resolvedOK
	}
	if o.resolving {
		return false
	}
	o.resolving = true
	ok := s.resolve(o)
	o.resolving = false

	o.resolvedGen = s.gen
	o.resolvedOK = ok
	if ok {
		s.seq++
		o.resolveSeq = s.seq
		o.UpdateBounds()
	} else {
		o.resolveSeq = 0
	}
	return ok
}

func (s *Store) resolve(o *Object) bool {
	if o.IsRoot() {
		o.RenderPosition = o.InterpolatedPosition
		o.RenderRotation = o.InterpolatedRotation
		return true
	}
	parent, ok := s.GetByLocalID(o.ParentID)
	if !ok || parent.State != Initialized || !s.Resolve(parent) {
		return false
	}

	pos, rot := o.InterpolatedPosition, o.InterpolatedRotation
	if parent.Avatar != nil && o.Prim != nil && o.Prim.AttachmentPoint != 0 {
		if avatar.IsHUD(o.Prim.AttachmentPoint) {
			return false
		}
		if body := parent.Avatar.Body; body != nil {
			f := body.Attachment(o.Prim.AttachmentPoint)
			pos = f.Position.Add(f.Rotation.Rotate(pos))
			rot = f.Rotation.Mul(rot)
		}
	}
	o.RenderPosition = parent.RenderPosition.Add(parent.RenderRotation.Rotate(pos))
	o.RenderRotation = parent.RenderRotation.Mul(rot).Normalize()
	return true
}
