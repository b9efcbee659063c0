package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/logger"
)

// Store owns every scene object. The id maps, the pending updates, the disposal queue and
// the terrain/region state are guarded by mu; object fields are only touched by the
// render thread once the object is published.
type Store struct {
	mu       sync.RWMutex
	prims    map[LocalID]*Object
	avatars  map[LocalID]*Object
	byFullID map[uuid.UUID]*Object
	pending  map[LocalID]*pending
	removed  []*Object

	patches     []TerrainPatch
	region      Region
	regionDirty bool

	// Render thread only.
	gen uint64
	seq int

	log *zap.Logger
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		prims:    make(map[LocalID]*Object),
		avatars:  make(map[LocalID]*Object),
		byFullID: make(map[uuid.UUID]*Object),
		pending:  make(map[LocalID]*pending),
		region:   DefaultRegion(),
		log:      logger.Named("scene"),
	}
}

// UpsertPrimitive creates the primitive or parks the update for the render thread.
// It reports whether a new object was created. Safe from any goroutine.
func (s *Store) UpsertPrimitive(u PrimUpdate) bool {
	if u.LocalID == 0 {
		return false
	}
	u.Rotation = normalizeQuat(u.Rotation)
	var h primHashes
	if !u.Terse {
		h = hashPrim(&u)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.avatars[u.LocalID]; ok {
		s.log.Warn("primitive update for avatar id", zap.Uint32("id", uint32(u.LocalID)))
		return false
	}
	if _, ok := s.prims[u.LocalID]; ok {
		s.park(u.LocalID).mergePrim(u, h)
		return false
	}
	if u.Terse {
		// Nothing to merge into; the full update will follow.
		return false
	}

	o := newPrimObject(&u, h)
	s.prims[u.LocalID] = o
	if u.FullID != uuid.Nil {
		s.byFullID[u.FullID] = o
	}
	return true
}

// UpsertAvatar creates the avatar or parks the update. Safe from any goroutine.
func (s *Store) UpsertAvatar(u AvatarUpdate) bool {
	if u.LocalID == 0 {
		return false
	}
	u.Rotation = normalizeQuat(u.Rotation)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prims[u.LocalID]; ok {
		s.log.Warn("avatar update for primitive id", zap.Uint32("id", uint32(u.LocalID)))
		return false
	}
	if _, ok := s.avatars[u.LocalID]; ok {
		s.park(u.LocalID).mergeAvatar(u)
		return false
	}
	if u.Terse {
		return false
	}

	o := newAvatarObject(&u)
	s.avatars[u.LocalID] = o
	if u.FullID != uuid.Nil {
		s.byFullID[u.FullID] = o
	}
	return true
}

func (s *Store) park(id LocalID) *pending {
	p, ok := s.pending[id]
	if !ok {
		p = &pending{}
		s.pending[id] = p
	}
	return p
}

func newPrimObject(u *PrimUpdate, h primHashes) *Object {
	o := &Object{
		Kind:        KindPrimitive,
		LocalID:     u.LocalID,
		FullID:      u.FullID,
		ParentID:    u.ParentID,
		Position:    u.Position,
		Rotation:    u.Rotation,
		Scale:       u.Scale,
		Motion:      u.Motion,
		LocalBounds: unitBox(),
		Prim:        &Prim{},
	}
	o.Prim.set(u, h)
	return o
}

func newAvatarObject(u *AvatarUpdate) *Object {
	return &Object{
		Kind:        KindAvatar,
		LocalID:     u.LocalID,
		FullID:      u.FullID,
		ParentID:    u.ParentID,
		Position:    u.Position,
		Rotation:    u.Rotation,
		Scale:       mgl32.Vec3{1, 1, 1},
		Motion:      u.Motion,
		LocalBounds: avatarBox(u.Size),
		Avatar: &Avatar{
			Name:  u.Name,
			Size:  u.Size,
			Bakes: u.Bakes,
		},
	}
}

func (p *Prim) set(u *PrimUpdate, h primHashes) {
	p.Source = u.Source
	p.Shape = u.Shape
	p.SculptID = u.SculptID
	p.SculptType = u.SculptType
	p.Textures = u.Textures
	p.Anim = u.Anim
	p.AttachmentPoint = u.AttachmentPoint
	p.hashes = h
}

// ApplyPending applies parked updates to their objects. Render thread only.
// Shape, sculpt or texture content changes send the primitive back to Unmeshed.
func (s *Store) ApplyPending() int {
	type job struct {
		o *Object
		p *pending
	}
	s.mu.Lock()
	jobs := make([]job, 0, len(s.pending))
	for id, p := range s.pending {
		if o, ok := s.prims[id]; ok {
			jobs = append(jobs, job{o, p})
		} else if o, ok := s.avatars[id]; ok {
			jobs = append(jobs, job{o, p})
		}
	}
	clear(s.pending)
	s.mu.Unlock()

	for _, j := range jobs {
		switch {
		case j.p.prim != nil && j.o.Prim != nil:
			applyPrim(j.o, j.p.prim, j.p.hashes)
		case j.p.avatar != nil && j.o.Avatar != nil:
			applyAvatar(j.o, j.p.avatar)
		}
	}
	return len(jobs)
}

func applyTransform(o *Object, pos mgl32.Vec3, rot mgl32.Quat, m Motion) {
	o.Position = pos
	o.Rotation = rot
	o.Motion = m
	if m.Velocity != (mgl32.Vec3{}) {
		// Extrapolation restarts from the reported position.
		o.InterpolatedPosition = pos
	}
}

func setParent(o *Object, parent LocalID) {
	if parent != o.ParentID {
		o.ParentID = parent
		o.snap = true
	}
}

func applyPrim(o *Object, u *PrimUpdate, h primHashes) {
	applyTransform(o, u.Position, u.Rotation, u.Motion)
	if u.Terse {
		return
	}
	setParent(o, u.ParentID)
	o.Scale = u.Scale
	p := o.Prim
	changed := h != p.hashes
	p.set(u, h)
	if changed {
		p.Mesh = Unmeshed
		p.MeshGen++
	}
}

func applyAvatar(o *Object, u *AvatarUpdate) {
	applyTransform(o, u.Position, u.Rotation, u.Motion)
	if u.Terse {
		return
	}
	setParent(o, u.ParentID)
	a := o.Avatar
	a.Name = u.Name
	if u.Size != a.Size {
		a.Size = u.Size
		a.Meshed = false
		o.LocalBounds = avatarBox(u.Size)
	}
	if u.Bakes != a.Bakes {
		a.Bakes = u.Bakes
		a.BakesDirty = true
	}
}

// Remove unlinks the object and queues it for disposal. Safe from any goroutine.
func (s *Store) Remove(id LocalID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *Store) removeLocked(id LocalID) bool {
	o, ok := s.prims[id]
	if ok {
		delete(s.prims, id)
	} else if o, ok = s.avatars[id]; ok {
		delete(s.avatars, id)
	} else {
		return false
	}
	if o.FullID != uuid.Nil && s.byFullID[o.FullID] == o {
		delete(s.byFullID, o.FullID)
	}
	delete(s.pending, id)
	s.removed = append(s.removed, o)
	return true
}

// Evict removes an object the render thread could not build.
func (s *Store) Evict(id LocalID, err error) {
	if s.Remove(id) {
		s.log.Warn("object evicted", zap.Uint32("id", uint32(id)), zap.Error(err))
	}
}

// DrainRemoved returns and forgets the disposal queue.
func (s *Store) DrainRemoved() []*Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.removed
	s.removed = nil
	return out
}

// Clear queues every object for disposal and forgets terrain and pending updates.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.prims {
		s.removed = append(s.removed, o)
	}
	for _, o := range s.avatars {
		s.removed = append(s.removed, o)
	}
	clear(s.prims)
	clear(s.avatars)
	clear(s.byFullID)
	clear(s.pending)
	s.patches = nil
	s.region = DefaultRegion()
	s.regionDirty = true
}

// GetByLocalID looks an object up in either map.
func (s *Store) GetByLocalID(id LocalID) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.prims[id]; ok {
		return o, true
	}
	o, ok := s.avatars[id]
	return o, ok
}

// GetByFullID looks an object up by its global id.
func (s *Store) GetByFullID(id uuid.UUID) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byFullID[id]
	return o, ok
}

// Children returns the primitives whose parent is id.
func (s *Store) Children(id LocalID) []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Object
	for _, o := range s.prims {
		if o.ParentID == id {
			out = append(out, o)
		}
	}
	return out
}

// Snapshot appends the current primitives and avatars to the given slices.
func (s *Store) Snapshot(prims, avatars []*Object) ([]*Object, []*Object) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.prims {
		prims = append(prims, o)
	}
	for _, o := range s.avatars {
		avatars = append(avatars, o)
	}
	return prims, avatars
}

// Counts returns the number of primitives and avatars.
func (s *Store) Counts() (prims, avatars int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prims), len(s.avatars)
}
