// Package visibility runs the once-per-frame scene pass: it applies queued scene changes,
// interpolates and resolves transforms, culls, gates level of detail, admits mesh and
// texture work, and partitions what is left into visible and occluded lists.
package visibility

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/avatar"
	"github.com/Faultbox/gridview/internal/config"
	"github.com/Faultbox/gridview/internal/engine/camera"
	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/picking"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
	"github.com/Faultbox/gridview/internal/engine/texanim"
	"github.com/Faultbox/gridview/internal/logger"
	"github.com/Faultbox/gridview/internal/resource"
	"github.com/Faultbox/gridview/internal/scene"
	"github.com/Faultbox/gridview/internal/streaming"
)

// Streamer is the part of the streaming pipeline the pass drives.
type Streamer interface {
	SubmitMesh(req streaming.MeshRequest) bool
	SubmitTexture(id uuid.UUID) bool
	PollMesh() (streaming.MeshResult, bool)
	PollTexture() (streaming.TextureResult, bool)
}

// Stats counts what the last pass did.
type Stats struct {
	Prims          int
	Avatars        int
	Visible        int
	VisibleAvatars int
	Occluded       int
	FrustumCulled  int
	LODSkipped     int
	Unresolved     int
	Meshed         int
	MeshQueued     int
	TexturesQueued int
	Disposed       int
	Evicted        int
	Updates        int
}

// PickTarget identifies the face behind a pick id.
type PickTarget struct {
	Object scene.LocalID
	Face   int
}

// Pass holds the per-frame outputs and the state carried between frames.
// Everything here runs on the render thread.
type Pass struct {
	store    *scene.Store
	textures *resource.TextureCache
	dev      gpu.Device
	stream   Streamer
	bodies   avatar.Provider
	cfg      config.RenderConfig
	caps     gpu.Capabilities

	// Visible primitives, nearest first.
	Visible []*scene.Object
	// Occluded primitives whose bounding boxes are re-tested this frame.
	Occluded []*scene.Object
	// Avatars that passed culling, nearest first.
	Avatars []*scene.Object
	Stats   Stats

	prims, avs []*scene.Object
	children   []*scene.Object

	meshBudget    int
	textureBudget int

	picks    map[uint32]PickTarget
	nextPick uint32

	log *zap.Logger
}

// New creates a pass over store.
func New(store *scene.Store, textures *resource.TextureCache, dev gpu.Device, stream Streamer, bodies avatar.Provider, cfg config.RenderConfig) *Pass {
	return &Pass{
		store:    store,
		textures: textures,
		dev:      dev,
		stream:   stream,
		bodies:   bodies,
		cfg:      cfg,
		caps:     dev.Capabilities(),
		picks:    make(map[uint32]PickTarget),
		log:      logger.Named("visibility"),
	}
}

// SetConfig replaces the render tunables from the next pass on.
func (p *Pass) SetConfig(cfg config.RenderConfig) { p.cfg = cfg }

// Config returns the active render tunables.
func (p *Pass) Config() config.RenderConfig { return p.cfg }

// LookupPick maps a pick id back to its object and face.
func (p *Pass) LookupPick(id uint32) (PickTarget, bool) {
	t, ok := p.picks[id]
	return t, ok
}

// Run executes one pass for the given camera. dt is the frame time in seconds.
func (p *Pass) Run(cam *camera.Camera, dt float32) {
	p.reset()
	p.drain()

	cam.Update()
	p.store.BeginFrame()
	p.prims, p.avs = p.store.Snapshot(p.prims[:0], p.avs[:0])
	p.Stats.Prims, p.Stats.Avatars = len(p.prims), len(p.avs)
	// Every object steps before any of them resolves: a child's render transform
	// reads its parent's, whatever order the snapshot comes in.
	for _, o := range p.prims {
		if o.State == scene.Uninitialized {
			o.Initialize()
		}
		o.Step(dt)
	}
	for _, o := range p.avs {
		if o.State == scene.Uninitialized {
			o.Initialize()
		}
		o.Step(dt)
	}

	// Root primitives.
	p.children = p.children[:0]
	for _, o := range p.prims {
		if !o.IsRoot() {
			p.children = append(p.children, o)
			continue
		}
		p.considerPrim(o, cam, dt)
	}

	// Avatars, then anything parented to a primitive or an avatar.
	for _, o := range p.avs {
		p.considerAvatar(o, cam)
	}
	for _, o := range p.children {
		p.considerPrim(o, cam, dt)
	}

	byDistance := func(a, b *scene.Object) int {
		switch {
		case a.DistanceSquared < b.DistanceSquared:
			return -1
		case a.DistanceSquared > b.DistanceSquared:
			return 1
		}
		return cmp.Compare(a.LocalID, b.LocalID)
	}
	slices.SortFunc(p.Visible, byDistance)
	slices.SortFunc(p.Avatars, byDistance)
	p.Stats.Visible = len(p.Visible)
	p.Stats.VisibleAvatars = len(p.Avatars)
	p.Stats.Occluded = len(p.Occluded)
}

func (p *Pass) reset() {
	clear(p.Visible)
	clear(p.Occluded)
	clear(p.Avatars)
	p.Visible = p.Visible[:0]
	p.Occluded = p.Occluded[:0]
	p.Avatars = p.Avatars[:0]
	p.Stats = Stats{}
	p.meshBudget = p.cfg.MeshBudget
	p.textureBudget = p.cfg.TextureBudget
}

// drain applies everything that arrived since the last frame: disposals, parked updates,
// finished meshes and decoded textures.
func (p *Pass) drain() {
	for _, o := range p.store.DrainRemoved() {
		p.forgetPicks(o)
		o.Dispose(p.dev, p.textures)
		p.Stats.Disposed++
	}
	p.Stats.Updates = p.store.ApplyPending()

	for {
		res, ok := p.stream.PollMesh()
		if !ok {
			break
		}
		p.applyMesh(res)
	}
	for {
		res, ok := p.stream.PollTexture()
		if !ok {
			break
		}
		if res.Err != nil {
			p.textures.Fail(res.ID, res.Err.Error())
			continue
		}
		p.textures.Upload(p.dev, res.ID, res.Image, res.Alpha)
	}
}

func (p *Pass) applyMesh(res streaming.MeshResult) {
	o, ok := p.store.GetByLocalID(res.ObjectID)
	if !ok || o.Prim == nil || o.Prim.MeshGen != res.Gen || o.Prim.Mesh != scene.Meshing {
		return
	}
	if res.Err != nil {
		p.store.Evict(res.ObjectID, res.Err)
		p.Stats.Evicted++
		return
	}
	p.buildPrimFaces(o, res.Mesh)
}

// cull resolves o and applies the frustum, draw distance and LOD tests. It reports
// whether o should be considered further this frame.
func (p *Pass) cull(o *scene.Object, cam *camera.Camera) bool {
	if !p.store.Resolve(o) {
		p.Stats.Unresolved++
		return false
	}
	o.DistanceSquared = cam.DistanceSquared(o.RenderPosition)

	if dd := p.cfg.DrawDistance; dd > 0 {
		reach := dd + o.Radius
		if o.DistanceSquared > reach*reach {
			p.Stats.FrustumCulled++
			o.Occlusion.Forget()
			return false
		}
	}
	if !cam.Frustum().IntersectsAABB(o.WorldBounds) {
		p.Stats.FrustumCulled++
		o.Occlusion.Forget()
		return false
	}
	if geom.LODFactor(o.Radius, o.DistanceSquared) < p.cfg.LODThreshold {
		p.Stats.LODSkipped++
		o.Occlusion.Forget()
		return false
	}
	return true
}

func (p *Pass) considerPrim(o *scene.Object, cam *camera.Camera, dt float32) {
	if !p.cull(o, cam) {
		return
	}
	prim := o.Prim
	if prim.Mesh == scene.Unmeshed && p.meshBudget > 0 {
		p.meshBudget--
		p.mesh(o)
	}
	for _, f := range prim.Faces {
		if f.Data.Anim != nil {
			f.Data.Anim.Advance(float64(dt))
		}
		p.requestTexture(f.Data.Texture)
	}

	if p.occluded(o) {
		p.Occluded = append(p.Occluded, o)
		return
	}
	p.Visible = append(p.Visible, o)
}

// occluded decides from last frame's query result whether o can be skipped. Objects that
// were never tested, have no faces yet, or carry invisible-mask faces are never occluded.
func (p *Pass) occluded(o *scene.Object) bool {
	occ := &o.Occlusion
	if occ.Pending {
		if samples, ready := p.dev.QueryResult(occ.Query); ready {
			occ.Pending = false
			occ.Tested = true
			occ.Visible = samples > 0
		}
	}
	if !p.cfg.OcclusionCulling || !p.caps.OcclusionQueries {
		return false
	}
	if !occ.Tested || len(o.Faces()) == 0 || o.HasInvisibleFaces() {
		return false
	}
	return !occ.Visible
}

// mesh builds parametric boxes and prisms in place and hands everything else to the
// workers. Generation failure evicts the object.
func (p *Pass) mesh(o *scene.Object) {
	prim := o.Prim
	detail := Detail(geom.LODFactor(o.Radius, o.DistanceSquared), prim.Shape)

	if prim.Source == scene.SourceParametric && prim.Shape.IsSimple() {
		m, err := primmesh.Generate(prim.Shape, detail)
		if err != nil {
			p.store.Evict(o.LocalID, err)
			p.Stats.Evicted++
			return
		}
		p.buildPrimFaces(o, m)
		return
	}

	req := streaming.MeshRequest{
		ObjectID:   o.LocalID,
		Gen:        prim.MeshGen,
		Source:     prim.Source,
		Shape:      prim.Shape,
		AssetID:    prim.SculptID,
		SculptType: prim.SculptType,
		Detail:     detail,
	}
	if p.stream.SubmitMesh(req) {
		prim.Mesh = scene.Meshing
		p.Stats.MeshQueued++
	}
}

// Detail picks the tessellation for a primitive from its LOD factor.
func Detail(lod float32, shape primmesh.Shape) int {
	switch {
	case shape.Profile == primmesh.ProfileSquare && shape.Path == primmesh.PathLine:
		return 4
	case lod > 0.1:
		return 24
	case lod > 0.01:
		return 12
	}
	return 8
}

func (p *Pass) buildPrimFaces(o *scene.Object, m *primmesh.Mesh) {
	prim := o.Prim
	p.forgetPicks(o)
	faces := make([]*scene.Face, 0, len(m.Faces))
	for i := range m.Faces {
		src := &m.Faces[i]
		fd := resource.NewFaceData(src)
		fd.Upload(p.dev, p.cfg.VertexBuffers)
		if prim.Anim.Applies(src.ID) {
			fd.Anim = texanim.New(prim.Anim.Params)
		}
		face := &scene.Face{Index: src.ID, Data: fd, Entry: prim.Textures.Face(src.ID)}
		p.bindTexture(face, face.Entry.TextureID)
		p.assignPick(o, face)
		faces = append(faces, face)
	}
	o.SetFaces(p.dev, p.textures, faces)
	o.LocalBounds = m.Bounds
	o.UpdateBounds()
	prim.Mesh = scene.Meshed
	p.Stats.Meshed++
}

func (p *Pass) considerAvatar(o *scene.Object, cam *camera.Camera) {
	if !p.cull(o, cam) {
		return
	}
	a := o.Avatar
	if !a.Meshed {
		p.buildAvatarFaces(o)
	} else if a.BakesDirty {
		for _, f := range a.Faces {
			if f.Data.Texture != uuid.Nil {
				p.textures.Release(p.dev, f.Data.Texture)
				f.Data.Texture = uuid.Nil
			}
			p.bindTexture(f, a.Bakes[f.Slot])
		}
	}
	a.BakesDirty = false
	for _, f := range a.Faces {
		p.requestTexture(f.Data.Texture)
	}
	p.Avatars = append(p.Avatars, o)
}

func (p *Pass) buildAvatarFaces(o *scene.Object) {
	a := o.Avatar
	body, err := p.bodies.Body(a.Size)
	if err != nil {
		p.log.Warn("avatar body failed", zap.Uint32("id", uint32(o.LocalID)), zap.Error(err))
		return
	}
	p.forgetPicks(o)
	faces := make([]*scene.Face, 0, len(body.Parts))
	for i := range body.Parts {
		part := &body.Parts[i]
		fd := resource.NewFaceData(&part.Face)
		fd.Upload(p.dev, p.cfg.VertexBuffers)
		face := &scene.Face{Index: i, Data: fd, Slot: part.Slot, Entry: scene.DefaultTextureEntry()}
		p.bindTexture(face, a.Bakes[part.Slot])
		p.assignPick(o, face)
		faces = append(faces, face)
	}
	o.SetFaces(p.dev, p.textures, faces)
	a.Body = body
	a.Meshed = true
	o.LocalBounds = body.Bounds
	o.UpdateBounds()
}

func (p *Pass) bindTexture(f *scene.Face, id uuid.UUID) {
	if id == uuid.Nil {
		f.Invisible = false
		return
	}
	info := p.textures.Acquire(id)
	f.Data.Texture = id
	f.Invisible = info.Invisible
}

// requestTexture admits a fetch for id under the per-frame budget. At most one fetch per
// id is ever in flight and failed ids are never requested again.
func (p *Pass) requestTexture(id uuid.UUID) {
	if id == uuid.Nil || p.textureBudget <= 0 {
		return
	}
	if !p.textures.BeginFetch(id) {
		return
	}
	if !p.stream.SubmitTexture(id) {
		p.textures.CancelFetch(id)
		p.textureBudget = 0
		return
	}
	p.textureBudget--
	p.Stats.TexturesQueued++
}

func (p *Pass) assignPick(o *scene.Object, f *scene.Face) {
	p.nextPick++
	if p.nextPick > picking.MaxID {
		p.nextPick = 1
	}
	f.Data.PickID = p.nextPick
	p.picks[p.nextPick] = PickTarget{Object: o.LocalID, Face: f.Index}
}

func (p *Pass) forgetPicks(o *scene.Object) {
	for _, f := range o.Faces() {
		if f.Data != nil && f.Data.PickID != 0 {
			delete(p.picks, f.Data.PickID)
		}
	}
}

// Reset disposes every object still in the store and forgets pick ids. Used on teardown
// after the store has been cleared.
func (p *Pass) Reset() {
	for _, o := range p.store.DrainRemoved() {
		o.Dispose(p.dev, p.textures)
	}
	clear(p.picks)
	p.reset()
}
