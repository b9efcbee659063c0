// Package render draws the output of the visibility pass in a fixed order of passes:
// sky, terrain, opaque and mask faces, invisible masks into the stencil, avatars,
// occlusion boxes, water, blended faces back to front and finally the HUD.
package render

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/config"
	"github.com/Faultbox/gridview/internal/engine/camera"
	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/hud"
	"github.com/Faultbox/gridview/internal/engine/lighting"
	"github.com/Faultbox/gridview/internal/engine/terrain"
	"github.com/Faultbox/gridview/internal/engine/texture"
	"github.com/Faultbox/gridview/internal/logger"
	"github.com/Faultbox/gridview/internal/resource"
	"github.com/Faultbox/gridview/internal/scene"
	"github.com/Faultbox/gridview/internal/visibility"
)

// FrameStats describes what the last frame drew.
type FrameStats struct {
	Passes        []Pass
	Draws         [numPasses]int
	Skipped       int
	QueriesIssued int
	Tags          int
}

// faceDraw is one face queued for a pass.
type faceDraw struct {
	obj   *scene.Object
	face  *scene.Face
	model mgl32.Mat4
}

// Renderer owns the per-frame draw order. Render thread only.
type Renderer struct {
	dev      gpu.Device
	caps     gpu.Capabilities
	store    *scene.Store
	vis      *visibility.Pass
	textures *resource.TextureCache
	cfg      config.RenderConfig

	region  scene.Region
	terrain *terrainLayer
	sky     skyLayer
	water   waterLayer
	labels  *hud.Labels
	elapsed float32

	pass   Pass
	shader bool

	simple    []faceDraw
	invisible []faceDraw
	avatars   []faceDraw
	alpha     []faceDraw

	Stats    FrameStats
	disposed bool

	log *zap.Logger
}

// New creates a renderer drawing the objects vis selects each frame.
func New(dev gpu.Device, store *scene.Store, vis *visibility.Pass, textures *resource.TextureCache, cfg config.RenderConfig) *Renderer {
	r := &Renderer{
		dev:      dev,
		caps:     dev.Capabilities(),
		store:    store,
		vis:      vis,
		textures: textures,
		cfg:      cfg,
		region:   scene.DefaultRegion(),
		labels:   hud.NewLabels(),
		log:      logger.Named("render"),
	}
	r.terrain = newTerrainLayer(r.region.Size)
	dev.SetShaderPath(false)
	return r
}

// SetConfig replaces the render tunables for this renderer and its visibility pass.
func (r *Renderer) SetConfig(cfg config.RenderConfig) {
	r.cfg = cfg
	r.vis.SetConfig(cfg)
}

// Visibility returns the pass the renderer draws from.
func (r *Renderer) Visibility() *visibility.Pass { return r.vis }

// Terrain returns the region heightfield.
func (r *Renderer) Terrain() *terrain.Field { return r.terrain.field }

// Frame runs the visibility pass and draws one frame. dt is in seconds.
func (r *Renderer) Frame(cam *camera.Camera, dt float32) {
	if r.disposed {
		return
	}
	r.elapsed += dt
	r.Stats = FrameStats{Passes: r.Stats.Passes[:0]}

	r.syncEnvironment()
	r.vis.Run(cam, dt)
	r.collect()

	sun := r.region.SunDirection
	horizon, _ := lighting.SkyColors(sun)
	r.dev.Clear(horizon)
	r.dev.SetCamera(cam.Projection(), cam.View())
	r.dev.SetLight(lighting.SunLight(sun))

	if r.cfg.Sky {
		r.begin(PassSky)
		r.sky.draw(r.dev, cam)
		r.Stats.Draws[PassSky]++
	}
	r.begin(PassTerrain)
	r.Stats.Draws[PassTerrain] += r.terrain.draw(r.dev, cam, false)

	r.drawFaces(PassSimple, r.simple)
	if r.caps.Stencil {
		r.drawFaces(PassInvisible, r.invisible)
	}
	r.drawFaces(PassAvatar, r.avatars)
	r.drawOcclusion(cam)
	if r.cfg.Water {
		r.begin(PassWater)
		r.water.draw(r.dev, r.elapsed)
		r.Stats.Draws[PassWater]++
	}
	r.drawFaces(PassAlpha, r.alpha)
	if r.cfg.NameTags {
		r.drawHUD(cam)
	}
	r.end()
}

// syncEnvironment applies region changes and queued terrain patches.
func (r *Renderer) syncEnvironment() {
	region, changed := r.store.Region()
	if changed {
		if region.Size != r.region.Size {
			r.terrain.release(r.dev)
			r.terrain = newTerrainLayer(region.Size)
		}
		r.region = region
	}
	if patches := r.store.DrainTerrain(); len(patches) > 0 {
		r.terrain.apply(r.dev, patches, r.cfg.VertexBuffers, r.log)
	}
	if r.cfg.Sky {
		if err := r.sky.update(r.dev, r.region.SunDirection, r.cfg.VertexBuffers); err != nil {
			r.log.Warn("sky texture upload failed", zap.Error(err))
		}
	}
	if r.cfg.Water {
		r.water.update(r.dev, r.region, r.cfg.VertexBuffers)
	}
}

// collect sorts every face of the visible set into its pass.
func (r *Renderer) collect() {
	clear(r.simple)
	clear(r.invisible)
	clear(r.avatars)
	clear(r.alpha)
	r.simple = r.simple[:0]
	r.invisible = r.invisible[:0]
	r.avatars = r.avatars[:0]
	r.alpha = r.alpha[:0]

	for _, o := range r.vis.Visible {
		r.collectObject(o, &r.simple)
	}
	for _, o := range r.vis.Avatars {
		r.collectObject(o, &r.avatars)
	}

	// Both source lists are nearest first; blending wants the farthest face first.
	slices.SortStableFunc(r.alpha, func(a, b faceDraw) int {
		return cmp.Compare(b.obj.DistanceSquared, a.obj.DistanceSquared)
	})
}

func (r *Renderer) collectObject(o *scene.Object, opaque *[]faceDraw) {
	model := o.ModelMatrix()
	for _, f := range o.Faces() {
		if f.Data == nil {
			continue
		}
		fd := faceDraw{obj: o, face: f, model: model}
		if f.Invisible {
			if o.Kind == scene.KindPrimitive {
				r.invisible = append(r.invisible, fd)
			}
			continue
		}
		switch r.classify(f) {
		case ClassSkip:
			r.Stats.Skipped++
		case ClassOpaque:
			*opaque = append(*opaque, fd)
		case ClassAlpha:
			r.alpha = append(r.alpha, fd)
		}
	}
}

func (r *Renderer) classify(f *scene.Face) FaceClass {
	var alpha texture.Alpha
	if info, ok := r.textures.Get(f.Data.Texture); ok && info.Usable() {
		alpha = info.Alpha
	}
	return ClassifyFace(f.Entry.Color[3], alpha)
}

// begin switches to pass p. The shader path only changes here.
func (r *Renderer) begin(p Pass) {
	r.pass = p
	r.Stats.Passes = append(r.Stats.Passes, p)
	r.setShaderPath(r.cfg.Shaders && r.caps.Shaders && usesShaders(p))
	r.dev.SetState(passState(p, r.caps.Stencil))
}

func (r *Renderer) end() {
	r.pass = PassNone
	r.setShaderPath(false)
	r.dev.SetState(gpu.DefaultState())
}

func (r *Renderer) setShaderPath(on bool) {
	if on == r.shader {
		return
	}
	r.shader = on
	r.dev.SetShaderPath(on)
}

func (r *Renderer) drawFaces(p Pass, faces []faceDraw) {
	if len(faces) == 0 {
		return
	}
	r.begin(p)
	for _, fd := range faces {
		r.dev.Draw(r.faceCall(fd))
	}
	r.Stats.Draws[p] += len(faces)
}

func (r *Renderer) faceCall(fd faceDraw) gpu.DrawCall {
	f := fd.face
	dc := gpu.DrawCall{
		Model:      fd.model,
		Geometry:   &f.Data.Geometry,
		Color:      f.Entry.Color,
		Fullbright: f.Entry.Fullbright,
		Shiny:      f.Entry.Shiny,
		Glow:       f.Entry.Glow,
	}
	if info, ok := r.textures.Get(f.Data.Texture); ok && info.Usable() {
		dc.Texture = info.Handle
	}
	t := f.Entry.Transform()
	if f.Data.Anim != nil {
		t = f.Data.Anim.Apply(t)
	}
	dc.TexMatrix = t.Matrix()
	return dc
}

// drawOcclusion issues a query around the bounding box of every primitive considered
// this frame. The results are read by the next visibility pass.
func (r *Renderer) drawOcclusion(cam *camera.Camera) {
	if !r.cfg.OcclusionCulling || !r.caps.OcclusionQueries {
		return
	}
	begun := false
	test := func(o *scene.Object) {
		occ := &o.Occlusion
		if occ.Pending || len(o.Faces()) == 0 || o.HasInvisibleFaces() {
			return
		}
		box := occlusionBox(o.WorldBounds)
		if box.Contains(cam.RenderPosition) {
			occ.Tested = true
			occ.Visible = true
			return
		}
		if occ.Query == 0 {
			q, err := r.dev.CreateQuery()
			if err != nil {
				r.log.Warn("occlusion query unavailable", zap.Error(err))
				return
			}
			occ.Query = q
		}
		if !begun {
			r.begin(PassOcclusion)
			begun = true
		}
		r.dev.BeginQuery(occ.Query)
		r.dev.DrawBox([2]mgl32.Vec3{box.Min, box.Max}, [4]float32{1, 1, 1, 1})
		r.dev.EndQuery()
		occ.Pending = true
		r.Stats.QueriesIssued++
		r.Stats.Draws[PassOcclusion]++
	}
	for _, o := range r.vis.Visible {
		test(o)
	}
	for _, o := range r.vis.Occluded {
		test(o)
	}
}

// occlusionBox grows b slightly so a face lying on the box does not hide it from itself.
func occlusionBox(b geom.AABB) geom.AABB {
	pad := b.Size().Mul(0.01).Add(mgl32.Vec3{0.05, 0.05, 0.05})
	return geom.AABB{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

func (r *Renderer) drawHUD(cam *camera.Camera) {
	var tags []hud.Tag
	for _, o := range r.vis.Avatars {
		if o.Avatar.Name == "" {
			continue
		}
		p := o.RenderPosition
		tags = append(tags, hud.Tag{
			Text:   o.Avatar.Name,
			Anchor: mgl32.Vec3{p.X(), p.Y(), o.WorldBounds.Max.Z() + 0.3},
		})
	}
	r.begin(PassHUD)
	r.Stats.Tags = r.labels.Draw(r.dev, tags, cam.View(), cam.Projection())
	r.Stats.Draws[PassHUD] += r.Stats.Tags
}

// Dispose frees the renderer's own GPU resources. Scene objects are released by
// the visibility pass. Further calls to Frame and Pick do nothing.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.terrain.release(r.dev)
	r.sky.release(r.dev)
	r.water.release(r.dev)
	r.labels.Release(r.dev)
}
