// Package viewer ties the scene store, the streaming workers, the visibility pass and the
// renderer into one view the host drives a frame at a time.
package viewer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/avatar"
	"github.com/Faultbox/gridview/internal/config"
	"github.com/Faultbox/gridview/internal/engine/camera"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/picking"
	"github.com/Faultbox/gridview/internal/feed"
	"github.com/Faultbox/gridview/internal/logger"
	"github.com/Faultbox/gridview/internal/profiling"
	"github.com/Faultbox/gridview/internal/render"
	"github.com/Faultbox/gridview/internal/resource"
	"github.com/Faultbox/gridview/internal/scene"
	"github.com/Faultbox/gridview/internal/visibility"
)

// Stream is the background work source a view drives and shuts down.
type Stream interface {
	visibility.Streamer
	Close() error
}

// Viewer is one rendered view of the scene. Frame, Pick, Click and Dispose must be called
// on the render thread; Sink and SetConfig are safe from any goroutine.
type Viewer struct {
	dev      gpu.Device
	store    *scene.Store
	textures *resource.TextureCache
	stream   Stream
	vis      *visibility.Pass
	renderer *render.Renderer
	sink     *feed.StoreSink
	intents  feed.IntentSink

	mu         sync.Mutex
	pendingCfg *config.RenderConfig

	enabled  bool
	disposed bool

	log *zap.Logger
}

// New creates a view drawing into dev. bodies may be nil for the built-in avatar body.
func New(dev gpu.Device, cfg config.RenderConfig, stream Stream, bodies avatar.Provider) *Viewer {
	if bodies == nil {
		bodies = avatar.SimpleProvider{}
	}
	store := scene.NewStore()
	textures := resource.NewTextureCache()
	vis := visibility.New(store, textures, dev, stream, bodies, cfg)

	v := &Viewer{
		dev:      dev,
		store:    store,
		textures: textures,
		stream:   stream,
		vis:      vis,
		renderer: render.New(dev, store, vis, textures, cfg),
		sink:     feed.NewStoreSink(store),
		enabled:  true,
		log:      logger.Named("viewer"),
	}
	caps := dev.Capabilities()
	v.log.Info("viewer created",
		zap.String("renderer", caps.Renderer),
		zap.Bool("shaders", caps.Shaders),
		zap.Bool("vbo", caps.VertexBuffers),
		zap.Bool("occlusion", caps.OcclusionQueries),
		zap.Bool("stencil", caps.Stencil))
	return v
}

// Sink returns the feed sink that writes into this view's scene.
func (v *Viewer) Sink() feed.Sink { return v.sink }

// Store returns the scene mirror.
func (v *Viewer) Store() *scene.Store { return v.store }

// Renderer returns the view's renderer.
func (v *Viewer) Renderer() *render.Renderer { return v.renderer }

// SetIntentSink sets where Click sends intents.
func (v *Viewer) SetIntentSink(s feed.IntentSink) { v.intents = s }

// SetConfig queues new render tunables. They take effect at the start of the next frame.
func (v *Viewer) SetConfig(cfg config.RenderConfig) {
	v.mu.Lock()
	v.pendingCfg = &cfg
	v.mu.Unlock()
}

func (v *Viewer) applyConfig() {
	v.mu.Lock()
	cfg := v.pendingCfg
	v.pendingCfg = nil
	v.mu.Unlock()
	if cfg != nil {
		v.renderer.SetConfig(*cfg)
		v.log.Info("render settings updated",
			zap.Float32("draw_distance", cfg.DrawDistance),
			zap.Float32("lod_threshold", cfg.LODThreshold),
			zap.Bool("occlusion", cfg.OcclusionCulling))
	}
}

// Enabled reports whether the view still renders.
func (v *Viewer) Enabled() bool { return v.enabled && !v.disposed }

// Frame draws one frame. dt is in seconds. A panic inside the frame disables rendering for
// this view; the host keeps running. Frame reports whether anything was drawn.
func (v *Viewer) Frame(cam *camera.Camera, dt float32) (drawn bool) {
	if !v.Enabled() {
		return false
	}
	defer profiling.Track("viewer.Frame")()
	defer func() {
		if r := recover(); r != nil {
			v.enabled = false
			v.log.Error("frame failed, rendering disabled", zap.Any("panic", r), zap.Stack("stack"))
			drawn = false
		}
	}()

	v.applyConfig()
	v.renderer.Frame(cam, dt)
	return true
}

// Pick returns what is under window pixel (x, y).
func (v *Viewer) Pick(cam *camera.Camera, x, y int32) (render.PickResult, bool) {
	if !v.Enabled() {
		return render.PickResult{}, false
	}
	defer profiling.Track("viewer.Pick")()
	return v.renderer.Pick(cam, x, y)
}

// Click picks at (x, y) and sends a touch intent for the object found. Clicks on terrain
// or empty space send nothing.
func (v *Viewer) Click(cam *camera.Camera, x, y int32) (feed.Intent, bool) {
	return v.Interact(cam, x, y, feed.IntentTouch)
}

// Interact is Click with an explicit intent kind.
func (v *Viewer) Interact(cam *camera.Camera, x, y int32, kind feed.IntentKind) (feed.Intent, bool) {
	res, ok := v.Pick(cam, x, y)
	if !ok || res.Category == picking.CategoryTerrain {
		return feed.Intent{}, false
	}
	in := feed.Intent{
		Kind:     kind,
		Object:   res.Object,
		FullID:   res.FullID,
		Face:     res.Face,
		Position: res.Position,
	}
	if v.intents != nil {
		v.intents.SendIntent(in)
	}
	v.log.Debug("intent", zap.String("kind", string(kind)), zap.Uint32("object", uint32(res.Object)), zap.Int("face", res.Face))
	return in, true
}

// Dispose tears the view down: the feed sink stops writing, every object and texture is
// released, and the streaming workers are joined. Safe to call more than once.
func (v *Viewer) Dispose() {
	if v.disposed {
		return
	}
	v.disposed = true
	v.sink.Close()

	defer func() {
		if r := recover(); r != nil {
			v.log.Error("dispose failed", zap.Any("panic", r))
		}
	}()
	v.store.Clear()
	v.vis.Reset()
	v.renderer.Dispose()
	v.textures.Clear(v.dev)
	if v.stream != nil {
		if err := v.stream.Close(); err != nil {
			v.log.Warn("streaming shutdown", zap.Error(err))
		}
	}
	v.log.Info("viewer disposed")
}
