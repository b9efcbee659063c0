package viewer

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/Faultbox/gridview/internal/config"
	"github.com/Faultbox/gridview/internal/engine/camera"
	"github.com/Faultbox/gridview/internal/engine/gpu/gputest"
	"github.com/Faultbox/gridview/internal/engine/picking"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
	"github.com/Faultbox/gridview/internal/feed"
	"github.com/Faultbox/gridview/internal/logger"
	"github.com/Faultbox/gridview/internal/scene"
	"github.com/Faultbox/gridview/internal/streaming"
)

func init() {
	logger.InitNop()
}

type stubStream struct {
	explode bool
	closed  int
}

func (s *stubStream) SubmitMesh(streaming.MeshRequest) bool { return true }
func (s *stubStream) SubmitTexture(uuid.UUID) bool          { return true }
func (s *stubStream) PollMesh() (streaming.MeshResult, bool) {
	if s.explode {
		panic("mesh result channel corrupted")
	}
	return streaming.MeshResult{}, false
}
func (s *stubStream) PollTexture() (streaming.TextureResult, bool) {
	return streaming.TextureResult{}, false
}
func (s *stubStream) Close() error {
	s.closed++
	return nil
}

type intentRecorder struct {
	mu      sync.Mutex
	intents []feed.Intent
}

func (r *intentRecorder) SendIntent(i feed.Intent) {
	r.mu.Lock()
	r.intents = append(r.intents, i)
	r.mu.Unlock()
}

func setup(t *testing.T) (*Viewer, *gputest.Recorder, *stubStream, *camera.Camera) {
	t.Helper()
	dev := gputest.New()
	stream := &stubStream{}
	v := New(dev, config.Default().Render, stream, nil)
	cam := camera.New()
	cam.LookAt(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{10, 0, 1})
	cam.Snap()
	return v, dev, stream, cam
}

func boxUpdate(id scene.LocalID) scene.PrimUpdate {
	return scene.PrimUpdate{
		LocalID:  id,
		FullID:   uuid.New(),
		Position: mgl32.Vec3{10, 0, 1},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Shape:    primmesh.Box(),
		Textures: scene.TextureEntries{Default: scene.DefaultTextureEntry()},
	}
}

func TestFrameDrawsFeedObjects(t *testing.T) {
	v, dev, _, cam := setup(t)
	v.Sink().OnObjectUpdated(boxUpdate(7))

	if !v.Frame(cam, 1.0/60) {
		t.Fatal("Frame() drew nothing")
	}
	if got := len(v.renderer.Visibility().Visible); got != 1 {
		t.Errorf("visible = %d, want 1", got)
	}
	if len(dev.Draws) == 0 {
		t.Error("no draw calls recorded")
	}
}

func TestSetConfigAppliesNextFrame(t *testing.T) {
	v, _, _, cam := setup(t)
	cfg := config.Default().Render
	cfg.DrawDistance = 42

	v.SetConfig(cfg)
	if v.vis.Config().DrawDistance == 42 {
		t.Fatal("config applied before the frame")
	}
	v.Frame(cam, 1.0/60)
	if got := v.vis.Config().DrawDistance; got != 42 {
		t.Errorf("DrawDistance = %v, want 42", got)
	}
}

func TestFramePanicDisablesRendering(t *testing.T) {
	v, dev, stream, cam := setup(t)
	stream.explode = true

	if v.Frame(cam, 1.0/60) {
		t.Error("Frame() reported success after a panic")
	}
	if v.Enabled() {
		t.Error("view still enabled")
	}

	stream.explode = false
	dev.Reset()
	if v.Frame(cam, 1.0/60) {
		t.Error("disabled view drew a frame")
	}
	if len(dev.Draws) != 0 {
		t.Errorf("%d draws after disable", len(dev.Draws))
	}
}

func TestClickSendsTouchIntent(t *testing.T) {
	v, dev, _, cam := setup(t)
	rec := &intentRecorder{}
	v.SetIntentSink(rec)

	u := boxUpdate(3)
	v.Sink().OnObjectUpdated(u)
	v.Frame(cam, 1.0/60)

	o, ok := v.Store().GetByLocalID(3)
	if !ok || len(o.Prim.Faces) == 0 {
		t.Fatal("box not meshed")
	}
	face := o.Prim.Faces[0]
	dev.Pixel = picking.Encode(face.Data.PickID, picking.CategoryPrim)
	dev.Depth = 0.5

	in, ok := v.Click(cam, 320, 240)
	if !ok {
		t.Fatal("Click() found nothing")
	}
	if in.Kind != feed.IntentTouch || in.Object != 3 || in.FullID != u.FullID || in.Face != face.Index {
		t.Errorf("intent = %+v", in)
	}
	if len(rec.intents) != 1 {
		t.Fatalf("sent %d intents, want 1", len(rec.intents))
	}

	dev.Pixel = picking.Encode(1, picking.CategoryTerrain)
	if _, ok := v.Click(cam, 320, 240); ok {
		t.Error("Click() on terrain produced an intent")
	}
	if len(rec.intents) != 1 {
		t.Error("terrain click reached the intent sink")
	}
}

func TestDispose(t *testing.T) {
	v, dev, stream, cam := setup(t)
	v.Sink().OnObjectUpdated(boxUpdate(1))
	v.Frame(cam, 1.0/60)
	if dev.LiveCount(gputest.KindBuffer) == 0 {
		t.Fatal("expected live buffers before Dispose")
	}

	v.Dispose()
	v.Dispose()

	if stream.closed != 1 {
		t.Errorf("stream closed %d times, want 1", stream.closed)
	}
	if n := dev.LiveCount(gputest.KindBuffer); n != 0 {
		t.Errorf("%d buffers live after Dispose", n)
	}
	if n := dev.LiveCount(gputest.KindTexture); n != 0 {
		t.Errorf("%d textures live after Dispose", n)
	}
	if v.Enabled() || v.Frame(cam, 1.0/60) {
		t.Error("disposed view still renders")
	}
	if _, ok := v.Click(cam, 320, 240); ok {
		t.Error("disposed view answered a click")
	}

	v.Sink().OnObjectUpdated(boxUpdate(2))
	v.Store().ApplyPending()
	if _, ok := v.Store().GetByLocalID(2); ok {
		t.Error("sink wrote into a disposed view")
	}
}
