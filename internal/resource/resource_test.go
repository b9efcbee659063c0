package resource

import (
	"image"
	"testing"

	"github.com/google/uuid"

	"github.com/Faultbox/gridview/internal/engine/gpu/gputest"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
	"github.com/Faultbox/gridview/internal/engine/texture"
	"github.com/Faultbox/gridview/internal/logger"
)

func init() {
	logger.InitNop()
}

func TestTextureFetchCoalesced(t *testing.T) {
	c := NewTextureCache()
	id := uuid.New()
	c.Acquire(id)
	c.Acquire(id)

	if !c.BeginFetch(id) {
		t.Fatal("first BeginFetch should start a fetch")
	}
	if c.BeginFetch(id) {
		t.Error("second BeginFetch while loading should be coalesced")
	}
}

func TestTextureFailureSticky(t *testing.T) {
	dev := gputest.New()
	c := NewTextureCache()
	id := uuid.New()
	c.Acquire(id)
	c.BeginFetch(id)
	c.Fail(id, "not found")

	if c.BeginFetch(id) {
		t.Error("BeginFetch after failure should not start a fetch")
	}
	c.Release(dev, id)
	c.Acquire(id)
	if c.BeginFetch(id) {
		t.Error("failure should survive the last reference going away")
	}
	info, _ := c.Get(id)
	if info.State != Failed {
		t.Errorf("state = %v, want failed", info.State)
	}
}

func TestTextureUploadAndRelease(t *testing.T) {
	dev := gputest.New()
	c := NewTextureCache()
	id := uuid.New()
	c.Acquire(id)
	c.Acquire(id)
	c.BeginFetch(id)
	c.Upload(dev, id, image.NewRGBA(image.Rect(0, 0, 4, 4)), texture.Alpha{HasAlpha: true})

	info, _ := c.Get(id)
	if !info.Usable() || !info.Alpha.HasAlpha {
		t.Fatalf("texture not ready after upload: %+v", info)
	}
	c.Release(dev, id)
	if !dev.Live(info.Handle) {
		t.Error("texture deleted while still referenced")
	}
	c.Release(dev, id)
	if !dev.Released(info.Handle) {
		t.Error("texture not deleted after last reference")
	}
	if c.Len() != 0 {
		t.Errorf("cache has %d entries, want 0", c.Len())
	}
}

func TestUploadWithoutUsersDropped(t *testing.T) {
	dev := gputest.New()
	c := NewTextureCache()
	id := uuid.New()
	c.Acquire(id)
	c.BeginFetch(id)
	c.Release(dev, id)
	c.Upload(dev, id, image.NewRGBA(image.Rect(0, 0, 1, 1)), texture.Alpha{})

	if dev.LiveCount(gputest.KindTexture) != 0 {
		t.Error("texture uploaded for an entry nobody references")
	}
}

func TestInvisiprimNeverFetched(t *testing.T) {
	c := NewTextureCache()
	id := uuid.MustParse("e97cf410-8e61-7005-ec06-629eba4cd1fb")
	info := c.Acquire(id)
	if !info.Invisible || info.State != Ready {
		t.Errorf("invisiprim entry = %+v, want invisible and ready", *info)
	}
	if c.BeginFetch(id) {
		t.Error("invisiprim should never be fetched")
	}
}

func boxFace(t *testing.T) *FaceData {
	t.Helper()
	m, err := primmesh.Generate(primmesh.Box(), 8)
	if err != nil {
		t.Fatal(err)
	}
	return NewFaceData(&m.Faces[1])
}

func TestFaceUploadAndRelease(t *testing.T) {
	dev := gputest.New()
	f := boxFace(t)
	f.Upload(dev, true)

	if f.Buffers != Ready || f.Geometry.ClientSide {
		t.Fatalf("face not uploaded: state=%v clientSide=%v", f.Buffers, f.Geometry.ClientSide)
	}
	vbo, ibo, vao := f.Geometry.VertexBuffer, f.Geometry.IndexBuffer, f.Geometry.VertexArray
	f.Release(dev)
	for _, h := range []uint32{vbo, ibo, vao} {
		if !dev.Released(h) {
			t.Errorf("handle %d not released", h)
		}
	}
}

func TestFaceVBOFailureSticky(t *testing.T) {
	dev := gputest.New()
	dev.FailBufferUpload = true
	f := boxFace(t)
	f.Upload(dev, true)

	if !f.VBOFailed() || !f.Geometry.ClientSide {
		t.Fatalf("expected client-side fallback, state=%v", f.Buffers)
	}

	dev.FailBufferUpload = false
	f.Upload(dev, true)
	if f.Geometry.VertexBuffer != 0 || !f.VBOFailed() {
		t.Error("upload retried after permanent failure")
	}
	if dev.LiveCount(gputest.KindBuffer) != 0 {
		t.Errorf("%d buffers leaked", dev.LiveCount(gputest.KindBuffer))
	}
}

func TestFaceWithoutBufferSupport(t *testing.T) {
	dev := gputest.New()
	dev.Caps.VertexBuffers = false
	f := boxFace(t)
	f.Upload(dev, true)
	if !f.Geometry.ClientSide || f.Buffers != Unloaded {
		t.Errorf("state=%v clientSide=%v, want unloaded client-side", f.Buffers, f.Geometry.ClientSide)
	}
}
