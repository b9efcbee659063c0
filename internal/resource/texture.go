package resource

import (
	"image"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/texture"
	"github.com/Faultbox/gridview/internal/logger"
)

// TextureInfo is one decoded texture shared by every face that references its content id.
// Alpha classification lives here, not on the faces, so all users agree on it.
type TextureInfo struct {
	ID        uuid.UUID
	State     State
	Handle    uint32
	Alpha     texture.Alpha
	Invisible bool
	Width     int
	Height    int

	refs int
}

// Usable reports whether the texture can be bound.
func (t *TextureInfo) Usable() bool {
	return t.State == Ready && t.Handle != 0
}

// TextureCache maps content ids to TextureInfo. Safe for concurrent use; GPU work only
// happens in Upload, Release and Clear.
type TextureCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*TextureInfo
	log     *zap.Logger
}

// NewTextureCache returns an empty cache.
func NewTextureCache() *TextureCache {
	return &TextureCache{
		entries: make(map[uuid.UUID]*TextureInfo),
		log:     logger.Named("textures"),
	}
}

// Acquire takes a reference on id, creating the entry if needed. Invisible-mask textures
// are Ready immediately and never fetched.
func (c *TextureCache) Acquire(id uuid.UUID) *TextureInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[id]
	if !ok {
		t = &TextureInfo{ID: id}
		if texture.IsInvisiprim(id) {
			t.Invisible = true
			t.State = Ready
		}
		c.entries[id] = t
	}
	t.refs++
	return t
}

// Get returns a snapshot of the entry for id.
func (c *TextureCache) Get(id uuid.UUID) (TextureInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[id]
	if !ok {
		return TextureInfo{}, false
	}
	return *t, true
}

// BeginFetch moves id from Unloaded to Loading and reports whether the caller should
// issue the fetch. It returns false while a fetch is in flight, after success, and
// forever after a failure.
func (c *TextureCache) BeginFetch(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[id]
	if !ok || t.State != Unloaded {
		return false
	}
	t.State = Loading
	return true
}

// CancelFetch returns a Loading entry to Unloaded so a later frame can retry admission.
// Used when the work queue rejected the request.
func (c *TextureCache) CancelFetch(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.entries[id]; ok && t.State == Loading {
		t.State = Unloaded
	}
}

// Fail marks id permanently failed. Safe from any goroutine.
func (c *TextureCache) Fail(id uuid.UUID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[id]
	if !ok {
		// Keep the failure even if every user went away meanwhile.
		t = &TextureInfo{ID: id}
		c.entries[id] = t
	}
	if t.State == Failed {
		return
	}
	t.State = Failed
	c.log.Debug("texture failed", zap.Stringer("id", id), zap.String("reason", reason))
}

// Upload creates the GPU texture for a decoded bitmap. Render thread only.
func (c *TextureCache) Upload(dev gpu.Device, id uuid.UUID, img *image.RGBA, alpha texture.Alpha) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[id]
	if !ok || t.refs == 0 {
		// Nobody wants it any more; drop the bitmap and allow a future fetch.
		if ok {
			delete(c.entries, id)
		}
		return
	}
	if t.State != Loading {
		return
	}
	handle, err := dev.CreateTexture(img, true)
	if err != nil {
		t.State = Failed
		c.log.Warn("texture upload failed", zap.Stringer("id", id), zap.Error(err))
		return
	}
	t.Handle = handle
	t.Alpha = alpha
	t.Width, t.Height = img.Rect.Dx(), img.Rect.Dy()
	t.State = Ready
}

// Release drops a reference. The GPU texture is deleted when the last reference goes.
// Failed entries are kept so the failure stays sticky. Render thread only.
func (c *TextureCache) Release(dev gpu.Device, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[id]
	if !ok || t.refs == 0 {
		return
	}
	t.refs--
	if t.refs > 0 {
		return
	}
	switch t.State {
	case Ready:
		if t.Handle != 0 {
			dev.DeleteTexture(t.Handle)
		}
		delete(c.entries, id)
	case Unloaded:
		delete(c.entries, id)
	}
}

// Len returns the number of entries, including failed ones.
func (c *TextureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear deletes every GPU texture and forgets all entries. Render thread only.
func (c *TextureCache) Clear(dev gpu.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.entries {
		if t.Handle != 0 {
			dev.DeleteTexture(t.Handle)
		}
		delete(c.entries, id)
	}
}
