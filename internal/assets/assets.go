// Package assets fetches texture, mesh and animation assets by content id.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/logger"
)

// Status is the outcome of a texture request.
type Status uint8

const (
	StatusOK Status = iota
	StatusNotFound
	StatusTimeout
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	case StatusTimeout:
		return "timeout"
	case StatusAborted:
		return "aborted"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// TextureCallback receives a texture fetch result. It may run on any goroutine.
type TextureCallback func(status Status, data []byte)

// Callback receives a mesh or animation fetch result. It may run on any goroutine.
type Callback func(ok bool, data []byte)

// Service is the asset transport consumed by the streaming pipeline.
type Service interface {
	RequestTexture(id uuid.UUID, cb TextureCallback)
	RequestMesh(id uuid.UUID, cb Callback)
	RequestAnimation(id uuid.UUID, cb Callback)
}

// Kind is an asset category; each has its own subdirectory and extensions.
type Kind uint8

const (
	KindTexture Kind = iota
	KindMesh
	KindAnimation
)

var kindDirs = map[Kind]string{
	KindTexture:   "textures",
	KindMesh:      "meshes",
	KindAnimation: "animations",
}

var kindExts = map[Kind][]string{
	KindTexture:   {".png", ".tga", ".jpg", ".jpeg", ".bmp", ".webp"},
	KindMesh:      {".gvmh"},
	KindAnimation: {".anim"},
}

// ErrNotFound is returned by Load when no root holds the asset.
var ErrNotFound = errors.New("assets: not found")

// Manager serves assets from a stack of directories. Roots are searched in reverse order
// (last added = highest priority). Requests run on a bounded set of goroutines.
type Manager struct {
	roots  []string
	cache  *Cache
	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup
	log    *zap.Logger
}

// NewManager creates a manager allowing at most parallel concurrent reads.
// cacheBytes bounds the in-memory cache; zero disables it.
func NewManager(parallel int, cacheBytes int) *Manager {
	if parallel < 1 {
		parallel = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cache:  NewCache(cacheBytes),
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, parallel),
		log:    logger.Named("assets"),
	}
}

// AddRoot adds an asset directory to the manager.
func (m *Manager) AddRoot(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening asset root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset root %s is not a directory", dir)
	}

	m.mu.Lock()
	m.roots = append(m.roots, dir)
	m.mu.Unlock()
	return nil
}

func cacheKey(kind Kind, id uuid.UUID) string {
	return kindDirs[kind] + "/" + id.String()
}

// Load reads an asset synchronously.
func (m *Manager) Load(kind Kind, id uuid.UUID) ([]byte, error) {
	key := cacheKey(kind, id)
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		for _, ext := range kindExts[kind] {
			path := filepath.Join(m.roots[i], kindDirs[kind], id.String()+ext)
			data, err := os.ReadFile(path)
			if err == nil {
				m.cache.Set(key, data)
				return data, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kindDirs[kind], id)
}

// fetch runs load on a worker slot and reports the outcome. Requests made after Close,
// or still waiting for a slot when Close runs, are aborted.
func (m *Manager) fetch(kind Kind, id uuid.UUID, done func(Status, []byte)) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		done(StatusAborted, nil)
		return
	}
	m.wg.Add(1)
	m.mu.RUnlock()
	go func() {
		defer m.wg.Done()
		select {
		case m.sem <- struct{}{}:
		case <-m.ctx.Done():
			done(StatusAborted, nil)
			return
		}
		defer func() { <-m.sem }()

		data, err := m.Load(kind, id)
		switch {
		case m.ctx.Err() != nil:
			done(StatusAborted, nil)
		case errors.Is(err, ErrNotFound):
			done(StatusNotFound, nil)
		case err != nil:
			m.log.Warn("asset read failed", zap.Stringer("id", id), zap.Error(err))
			done(StatusNotFound, nil)
		default:
			done(StatusOK, data)
		}
	}()
}

// RequestTexture fetches a texture asynchronously.
func (m *Manager) RequestTexture(id uuid.UUID, cb TextureCallback) {
	m.fetch(KindTexture, id, func(s Status, data []byte) { cb(s, data) })
}

// RequestMesh fetches a mesh asset asynchronously.
func (m *Manager) RequestMesh(id uuid.UUID, cb Callback) {
	m.fetch(KindMesh, id, func(s Status, data []byte) { cb(s == StatusOK, data) })
}

// RequestAnimation fetches an animation asset asynchronously.
func (m *Manager) RequestAnimation(id uuid.UUID, cb Callback) {
	m.fetch(KindAnimation, id, func(s Status, data []byte) { cb(s == StatusOK, data) })
}

// Close aborts outstanding requests, waits for in-flight reads and drops the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.roots = nil
	m.mu.Unlock()
	m.cache.Clear()
}

var _ Service = (*Manager)(nil)

// Cache is a byte-bounded in-memory cache for loaded assets. Oldest entries are evicted
// first.
type Cache struct {
	data  map[string][]byte
	order []string
	size  int
	limit int
	mu    sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a cache holding at most limit bytes.
func NewCache(limit int) *Cache {
	return &Cache{
		data:  make(map[string][]byte),
		limit: limit,
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache. Items larger than the whole budget are not kept.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(data) > c.limit {
		return
	}
	if old, ok := c.data[key]; ok {
		c.size -= len(old)
	} else {
		c.order = append(c.order, key)
	}
	c.data[key] = data
	c.size += len(data)

	for c.size > c.limit && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.size -= len(c.data[oldest])
		delete(c.data, oldest)
	}
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.order = nil
	c.size = 0
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
