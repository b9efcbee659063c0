// Package streaming runs the background mesh and texture workers.
//
// Workers fetch and decode on their own goroutines and publish plain data (triangle lists,
// RGBA bitmaps) on result channels. They never touch the GPU; the render thread drains
// the results with PollMesh and PollTexture and does the uploads itself.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/assets"
	"github.com/Faultbox/gridview/internal/config"
	"github.com/Faultbox/gridview/internal/diskcache"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
	"github.com/Faultbox/gridview/internal/engine/texture"
	"github.com/Faultbox/gridview/internal/logger"
	"github.com/Faultbox/gridview/internal/scene"
)

var (
	// ErrFetchTimeout is returned when the asset service did not answer in time.
	ErrFetchTimeout = errors.New("streaming: fetch timed out")
	// ErrNotFound is returned when the asset service has no such asset.
	ErrNotFound = errors.New("streaming: asset not found")
	// ErrAborted is returned for work cut short by shutdown.
	ErrAborted = errors.New("streaming: aborted")
	// ErrJoinTimeout is returned by Close when workers did not stop in time.
	ErrJoinTimeout = errors.New("streaming: workers did not stop in time")
)

// sculptMapSize bounds the decoded sculpt map; larger maps carry no extra detail.
const sculptMapSize = 128

// MeshRequest asks for the geometry of one primitive.
type MeshRequest struct {
	ObjectID scene.LocalID
	Gen      uint64
	Source   scene.MeshSource
	Shape    primmesh.Shape
	// AssetID is the sculpt map texture or mesh asset.
	AssetID    uuid.UUID
	SculptType primmesh.SculptType
	Detail     int
}

// MeshResult is a finished mesh request. Err is set on failure and Mesh is nil.
type MeshResult struct {
	ObjectID scene.LocalID
	Gen      uint64
	Mesh     *primmesh.Mesh
	Err      error
}

// TextureResult is a finished texture decode.
type TextureResult struct {
	ID    uuid.UUID
	Image *image.RGBA
	Alpha texture.Alpha
	Err   error
}

// Stats are cumulative pipeline counters.
type Stats struct {
	MeshesSubmitted   int64
	TexturesSubmitted int64
	Rejected          int64
	Failed            int64
	CacheHits         int64
}

// Pipeline owns the worker goroutines and their queues.
type Pipeline struct {
	cfg     config.StreamingConfig
	maxTex  int
	service assets.Service
	cache   *diskcache.Cache

	meshQ   chan MeshRequest
	texQ    chan uuid.UUID
	meshOut chan MeshResult
	texOut  chan TextureResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	meshesSubmitted   atomic.Int64
	texturesSubmitted atomic.Int64
	rejected          atomic.Int64
	failed            atomic.Int64
	cacheHits         atomic.Int64

	log *zap.Logger
}

// New creates a pipeline. cache may be nil to disable the persisted decode cache.
// maxTextureSize bounds decoded bitmaps on either axis.
func New(cfg config.StreamingConfig, maxTextureSize int, service assets.Service, cache *diskcache.Cache) *Pipeline {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		cfg:     cfg,
		maxTex:  maxTextureSize,
		service: service,
		cache:   cache,
		meshQ:   make(chan MeshRequest, cfg.QueueSize),
		texQ:    make(chan uuid.UUID, cfg.QueueSize),
		meshOut: make(chan MeshResult, cfg.QueueSize),
		texOut:  make(chan TextureResult, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		log:     logger.Named("streaming"),
	}
}

// Start launches the workers.
func (p *Pipeline) Start() {
	for i := 0; i < max(1, p.cfg.MeshWorkers); i++ {
		p.wg.Add(1)
		go p.meshWorker(i)
	}
	for i := 0; i < max(1, p.cfg.TextureWorkers); i++ {
		p.wg.Add(1)
		go p.textureWorker(i)
	}
	p.log.Info("streaming started",
		zap.Int("mesh_workers", max(1, p.cfg.MeshWorkers)),
		zap.Int("texture_workers", max(1, p.cfg.TextureWorkers)),
		zap.Bool("decode_cache", p.cache != nil))
}

// SubmitMesh queues a mesh request without blocking. It returns false when the queue is
// full or the pipeline is closed; the caller retries on a later frame.
func (p *Pipeline) SubmitMesh(req MeshRequest) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case p.meshQ <- req:
		p.meshesSubmitted.Add(1)
		return true
	default:
		p.rejected.Add(1)
		return false
	}
}

// SubmitTexture queues a texture fetch without blocking.
func (p *Pipeline) SubmitTexture(id uuid.UUID) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case p.texQ <- id:
		p.texturesSubmitted.Add(1)
		return true
	default:
		p.rejected.Add(1)
		return false
	}
}

// PollMesh returns a finished mesh result if one is ready.
func (p *Pipeline) PollMesh() (MeshResult, bool) {
	select {
	case r := <-p.meshOut:
		return r, true
	default:
		return MeshResult{}, false
	}
}

// PollTexture returns a finished texture result if one is ready.
func (p *Pipeline) PollTexture() (TextureResult, bool) {
	select {
	case r := <-p.texOut:
		return r, true
	default:
		return TextureResult{}, false
	}
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		MeshesSubmitted:   p.meshesSubmitted.Load(),
		TexturesSubmitted: p.texturesSubmitted.Load(),
		Rejected:          p.rejected.Load(),
		Failed:            p.failed.Load(),
		CacheHits:         p.cacheHits.Load(),
	}
}

// Close cancels outstanding work and waits up to the configured join timeout. Queued
// requests are dropped. Workers still running after the timeout are abandoned; they exit
// on their own once their current fetch returns.
func (p *Pipeline) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timeout := p.cfg.JoinTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	select {
	case <-done:
		p.log.Info("streaming stopped")
		return nil
	case <-time.After(timeout):
		p.log.Warn("abandoning streaming workers", zap.Duration("timeout", timeout))
		return ErrJoinTimeout
	}
}

func (p *Pipeline) meshWorker(n int) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("mesh_worker", n))
	for {
		select {
		case <-p.ctx.Done():
			return
		case req := <-p.meshQ:
			res := p.buildMesh(req, log)
			if res.Err != nil {
				p.failed.Add(1)
			}
			select {
			case p.meshOut <- res:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *Pipeline) textureWorker(n int) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("texture_worker", n))
	for {
		select {
		case <-p.ctx.Done():
			return
		case id := <-p.texQ:
			res := p.decodeTexture(id, log)
			if res.Err != nil {
				p.failed.Add(1)
			}
			select {
			case p.texOut <- res:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *Pipeline) buildMesh(req MeshRequest, log *zap.Logger) (res MeshResult) {
	res = MeshResult{ObjectID: req.ObjectID, Gen: req.Gen}
	defer func() {
		if r := recover(); r != nil {
			log.Error("mesh worker panic", zap.Uint32("object", uint32(req.ObjectID)), zap.Any("panic", r))
			res.Mesh, res.Err = nil, fmt.Errorf("mesh worker panic: %v", r)
		}
	}()

	switch req.Source {
	case scene.SourceParametric:
		res.Mesh, res.Err = primmesh.Generate(req.Shape, req.Detail)
	case scene.SourceSculpt:
		img, _, err := p.loadImage(req.AssetID, sculptMapSize, p.cfg.MeshTimeout)
		if err != nil {
			res.Err = fmt.Errorf("sculpt map %s: %w", req.AssetID, err)
			break
		}
		res.Mesh, res.Err = primmesh.Sculpt(img, req.SculptType, req.Detail)
	case scene.SourceMesh:
		data, err := p.fetchMesh(req.AssetID)
		if err != nil {
			res.Err = fmt.Errorf("mesh asset %s: %w", req.AssetID, err)
			break
		}
		res.Mesh, res.Err = primmesh.DecodeAsset(data)
	default:
		res.Err = fmt.Errorf("unknown mesh source %d", req.Source)
	}
	if res.Err != nil {
		log.Debug("mesh failed", zap.Uint32("object", uint32(req.ObjectID)), zap.Error(res.Err))
	}
	return res
}

func (p *Pipeline) decodeTexture(id uuid.UUID, log *zap.Logger) (res TextureResult) {
	res = TextureResult{ID: id}
	defer func() {
		if r := recover(); r != nil {
			log.Error("texture worker panic", zap.Stringer("id", id), zap.Any("panic", r))
			res.Image, res.Err = nil, fmt.Errorf("texture worker panic: %v", r)
		}
	}()

	res.Image, res.Alpha, res.Err = p.loadImage(id, p.maxTex, p.cfg.TextureTimeout)
	if res.Err != nil {
		log.Debug("texture failed", zap.Stringer("id", id), zap.Error(res.Err))
	}
	return res
}

// loadImage returns a decoded bitmap no larger than maxSize, from the persisted cache
// when possible. The cache always holds the decode at the device limit.
func (p *Pipeline) loadImage(id uuid.UUID, maxSize int, timeout time.Duration) (*image.RGBA, texture.Alpha, error) {
	if p.cache != nil {
		img, flags, err := p.cache.LoadImage(id)
		if err == nil {
			p.cacheHits.Add(1)
			return texture.Fit(img, maxSize), texture.AlphaFromFlags(flags), nil
		}
		if !errors.Is(err, diskcache.ErrNotFound) {
			p.log.Debug("decode cache miss", zap.Stringer("id", id), zap.Error(err))
		}
	}

	data, err := p.fetchTexture(id, timeout)
	if err != nil {
		return nil, texture.Alpha{}, err
	}
	img, err := texture.Decode(data, p.maxTex)
	if err != nil {
		return nil, texture.Alpha{}, err
	}
	alpha := texture.Classify(img)

	if p.cache != nil {
		if err := p.cache.SaveImage(id, img, alpha.Flags()); err != nil {
			p.log.Warn("decode cache store failed", zap.Stringer("id", id), zap.Error(err))
		}
	}
	return texture.Fit(img, maxSize), alpha, nil
}

type fetched struct {
	status assets.Status
	data   []byte
}

func (p *Pipeline) fetchTexture(id uuid.UUID, timeout time.Duration) ([]byte, error) {
	ch := make(chan fetched, 1)
	p.service.RequestTexture(id, func(s assets.Status, data []byte) {
		select {
		case ch <- fetched{s, data}:
		default:
		}
	})
	r, err := p.wait(ch, timeout)
	if err != nil {
		return nil, err
	}
	switch r.status {
	case assets.StatusOK:
		return r.data, nil
	case assets.StatusTimeout:
		return nil, ErrFetchTimeout
	case assets.StatusAborted:
		return nil, ErrAborted
	}
	return nil, ErrNotFound
}

func (p *Pipeline) fetchMesh(id uuid.UUID) ([]byte, error) {
	ch := make(chan fetched, 1)
	p.service.RequestMesh(id, func(ok bool, data []byte) {
		s := assets.StatusOK
		if !ok {
			s = assets.StatusNotFound
		}
		select {
		case ch <- fetched{s, data}:
		default:
		}
	})
	r, err := p.wait(ch, p.cfg.MeshTimeout)
	if err != nil {
		return nil, err
	}
	if r.status != assets.StatusOK {
		return nil, ErrNotFound
	}
	return r.data, nil
}

// wait blocks for a callback result, the timeout or shutdown.
func (p *Pipeline) wait(ch <-chan fetched, timeout time.Duration) (fetched, error) {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r, nil
	case <-timer.C:
		return fetched{}, ErrFetchTimeout
	case <-p.ctx.Done():
		return fetched{}, ErrAborted
	}
}
