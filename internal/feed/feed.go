// Package feed connects the scene store to the outside world: scene notifications come
// in through a Sink, user intents go out through an IntentSink.
package feed

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/logger"
	"github.com/Faultbox/gridview/internal/scene"
)

// Sink receives scene notifications. Implementations must be safe to call from any
// goroutine.
type Sink interface {
	OnObjectUpdated(u scene.PrimUpdate)
	OnObjectKilled(id scene.LocalID)
	OnAvatarUpdated(u scene.AvatarUpdate)
	OnTerrainPatch(p scene.TerrainPatch)
	OnRegionInfo(r scene.Region)
}

// IntentKind is an action the user asked for.
type IntentKind string

const (
	IntentTouch IntentKind = "touch"
	IntentGrab  IntentKind = "grab"
	IntentSit   IntentKind = "sit"
	IntentDeRez IntentKind = "derez"
)

// Intent is an outbound request about one object.
type Intent struct {
	Kind     IntentKind
	Object   scene.LocalID
	FullID   uuid.UUID
	Face     int
	Position mgl32.Vec3
}

// IntentSink accepts intents without blocking. Delivery is best effort.
type IntentSink interface {
	SendIntent(i Intent)
}

// StoreSink applies notifications to a scene store. After Close every notification is
// dropped, and no notification is still writing once Close returns.
type StoreSink struct {
	store  *scene.Store
	mu     sync.RWMutex
	closed bool
	log    *zap.Logger
}

// NewStoreSink returns a sink writing into store.
func NewStoreSink(store *scene.Store) *StoreSink {
	return &StoreSink{store: store, log: logger.Named("feed")}
}

// Close stops the sink from touching the store. It waits for notifications in flight.
func (s *StoreSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *StoreSink) guard(event string) {
	if r := recover(); r != nil {
		s.log.Error("feed event failed", zap.String("event", event), zap.Any("panic", r))
	}
}

func (s *StoreSink) OnObjectUpdated(u scene.PrimUpdate) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	defer s.guard("object update")
	s.store.UpsertPrimitive(u)
}

func (s *StoreSink) OnObjectKilled(id scene.LocalID) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	defer s.guard("object kill")
	s.store.Remove(id)
}

func (s *StoreSink) OnAvatarUpdated(u scene.AvatarUpdate) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	defer s.guard("avatar update")
	s.store.UpsertAvatar(u)
}

func (s *StoreSink) OnTerrainPatch(p scene.TerrainPatch) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	defer s.guard("terrain patch")
	if !s.store.UpsertTerrainPatch(p) {
		s.log.Debug("terrain patch rejected", zap.Int("x", p.X), zap.Int("y", p.Y))
	}
}

func (s *StoreSink) OnRegionInfo(r scene.Region) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	defer s.guard("region info")
	s.store.SetRegion(r)
}

var _ Sink = (*StoreSink)(nil)
