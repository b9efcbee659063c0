package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/gridview/internal/logger"
)

func init() {
	logger.InitNop()
}

func writeAsset(t *testing.T, root string, kind Kind, id uuid.UUID, ext string, data []byte) {
	t.Helper()
	dir := filepath.Join(root, kindDirs[kind])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, id.String()+ext), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPriority(t *testing.T) {
	low, high := t.TempDir(), t.TempDir()
	id := uuid.New()
	writeAsset(t, low, KindTexture, id, ".png", []byte("low"))
	writeAsset(t, high, KindTexture, id, ".tga", []byte("high"))

	m := NewManager(2, 1<<20)
	defer m.Close()
	if err := m.AddRoot(low); err != nil {
		t.Fatal(err)
	}
	if err := m.AddRoot(high); err != nil {
		t.Fatal(err)
	}

	data, err := m.Load(KindTexture, id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != "high" {
		t.Errorf("Load() = %q, want the last added root", data)
	}
}

func TestAddRootMissing(t *testing.T) {
	m := NewManager(1, 0)
	defer m.Close()
	if err := m.AddRoot(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("AddRoot() accepted a missing directory")
	}
}

func TestRequestTextureStatuses(t *testing.T) {
	root := t.TempDir()
	have := uuid.New()
	writeAsset(t, root, KindTexture, have, ".png", []byte{1, 2, 3})

	m := NewManager(2, 0)
	defer m.Close()
	require.NoError(t, m.AddRoot(root))

	type result struct {
		status Status
		data   []byte
	}
	got := make(chan result, 2)
	m.RequestTexture(have, func(s Status, d []byte) { got <- result{s, d} })
	r := <-got
	require.Equal(t, StatusOK, r.status)
	require.Equal(t, []byte{1, 2, 3}, r.data)

	m.RequestTexture(uuid.New(), func(s Status, d []byte) { got <- result{s, d} })
	r = <-got
	require.Equal(t, StatusNotFound, r.status)
}

func TestRequestMesh(t *testing.T) {
	root := t.TempDir()
	id := uuid.New()
	writeAsset(t, root, KindMesh, id, ".gvmh", []byte("mesh"))

	m := NewManager(1, 0)
	defer m.Close()
	require.NoError(t, m.AddRoot(root))

	var mu sync.Mutex
	var ok bool
	var data []byte
	m.RequestMesh(id, func(success bool, d []byte) {
		mu.Lock()
		ok, data = success, d
		mu.Unlock()
	})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ok && string(data) == "mesh"
	}, time.Second, 5*time.Millisecond)
}

func TestRequestAfterCloseAborts(t *testing.T) {
	m := NewManager(1, 0)
	m.Close()

	done := make(chan Status, 1)
	m.RequestTexture(uuid.New(), func(s Status, _ []byte) { done <- s })
	require.Equal(t, StatusAborted, <-done)
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(10)
	c.Set("a", make([]byte, 4))
	c.Set("b", make([]byte, 4))
	c.Set("c", make([]byte, 4))
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry not evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry missing")
	}
	c.Set("huge", make([]byte, 11))
	if _, ok := c.Get("huge"); ok {
		t.Error("entry larger than the budget was cached")
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = %d, %d, want 1, 2", hits, misses)
	}
}
