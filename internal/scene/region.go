package scene

import "github.com/go-gl/mathgl/mgl32"

// PatchSize is the number of height samples along one side of a terrain patch.
const PatchSize = 16

// TerrainPatch is one block of the region heightfield, PatchSize×PatchSize samples in
// row-major order starting at (X*PatchSize, Y*PatchSize).
type TerrainPatch struct {
	X, Y    int
	Heights []float32
}

// Region holds per-region environment settings.
type Region struct {
	Name         string
	Size         float32
	WaterHeight  float32
	SunDirection mgl32.Vec3
}

// DefaultRegion is used until the feed reports region info.
func DefaultRegion() Region {
	return Region{
		Size:         256,
		WaterHeight:  20,
		SunDirection: mgl32.Vec3{0.3, 0.2, 0.93}.Normalize(),
	}
}

// UpsertTerrainPatch queues a patch for the render thread. Patches with the wrong sample
// count are dropped.
func (s *Store) UpsertTerrainPatch(p TerrainPatch) bool {
	if len(p.Heights) != PatchSize*PatchSize || p.X < 0 || p.Y < 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, p)
	return true
}

// DrainTerrain returns the patches queued since the last call.
func (s *Store) DrainTerrain() []TerrainPatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.patches
	s.patches = nil
	return out
}

// SetRegion replaces the region settings.
func (s *Store) SetRegion(r Region) {
	if r.Size <= 0 {
		r.Size = 256
	}
	if r.SunDirection == (mgl32.Vec3{}) {
		r.SunDirection = DefaultRegion().SunDirection
	} else {
		r.SunDirection = r.SunDirection.Normalize()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.region = r
	s.regionDirty = true
}

// Region returns the region settings and whether they changed since the last call.
func (s *Store) Region() (Region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirty := s.regionDirty
	s.regionDirty = false
	return s.region, dirty
}
