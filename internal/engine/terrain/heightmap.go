// Package terrain keeps the region heightfield and builds one mesh face per patch.
package terrain

import (
	"fmt"
	"sort"

	"github.com/Faultbox/gridview/internal/scene"
)

// PatchSize is the number of samples along one side of a patch.
const PatchSize = scene.PatchSize

// Key addresses a patch by its grid position.
type Key struct {
	X, Y int
}

// Field is the heightmap of one square region, one sample per metre.
// Samples that no patch has covered yet read as zero.
type Field struct {
	size    int
	heights []float32
	loaded  map[Key]bool
	dirty   map[Key]bool
}

// NewField creates a field for a region of the given side length in metres.
func NewField(regionSize float32) *Field {
	n := int(regionSize)
	if n < PatchSize {
		n = PatchSize
	}
	n = (n + PatchSize - 1) / PatchSize * PatchSize
	return &Field{
		size:    n,
		heights: make([]float32, n*n),
		loaded:  make(map[Key]bool),
		dirty:   make(map[Key]bool),
	}
}

// Size returns the side length of the field in samples.
func (f *Field) Size() int { return f.size }

// Patches returns the number of patches per side.
func (f *Field) Patches() int { return f.size / PatchSize }

// Apply copies a patch into the heightmap and marks it, plus the neighbours whose
// shared edge depends on it, for rebuilding.
func (f *Field) Apply(p scene.TerrainPatch) error {
	n := f.Patches()
	if p.X < 0 || p.Y < 0 || p.X >= n || p.Y >= n {
		return fmt.Errorf("terrain: patch (%d,%d) outside %dx%d grid", p.X, p.Y, n, n)
	}
	if len(p.Heights) != PatchSize*PatchSize {
		return fmt.Errorf("terrain: patch (%d,%d) has %d samples", p.X, p.Y, len(p.Heights))
	}
	for row := 0; row < PatchSize; row++ {
		dst := (p.Y*PatchSize+row)*f.size + p.X*PatchSize
		copy(f.heights[dst:dst+PatchSize], p.Heights[row*PatchSize:(row+1)*PatchSize])
	}
	k := Key{p.X, p.Y}
	f.loaded[k] = true
	f.markDirty(k)
	f.markDirty(Key{p.X - 1, p.Y})
	f.markDirty(Key{p.X, p.Y - 1})
	f.markDirty(Key{p.X - 1, p.Y - 1})
	return nil
}

func (f *Field) markDirty(k Key) {
	if f.loaded[k] {
		f.dirty[k] = true
	}
}

// Loaded reports whether a patch has been received.
func (f *Field) Loaded(k Key) bool {
	return f.loaded[k]
}

// TakeDirty returns the patches needing a rebuild in grid order and clears the set.
func (f *Field) TakeDirty() []Key {
	if len(f.dirty) == 0 {
		return nil
	}
	out := make([]Key, 0, len(f.dirty))
	for k := range f.dirty {
		out = append(out, k)
	}
	clear(f.dirty)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// sample returns the height at an integer grid position, clamped to the field.
func (f *Field) sample(x, y int) float32 {
	x = clampi(x, 0, f.size-1)
	y = clampi(y, 0, f.size-1)
	return f.heights[y*f.size+x]
}

// Height returns the bilinearly interpolated ground height at a world position.
func (f *Field) Height(x, y float32) float32 {
	cx := int(x)
	cy := int(y)
	if x < 0 {
		cx = 0
	}
	if y < 0 {
		cy = 0
	}
	cx = clampi(cx, 0, f.size-2)
	cy = clampi(cy, 0, f.size-2)

	fx := clampf(x-float32(cx), 0, 1)
	fy := clampf(y-float32(cy), 0, 1)

	south := f.sample(cx, cy)*(1-fx) + f.sample(cx+1, cy)*fx
	north := f.sample(cx, cy+1)*(1-fx) + f.sample(cx+1, cy+1)*fx
	return south*(1-fy) + north*fy
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
