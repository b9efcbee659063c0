package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
)

// TextureRepeat is how many metres one repeat of the ground texture covers.
const TextureRepeat = 4

// BuildPatch builds the face of one patch in world space. The grid is PatchSize+1
// vertices wide so adjacent patches share their edge row.
func (f *Field) BuildPatch(k Key) primmesh.Face {
	const side = PatchSize + 1
	face := primmesh.Face{
		ID:       k.Y*f.Patches() + k.X,
		Vertices: make([]float32, 0, side*side*gpu.VertexStride),
		Indices:  make([]uint16, 0, PatchSize*PatchSize*6),
		Bounds:   geom.EmptyAABB(),
	}

	ox := k.X * PatchSize
	oy := k.Y * PatchSize
	for j := 0; j < side; j++ {
		for i := 0; i < side; i++ {
			gx, gy := ox+i, oy+j
			pos := mgl32.Vec3{float32(gx), float32(gy), f.sample(gx, gy)}
			n := f.normal(gx, gy)
			face.Vertices = append(face.Vertices,
				pos[0], pos[1], pos[2],
				n[0], n[1], n[2],
				float32(gx)/TextureRepeat, float32(gy)/TextureRepeat,
			)
			face.Bounds.Extend(pos)
		}
	}

	for j := 0; j < PatchSize; j++ {
		for i := 0; i < PatchSize; i++ {
			a := uint16(j*side + i)
			b := a + 1
			c := a + side
			d := c + 1
			face.Indices = append(face.Indices, a, b, d, a, d, c)
		}
	}
	return face
}

// normal uses central differences over the neighbouring samples, which gives the same
// result on both sides of a patch seam.
func (f *Field) normal(x, y int) mgl32.Vec3 {
	dx := f.sample(x+1, y) - f.sample(x-1, y)
	dy := f.sample(x, y+1) - f.sample(x, y-1)
	return mgl32.Vec3{-dx, -dy, 2}.Normalize()
}
