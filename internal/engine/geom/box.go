package geom

import "github.com/go-gl/mathgl/mgl32"

// BoxTriangleVertexCount is the number of vertices emitted by BoxTriangles (6 faces × 2 triangles).
const BoxTriangleVertexCount = 36

// BoxTriangles returns solid triangle vertices for the box, format x,y,z per vertex.
// Used to draw occlusion proxies, where only rasterized coverage matters.
func BoxTriangles(b AABB) []float32 {
	minX, minY, minZ := b.Min[0], b.Min[1], b.Min[2]
	maxX, maxY, maxZ := b.Max[0], b.Max[1], b.Max[2]

	c := [8]mgl32.Vec3{
		{minX, minY, minZ}, {maxX, minY, minZ}, {maxX, maxY, minZ}, {minX, maxY, minZ},
		{minX, minY, maxZ}, {maxX, minY, maxZ}, {maxX, maxY, maxZ}, {minX, maxY, maxZ},
	}
	faces := [6][4]int{
		{0, 3, 2, 1}, // -Z
		{4, 5, 6, 7}, // +Z
		{0, 4, 7, 3}, // -X
		{1, 2, 6, 5}, // +X
		{0, 1, 5, 4}, // -Y
		{3, 7, 6, 2}, // +Y
	}

	out := make([]float32, 0, BoxTriangleVertexCount*3)
	for _, f := range faces {
		for _, idx := range [6]int{f[0], f[1], f[2], f[0], f[2], f[3]} {
			out = append(out, c[idx][0], c[idx][1], c[idx][2])
		}
	}
	return out
}

// BoxWireframe returns 24 line vertices (12 edges × 2 endpoints) for a box, padded on all sides.
func BoxWireframe(b AABB, padding float32) []float32 {
	minX, minY, minZ := b.Min[0]-padding, b.Min[1]-padding, b.Min[2]-padding
	maxX, maxY, maxZ := b.Max[0]+padding, b.Max[1]+padding, b.Max[2]+padding
	return []float32{
		// Bottom
		minX, minY, minZ, maxX, minY, minZ,
		maxX, minY, minZ, maxX, minY, maxZ,
		maxX, minY, maxZ, minX, minY, maxZ,
		minX, minY, maxZ, minX, minY, minZ,
		// Top
		minX, maxY, minZ, maxX, maxY, minZ,
		maxX, maxY, minZ, maxX, maxY, maxZ,
		maxX, maxY, maxZ, minX, maxY, maxZ,
		minX, maxY, maxZ, minX, maxY, minZ,
		// Verticals
		minX, minY, minZ, minX, maxY, minZ,
		maxX, minY, minZ, maxX, maxY, minZ,
		maxX, minY, maxZ, maxX, maxY, maxZ,
		minX, minY, maxZ, minX, maxY, maxZ,
	}
}
