package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/engine/camera"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/picking"
	"github.com/Faultbox/gridview/internal/engine/sky"
	"github.com/Faultbox/gridview/internal/engine/terrain"
	"github.com/Faultbox/gridview/internal/engine/water"
	"github.com/Faultbox/gridview/internal/resource"
	"github.com/Faultbox/gridview/internal/scene"
)

// groundColor tints the untextured terrain.
var groundColor = [4]float32{0.42, 0.5, 0.3, 1}

// terrainLayer owns the heightfield and one uploaded face per received patch.
type terrainLayer struct {
	field *terrain.Field
	faces map[terrain.Key]*resource.FaceData
}

func newTerrainLayer(size float32) *terrainLayer {
	return &terrainLayer{
		field: terrain.NewField(size),
		faces: make(map[terrain.Key]*resource.FaceData),
	}
}

// apply folds new patches into the field and rebuilds every affected patch face.
func (t *terrainLayer) apply(dev gpu.Device, patches []scene.TerrainPatch, useBuffers bool, log *zap.Logger) {
	for _, p := range patches {
		if err := t.field.Apply(p); err != nil {
			log.Warn("terrain patch dropped", zap.Error(err))
		}
	}
	for _, k := range t.field.TakeDirty() {
		if old, ok := t.faces[k]; ok {
			old.Release(dev)
		}
		face := t.field.BuildPatch(k)
		fd := resource.NewFaceData(&face)
		fd.Upload(dev, useBuffers)
		// Pick ids for terrain are the patch index plus one so zero stays "nothing".
		fd.PickID = uint32(face.ID) + 1
		t.faces[k] = fd
	}
}

func (t *terrainLayer) draw(dev gpu.Device, cam *camera.Camera, pick bool) int {
	n := 0
	for _, fd := range t.faces {
		if !cam.Frustum().IntersectsAABB(fd.Bounds) {
			continue
		}
		dc := gpu.DrawCall{
			Model:     mgl32.Ident4(),
			Geometry:  &fd.Geometry,
			Color:     groundColor,
			TexMatrix: mgl32.Ident4(),
		}
		if pick {
			dc.Color = picking.EncodeFloat(fd.PickID, picking.CategoryTerrain)
			dc.Fullbright = true
		}
		dev.Draw(dc)
		n++
	}
	return n
}

func (t *terrainLayer) release(dev gpu.Device) {
	for k, fd := range t.faces {
		fd.Release(dev)
		delete(t.faces, k)
	}
}

// skyLayer is the camera-centred dome and its gradient texture.
type skyLayer struct {
	dome    *resource.FaceData
	texture uint32
	sun     mgl32.Vec3
}

// update regenerates the gradient when the sun moves and uploads the dome once.
func (s *skyLayer) update(dev gpu.Device, sun mgl32.Vec3, useBuffers bool) error {
	if s.dome == nil {
		face := sky.Dome()
		s.dome = resource.NewFaceData(&face)
		s.dome.Upload(dev, useBuffers)
	}
	if s.texture != 0 && s.sun == sun {
		return nil
	}
	tex, err := dev.CreateTexture(sky.Gradient(sun), false)
	if err != nil {
		return err
	}
	if s.texture != 0 {
		dev.DeleteTexture(s.texture)
	}
	s.texture = tex
	s.sun = sun
	return nil
}

func (s *skyLayer) draw(dev gpu.Device, cam *camera.Camera) {
	if s.dome == nil {
		return
	}
	dev.Draw(gpu.DrawCall{
		Model:      sky.Model(cam.RenderPosition, cam.Far),
		Geometry:   &s.dome.Geometry,
		Texture:    s.texture,
		Color:      [4]float32{1, 1, 1, 1},
		TexMatrix:  mgl32.Ident4(),
		Fullbright: true,
	})
}

func (s *skyLayer) release(dev gpu.Device) {
	if s.dome != nil {
		s.dome.Release(dev)
		s.dome = nil
	}
	if s.texture != 0 {
		dev.DeleteTexture(s.texture)
		s.texture = 0
	}
}

// waterLayer is the region water plane.
type waterLayer struct {
	plane  *resource.FaceData
	size   float32
	height float32
}

func (w *waterLayer) update(dev gpu.Device, r scene.Region, useBuffers bool) {
	if w.plane != nil && w.size == r.Size && w.height == r.WaterHeight {
		return
	}
	w.release(dev)
	face := water.BuildPlane(r.Size, r.WaterHeight, water.DefaultPadding)
	w.plane = resource.NewFaceData(&face)
	w.plane.Upload(dev, useBuffers)
	w.size = r.Size
	w.height = r.WaterHeight
}

func (w *waterLayer) draw(dev gpu.Device, elapsed float32) {
	if w.plane == nil {
		return
	}
	dev.Draw(gpu.DrawCall{
		Model:     mgl32.Ident4(),
		Geometry:  &w.plane.Geometry,
		Color:     water.Color,
		TexMatrix: water.Scroll(elapsed, 0.02),
		Shiny:     0.75,
	})
}

func (w *waterLayer) release(dev gpu.Device) {
	if w.plane != nil {
		w.plane.Release(dev)
		w.plane = nil
	}
}
