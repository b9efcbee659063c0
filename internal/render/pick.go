package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/engine/camera"
	"github.com/Faultbox/gridview/internal/engine/gpu"
	"github.com/Faultbox/gridview/internal/engine/picking"
	"github.com/Faultbox/gridview/internal/scene"
)

// PickResult is what lies under a screen position.
type PickResult struct {
	Category picking.Category
	Object   scene.LocalID
	FullID   uuid.UUID
	// Face is the face index on the object, or -1 for terrain.
	Face     int
	Position mgl32.Vec3
}

func (p PickResult) String() string {
	if p.Category == picking.CategoryTerrain {
		return fmt.Sprintf("terrain at %v", p.Position)
	}
	return fmt.Sprintf("%s %d face %d at %v", p.Category, p.Object, p.Face, p.Position)
}

// Pick draws the last visible set off-screen with one colour per face and reads back
// the pixel at (x, y), top-left origin. The device state, shader path and render
// target in effect before the call are restored on every return path.
func (r *Renderer) Pick(cam *camera.Camera, x, y int32) (res PickResult, ok bool) {
	if r.disposed {
		return PickResult{}, false
	}
	w, h := r.dev.Viewport()
	if x < 0 || y < 0 || x >= w || y >= h {
		return PickResult{}, false
	}

	restore, err := r.dev.BeginOffscreen()
	if err != nil {
		r.log.Warn("pick target unavailable", zap.Error(err))
		return PickResult{}, false
	}
	saved := r.dev.State()
	savedShader := r.shader
	savedPass := r.pass
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("pick failed", zap.Any("panic", rec))
			res, ok = PickResult{}, false
		}
		r.setShaderPath(savedShader)
		r.dev.SetState(saved)
		r.pass = savedPass
		restore()
	}()

	r.dev.Clear([4]float32{})
	r.dev.SetCamera(cam.Projection(), cam.View())
	r.begin(PassPicking)

	r.Stats.Draws[PassPicking] += r.terrain.draw(r.dev, cam, true)
	for _, fd := range r.simple {
		r.drawPick(fd, picking.CategoryPrim)
	}
	for _, fd := range r.avatars {
		r.drawPick(fd, picking.CategoryAvatar)
	}
	for _, fd := range r.alpha {
		cat := picking.CategoryPrim
		if fd.obj.Kind == scene.KindAvatar {
			cat = picking.CategoryAvatar
		}
		r.drawPick(fd, cat)
	}

	glY := h - 1 - y
	px, depth := r.dev.ReadPixel(x, glY)
	id, cat := picking.Decode(px)
	if cat == picking.CategoryNone || depth >= 1 {
		return PickResult{}, false
	}

	world, err := mgl32.UnProject(
		mgl32.Vec3{float32(x) + 0.5, float32(glY) + 0.5, depth},
		cam.View(), cam.Projection(), 0, 0, int(w), int(h),
	)
	if err != nil {
		return PickResult{}, false
	}

	res = PickResult{Category: cat, Face: -1, Position: world}
	if cat == picking.CategoryTerrain {
		return res, true
	}
	target, found := r.vis.LookupPick(id)
	if !found {
		return PickResult{}, false
	}
	o, found := r.store.GetByLocalID(target.Object)
	if !found {
		return PickResult{}, false
	}
	res.Object = o.LocalID
	res.FullID = o.FullID
	res.Face = target.Face
	return res, true
}

func (r *Renderer) drawPick(fd faceDraw, cat picking.Category) {
	if fd.face.Data.PickID == 0 {
		return
	}
	r.dev.Draw(gpu.DrawCall{
		Model:      fd.model,
		Geometry:   &fd.face.Data.Geometry,
		Color:      picking.EncodeFloat(fd.face.Data.PickID, cat),
		TexMatrix:  mgl32.Ident4(),
		Fullbright: true,
	})
	r.Stats.Draws[PassPicking]++
}
