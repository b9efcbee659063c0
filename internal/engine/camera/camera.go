// Package camera provides the scene camera: a logical orbit target driven by input and a
// rendered pose that follows it with critically damped smoothing.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/gridview/internal/engine/geom"
)

// Up is the world up axis.
var Up = mgl32.Vec3{0, 0, 1}

// Camera separates where the camera should be (Position, FocalPoint, Zoom) from where it
// is drawn from (RenderPosition, RenderFocalPoint). Modified marks that the cached
// matrices and frustum are stale.
type Camera struct {
	Position   mgl32.Vec3
	FocalPoint mgl32.Vec3
	// Zoom divides the field of view; 1 is no zoom.
	Zoom float32

	RenderPosition   mgl32.Vec3
	RenderFocalPoint mgl32.Vec3
	Modified         bool

	FieldOfView float32 // vertical, degrees
	Near, Far   float32
	// SmoothTime is roughly the time the rendered pose needs to reach the target.
	SmoothTime float32

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	aspect      float32
	posVel      mgl32.Vec3
	focalVel    mgl32.Vec3
	renderZoom  float32
	view        mgl32.Mat4
	projection  mgl32.Mat4
	frustum     geom.Frustum
	initialized bool
}

// New creates a camera with default settings looking at the origin.
func New() *Camera {
	c := &Camera{
		Position:        mgl32.Vec3{-10, 0, 5},
		Zoom:            1,
		FieldOfView:     60,
		Near:            0.1,
		Far:             256,
		SmoothTime:      0.15,
		MinDistance:     0.5,
		MaxDistance:     500,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		aspect:          4.0 / 3.0,
	}
	c.Snap()
	return c
}

// SetAspect updates the viewport aspect ratio.
func (c *Camera) SetAspect(width, height int32) {
	if width <= 0 || height <= 0 {
		return
	}
	a := float32(width) / float32(height)
	if a != c.aspect {
		c.aspect = a
		c.Modified = true
	}
}

// SetFar changes the far clip distance (draw distance).
func (c *Camera) SetFar(far float32) {
	if far > c.Near && far != c.Far {
		c.Far = far
		c.Modified = true
	}
}

// Snap moves the rendered pose onto the logical one immediately.
func (c *Camera) Snap() {
	c.RenderPosition = c.Position
	c.RenderFocalPoint = c.FocalPoint
	c.renderZoom = c.Zoom
	c.posVel = mgl32.Vec3{}
	c.focalVel = mgl32.Vec3{}
	c.Modified = true
}

// Step advances the rendered pose toward the logical pose by dt seconds.
func (c *Camera) Step(dt float32) {
	if dt <= 0 {
		return
	}
	pos := smoothDamp(c.RenderPosition, c.Position, &c.posVel, c.SmoothTime, dt)
	focal := smoothDamp(c.RenderFocalPoint, c.FocalPoint, &c.focalVel, c.SmoothTime, dt)
	if pos != c.RenderPosition || focal != c.RenderFocalPoint || c.renderZoom != c.Zoom {
		c.RenderPosition, c.RenderFocalPoint = pos, focal
		c.renderZoom = c.Zoom
		c.Modified = true
	}
}

// smoothDamp is a critically damped spring toward target; vel carries state across calls.
// It snaps when both the offset and the velocity are negligible.
func smoothDamp(cur, target mgl32.Vec3, vel *mgl32.Vec3, smoothTime, dt float32) mgl32.Vec3 {
	smoothTime = max(smoothTime, 1e-4)
	omega := 2 / smoothTime
	x := omega * dt
	decay := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := cur.Sub(target)
	temp := vel.Add(change.Mul(omega)).Mul(dt)
	*vel = vel.Sub(temp.Mul(omega)).Mul(decay)
	out := target.Add(change.Add(temp).Mul(decay))

	if target.Sub(cur).Dot(out.Sub(target)) > 0 {
		*vel = mgl32.Vec3{}
		return target
	}
	if out.Sub(target).Len() < 1e-4 && vel.Len() < 1e-4 {
		*vel = mgl32.Vec3{}
		return target
	}
	return out
}

// Update recomputes the cached matrices and frustum if the camera was modified.
// It reports whether anything changed.
func (c *Camera) Update() bool {
	if !c.Modified && c.initialized {
		return false
	}
	eye, center := c.RenderPosition, c.RenderFocalPoint
	if eye == center {
		center = eye.Add(mgl32.Vec3{1, 0, 0})
	}
	up := Up
	if math32.Abs(center.Sub(eye).Normalize().Dot(up)) > 0.999 {
		up = mgl32.Vec3{1, 0, 0}
	}
	c.view = mgl32.LookAtV(eye, center, up)
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.fov()), c.aspect, c.Near, c.Far)
	c.frustum = geom.FrustumFromMatrix(c.projection.Mul4(c.view))
	c.Modified = false
	c.initialized = true
	return true
}

func (c *Camera) fov() float32 {
	z := c.renderZoom
	if z <= 0 {
		z = 1
	}
	return mgl32.Clamp(c.FieldOfView/z, 1, 170)
}

// View returns the cached view matrix.
func (c *Camera) View() mgl32.Mat4 { return c.view }

// Projection returns the cached projection matrix.
func (c *Camera) Projection() mgl32.Mat4 { return c.projection }

// Frustum returns the cached frustum planes.
func (c *Camera) Frustum() *geom.Frustum { return &c.frustum }

// DistanceSquared returns the squared distance from the rendered eye to p.
func (c *Camera) DistanceSquared(p mgl32.Vec3) float32 {
	d := p.Sub(c.RenderPosition)
	return d.Dot(d)
}

// Distance returns the logical distance from the eye to the focal point.
func (c *Camera) Distance() float32 {
	return c.Position.Sub(c.FocalPoint).Len()
}

// orbit returns yaw (around Up) and pitch of the eye relative to the focal point.
func (c *Camera) orbit() (yaw, pitch, dist float32) {
	off := c.Position.Sub(c.FocalPoint)
	dist = off.Len()
	if dist == 0 {
		return 0, 0, 0
	}
	yaw = math32.Atan2(off[1], off[0])
	pitch = math32.Asin(mgl32.Clamp(off[2]/dist, -1, 1))
	return yaw, pitch, dist
}

func (c *Camera) setOrbit(yaw, pitch, dist float32) {
	pitch = mgl32.Clamp(pitch, c.MinPitch, c.MaxPitch)
	dist = mgl32.Clamp(dist, c.MinDistance, c.MaxDistance)
	cp := math32.Cos(pitch)
	c.Position = c.FocalPoint.Add(mgl32.Vec3{
		dist * cp * math32.Cos(yaw),
		dist * cp * math32.Sin(yaw),
		dist * math32.Sin(pitch),
	})
}

// HandleDrag orbits the eye around the focal point from a mouse drag delta.
func (c *Camera) HandleDrag(deltaX, deltaY float32) {
	yaw, pitch, dist := c.orbit()
	c.setOrbit(yaw-deltaX*c.DragSensitivity, pitch+deltaY*c.DragSensitivity, dist)
}

// HandleZoom moves the eye toward or away from the focal point.
func (c *Camera) HandleZoom(delta float32) {
	yaw, pitch, dist := c.orbit()
	c.setOrbit(yaw, pitch, dist-delta*dist*c.ZoomSensitivity)
}

// HandleMovement pans eye and focal point together. forward is along the horizontal view
// direction, right is perpendicular to it, up is along Up.
func (c *Camera) HandleMovement(forward, right, up float32) {
	speed := max(c.Distance()*0.01, 0.05)

	dir := c.FocalPoint.Sub(c.Position)
	dir[2] = 0
	if dir.Len() == 0 {
		dir = mgl32.Vec3{1, 0, 0}
	}
	dir = dir.Normalize()
	side := dir.Cross(Up).Normalize()

	move := dir.Mul(forward).Add(side.Mul(right)).Add(Up.Mul(up)).Mul(speed)
	c.Position = c.Position.Add(move)
	c.FocalPoint = c.FocalPoint.Add(move)
}

// LookAt sets the logical pose.
func (c *Camera) LookAt(position, focal mgl32.Vec3) {
	c.Position, c.FocalPoint = position, focal
}

// Follow keeps the focal point on a target, placing the eye behind it along yaw.
func (c *Camera) Follow(target mgl32.Vec3, yaw float32) {
	_, pitch, dist := c.orbit()
	if dist == 0 {
		dist, pitch = 4, 0.3
	}
	c.FocalPoint = target
	c.setOrbit(yaw+math32.Pi, pitch, dist)
}

// FitToBounds frames a box.
func (c *Camera) FitToBounds(b geom.AABB) {
	if !b.Valid() {
		return
	}
	c.FocalPoint = b.Center()
	dist := max(b.Radius()*2.5, c.MinDistance)
	c.setOrbit(-math32.Pi/2, 0.6, dist)
}
