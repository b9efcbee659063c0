package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// velocityDamping scales extrapolated motion slightly below the reported velocity.
	velocityDamping = 0.98
	smoothFactor    = 0.1
	// smoothRate is the number of smoothing iterations per second of frame time.
	smoothRate     = 100
	positionSnapSq = 1e-5
	rotationSnap   = 1e-4
)

// Step advances the interpolated transform by dt seconds.
//
// With a non-zero velocity the position is extrapolated and the velocity integrates the
// acceleration. Otherwise the position converges on the authoritative one by repeated
// first-order smoothing. Rotation follows the same split on angular velocity. A pending
// parent change snaps straight to the authoritative transform.
func (o *Object) Step(dt float32) {
	if o.snap {
		o.InterpolatedPosition = o.Position
		o.InterpolatedRotation = o.Rotation
		o.snap = false
		return
	}
	if dt <= 0 {
		return
	}
	iterations := max(1, int(math32.Floor(dt*smoothRate)))

	if o.Motion.Velocity != (mgl32.Vec3{}) {
		o.InterpolatedPosition = o.InterpolatedPosition.Add(o.Motion.Velocity.Mul(dt * velocityDamping))
		o.Motion.Velocity = o.Motion.Velocity.Add(o.Motion.Acceleration.Mul(dt))
	} else {
		o.InterpolatedPosition = smoothPosition(o.InterpolatedPosition, o.Position, iterations)
	}

	if w := o.Motion.AngularVelocity; w != (mgl32.Vec3{}) {
		angle := w.Len() * dt
		dq := mgl32.QuatRotate(angle, w.Normalize())
		o.InterpolatedRotation = dq.Mul(o.InterpolatedRotation).Normalize()
	} else {
		o.InterpolatedRotation = smoothRotation(o.InterpolatedRotation, o.Rotation, iterations)
	}
}

func smoothPosition(cur, target mgl32.Vec3, iterations int) mgl32.Vec3 {
	for i := 0; i < iterations; i++ {
		d := target.Sub(cur)
		if d.Dot(d) < positionSnapSq {
			return target
		}
		cur = cur.Add(d.Mul(smoothFactor))
	}
	return cur
}

func smoothRotation(cur, target mgl32.Quat, iterations int) mgl32.Quat {
	for i := 0; i < iterations; i++ {
		dot := cur.Dot(target)
		if 1-math32.Abs(dot) < rotationSnap {
			return target
		}
		to := target
		if dot < 0 {
			to = to.Scale(-1)
		}
		cur = mgl32.QuatSlerp(cur, to, smoothFactor).Normalize()
	}
	return cur
}
