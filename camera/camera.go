// Package camera implements the orbit camera and pointer-ray picking glue
// (spec §4.K "Camera/Input Glue", treated as a thin external collaborator
// rather than core simulation logic).
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Orbit is an orbit camera parameterized by a target point, distance,
// yaw/pitch -- the Y-up analogue of the teacher's Z-up first-person
// CameraState (voxelrt/rt/core/camera.go), adapted since this domain orbits
// a fluid volume rather than flying through a voxel world.
type Orbit struct {
	Target      mgl32.Vec3
	Distance    float32
	Yaw         float32
	Pitch       float32
	Sensitivity float32
	MinDistance float32
	MaxDistance float32
}

// NewOrbit builds a default orbit camera looking at the origin.
func NewOrbit() *Orbit {
	return &Orbit{
		Target:      mgl32.Vec3{0, 0, 0},
		Distance:    25,
		Yaw:         0,
		Pitch:       -0.3,
		Sensitivity: 0.005,
		MinDistance: 2,
		MaxDistance: 200,
	}
}

// Eye computes the camera's world-space position from target/distance/yaw/pitch.
func (o *Orbit) Eye() mgl32.Vec3 {
	cp := float32(math.Cos(float64(o.Pitch)))
	sp := float32(math.Sin(float64(o.Pitch)))
	cy := float32(math.Cos(float64(o.Yaw)))
	sy := float32(math.Sin(float64(o.Yaw)))
	offset := mgl32.Vec3{cp * sy, sp, cp * cy}.Mul(o.Distance)
	return o.Target.Add(offset)
}

// ViewMatrix builds the look-at matrix for the current orbit state.
func (o *Orbit) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(o.Eye(), o.Target, mgl32.Vec3{0, 1, 0})
}

// ProjectionMatrix builds a standard perspective projection.
func (o *Orbit) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(60), aspect, 0.05, 500)
}

// Drag applies a mouse-drag delta to yaw/pitch, clamping pitch to avoid
// gimbal flip at the poles.
func (o *Orbit) Drag(dx, dy float32) {
	o.Yaw += dx * o.Sensitivity
	o.Pitch += dy * o.Sensitivity
	const limit = math.Pi/2 - 0.01
	if o.Pitch > limit {
		o.Pitch = limit
	}
	if o.Pitch < -limit {
		o.Pitch = -limit
	}
}

// Zoom adjusts distance by a scroll delta, clamped to [MinDistance,MaxDistance].
func (o *Orbit) Zoom(delta float32) {
	o.Distance -= delta
	if o.Distance < o.MinDistance {
		o.Distance = o.MinDistance
	}
	if o.Distance > o.MaxDistance {
		o.Distance = o.MaxDistance
	}
}

// Unproject converts a normalized device coordinate (x,y in [-1,1]) and an
// inverse view-projection matrix into a world-space ray (origin, direction).
func Unproject(ndc mgl32.Vec2, invViewProj mgl32.Mat4) (origin, dir mgl32.Vec3) {
	nearPoint := invViewProj.Mul4x1(mgl32.Vec4{ndc.X(), ndc.Y(), -1, 1})
	farPoint := invViewProj.Mul4x1(mgl32.Vec4{ndc.X(), ndc.Y(), 1, 1})

	near := mgl32.Vec3{nearPoint.X() / nearPoint.W(), nearPoint.Y() / nearPoint.W(), nearPoint.Z() / nearPoint.W()}
	far := mgl32.Vec3{farPoint.X() / farPoint.W(), farPoint.Y() / farPoint.W(), farPoint.Z() / farPoint.W()}

	dir = far.Sub(near)
	if dir.Len() > 1e-9 {
		dir = dir.Normalize()
	}
	return near, dir
}

// RayPlaneIntersect intersects a ray against the horizontal plane y=planeY,
// used to derive the interaction tool's world-space point (spec §6
// "Pointer input: world-space position (via unproject of cursor)").
func RayPlaneIntersect(origin, dir mgl32.Vec3, planeY float32) (mgl32.Vec3, bool) {
	if absf(dir.Y()) < 1e-9 {
		return mgl32.Vec3{}, false
	}
	t := (planeY - origin.Y()) / dir.Y()
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	return origin.Add(dir.Mul(t)), true
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
