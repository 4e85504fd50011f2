package sph

import "github.com/go-gl/mathgl/mgl32"

// ObstacleShape mirrors config.ObstacleShape but is decoupled from the
// config package so sph has no import-time dependency on it beyond Params.
type ObstacleShape int

const (
	ObstacleBox ObstacleShape = iota
	ObstacleSphere
)

// Obstacle is a single collidable shape inside the bounds (spec §6
// obstacleCentre/obstacleSize/obstacleRadius/obstacleShape/obstacleRotation).
// Rotation is carried as forwarded metadata for renderers only: per the
// Design Notes (spec §9 "Obstacle rotation"), collision resolution here is
// AABB/sphere only and never reads it.
type Obstacle struct {
	Enabled     bool
	Shape       ObstacleShape
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3 // box
	Radius      float32    // sphere
	Rotation    mgl32.Quat // metadata only -- not applied to collision math below
}

// collideBoundary clamps pos per-axis against the half-bounds minus padding
// and negates the normal velocity component with damping (spec §4.D step 6,
// invariant 4). Operates on a single particle's pos/vel in place.
func collideBoundary(pos, vel *mgl32.Vec3, p Params) {
	for axis := 0; axis < 3; axis++ {
		limit := p.BoundsHalf[axis] - p.BoundsPadding
		if limit < 0 {
			limit = 0
		}
		if pos[axis] > limit {
			pos[axis] = limit
			vel[axis] = -vel[axis] * p.CollisionDamping
		} else if pos[axis] < -limit {
			pos[axis] = -limit
			vel[axis] = -vel[axis] * p.CollisionDamping
		}
	}
}

// collideObstacle resolves penetration against the shallowest axis (box) or
// radial penetration (sphere), analogous to the boundary clamp.
func collideObstacle(pos, vel *mgl32.Vec3, o *Obstacle, damping float32) {
	if o == nil || !o.Enabled {
		return
	}
	switch o.Shape {
	case ObstacleBox:
		collideBox(pos, vel, o, damping)
	case ObstacleSphere:
		collideSphere(pos, vel, o, damping)
	}
}

func collideBox(pos, vel *mgl32.Vec3, o *Obstacle, damping float32) {
	rel := pos.Sub(o.Center)
	var penetration [3]float32
	inside := true
	for axis := 0; axis < 3; axis++ {
		penetration[axis] = o.HalfExtents[axis] - absf(rel[axis])
		if penetration[axis] <= 0 {
			inside = false
		}
	}
	if !inside {
		return
	}

	// shallowest-axis resolution: push out along the axis with least
	// penetration depth, mirroring the teacher's "axis of least penetration"
	// contact-normal choice in FindBodyContacts.
	axis := 0
	shallow := penetration[0]
	for a := 1; a < 3; a++ {
		if penetration[a] < shallow {
			shallow = penetration[a]
			axis = a
		}
	}

	if rel[axis] >= 0 {
		pos[axis] = o.Center[axis] + o.HalfExtents[axis]
	} else {
		pos[axis] = o.Center[axis] - o.HalfExtents[axis]
	}
	vel[axis] = -vel[axis] * damping
}

func collideSphere(pos, vel *mgl32.Vec3, o *Obstacle, damping float32) {
	rel := pos.Sub(o.Center)
	dist := rel.Len()
	if dist >= o.Radius || dist < 1e-6 {
		return
	}
	normal := rel.Mul(1 / dist)
	*pos = o.Center.Add(normal.Mul(o.Radius))

	vn := vel.Dot(normal)
	if vn < 0 {
		*vel = vel.Sub(normal.Mul((1 + damping) * vn))
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
