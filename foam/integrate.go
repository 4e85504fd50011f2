package foam

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/grid"
)

// IntegrateParams tunes per-state motion and lifetime decay (spec §4.F
// steps 5-6).
type IntegrateParams struct {
	Gravity float32

	AdvectionRate    float32 // FOAM: advects toward local fluid velocity
	BuoyancyStrength float32 // BUBBLE: upward drag against gravity

	SprayDrag        float32 // isotropic air drag
	SprayFriction    float32 // tangential friction on wall contact
	SprayRestitution float32

	DecayFoam   float32
	DecayBubble float32
	DecaySpray  float32

	DensityMin   float32 // preservation band: neighbour count range that refills lifetime
	DensityMax   float32
	PreserveRate float32

	BoundsHalf    [3]float32
	BoundsPadding float32
}

// localFluidVelocity averages the velocity of fluid neighbours within h of
// p, for FOAM/BUBBLE advection.
func localFluidVelocity(p mgl32.Vec3, fluidPos, fluidVel []mgl32.Vec3, g grid.NeighbourGrid, sorted grid.Sorted, h float32) (mgl32.Vec3, int) {
	var sum mgl32.Vec3
	count := 0
	cells := g.Neighbours(p)
	for _, c := range cells {
		if int(c)+1 >= len(sorted.CellOffset) {
			continue
		}
		lo, hi := sorted.CellOffset[c], sorted.CellOffset[c+1]
		for j := int(lo); j < int(hi); j++ {
			if fluidPos[j].Sub(p).Len() >= h {
				continue
			}
			sum = sum.Add(fluidVel[j])
			count++
		}
	}
	if count == 0 {
		return mgl32.Vec3{}, 0
	}
	return sum.Mul(1 / float32(count)), count
}

// Integrate advances every live foam particle's position and velocity per
// its classified state, decays or preserves its lifetime, and frees any
// particle whose lifetime reaches zero by simply leaving it at Lifetime<=0
// (the ring buffer's own Alloc will eventually overwrite it; nothing here
// compacts the array -- spec §4.F has no compaction step, only exclusion
// from rendering by lifetime).
func Integrate(ring *Ring, fluidPos, fluidVel []mgl32.Vec3, g grid.NeighbourGrid, sorted grid.Sorted, h float32, ip IntegrateParams, dt float32) {
	particles := ring.Particles()
	for i := range particles {
		p := &particles[i]
		if p.Lifetime <= 0 {
			continue
		}

		fluidVelLocal, count := localFluidVelocity(p.Pos, fluidPos, fluidVel, g, sorted, h)

		switch p.StateTag {
		case StateFoam:
			p.Vel = p.Vel.Add(fluidVelLocal.Sub(p.Vel).Mul(clamp01(ip.AdvectionRate * dt)))
		case StateBubble:
			drag := fluidVelLocal.Sub(p.Vel).Mul(clamp01(ip.AdvectionRate * dt))
			buoyancy := mgl32.Vec3{0, ip.Gravity * ip.BuoyancyStrength * dt, 0}
			p.Vel = p.Vel.Add(drag).Add(buoyancy)
		case StateSpray:
			p.Vel[1] -= ip.Gravity * dt
			p.Vel = p.Vel.Mul(1 - clamp01(ip.SprayDrag*dt))
		default:
			// StateUnknown (not yet classified this frame): fall back to
			// gravity only, matching spray's ballistic default.
			p.Vel[1] -= ip.Gravity * dt
		}

		p.Pos = p.Pos.Add(p.Vel.Mul(dt))

		if p.StateTag == StateSpray {
			bounceSpray(p, ip)
		}

		decay := ip.DecayFoam
		switch p.StateTag {
		case StateBubble:
			decay = ip.DecayBubble
		case StateSpray:
			decay = ip.DecaySpray
		}
		p.Lifetime -= dt * decay

		if ip.DensityMax > ip.DensityMin {
			densityT := remap01(float32(count), ip.DensityMin, ip.DensityMax)
			if densityT > 0 && densityT < 1 {
				p.Lifetime += dt * ip.PreserveRate * densityT
			}
		}
	}
}

// bounceSpray resolves boundary contact for ballistic spray particles:
// restitution-damped bounce plus tangential friction, analogous to
// sph.collideBoundary but with a friction term the primary fluid's clamp
// does not need (spec §4.F step 5 "tangential friction on wall contact").
func bounceSpray(p *Particle, ip IntegrateParams) {
	for axis := 0; axis < 3; axis++ {
		limit := ip.BoundsHalf[axis] - ip.BoundsPadding
		if limit < 0 {
			limit = 0
		}
		if p.Pos[axis] > limit {
			p.Pos[axis] = limit
			p.Vel[axis] = -p.Vel[axis] * ip.SprayRestitution
			dampTangential(p, axis, ip.SprayFriction)
		} else if p.Pos[axis] < -limit {
			p.Pos[axis] = -limit
			p.Vel[axis] = -p.Vel[axis] * ip.SprayRestitution
			dampTangential(p, axis, ip.SprayFriction)
		}
	}
}

func dampTangential(p *Particle, normalAxis int, friction float32) {
	for axis := 0; axis < 3; axis++ {
		if axis == normalAxis {
			continue
		}
		p.Vel[axis] *= 1 - friction
	}
}
