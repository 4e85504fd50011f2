package foam

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/grid"
	"github.com/gekko3d/fluidkit/kernels"
)

// SpawnParams tunes the spawn-potential weighting (spec §4.F step 1).
type SpawnParams struct {
	Rate            float32
	EnergyMin       float32
	EnergyMax       float32
	LifetimeMin     float32
	LifetimeMax     float32
	BubbleScale     float32
	Sharpness       float32 // outward-alignment gate for wavecrest potential
	SurfaceCap      float32 // neighbour-count cap used by the surface-likelihood mask (spec: 32)
	PerParticleCap  int     // clamp on stochastic spawn count per particle per frame
}

// DefaultSpawnParams fills in the constants spec §4.F names without giving
// a config knob (sharpness threshold, surface neighbour cap, per-particle
// cap), layered on top of the user-configurable FoamConfig fields.
func DefaultSpawnParams() SpawnParams {
	return SpawnParams{
		Sharpness:      0.4,
		SurfaceCap:     32,
		PerParticleCap: 4,
	}
}

// neighboursOf walks the up-to-27 cells around fluidPos[i] and visits every
// other fluid particle within the grid's addressed cells. Used by spawn
// potential computation; foam classification walks the cells around a foam
// particle's own position with pointNeighbours instead.
func neighboursOf(fluidPos []mgl32.Vec3, g grid.NeighbourGrid, sorted grid.Sorted, i int, visit func(j int, r float32, dir mgl32.Vec3)) {
	cells := g.Neighbours(fluidPos[i])
	for _, c := range cells {
		if int(c)+1 >= len(sorted.CellOffset) {
			continue
		}
		lo, hi := sorted.CellOffset[c], sorted.CellOffset[c+1]
		for j := int(lo); j < int(hi); j++ {
			if j == i {
				continue
			}
			delta := fluidPos[j].Sub(fluidPos[i])
			r := delta.Len()
			if r > 1e-9 {
				visit(j, r, delta.Mul(1/r))
			} else {
				visit(j, 0, mgl32.Vec3{})
			}
		}
	}
}

// spawnSignals is the four potentials of spec §4.F step 1, computed for one
// fluid particle.
type spawnSignals struct {
	trappedAir  float32
	wavecrest   float32
	turbulence  float32
	energy      float32
}

func computeSignals(i int, fluidPos, fluidVel []mgl32.Vec3, g grid.NeighbourGrid, sorted grid.Sorted, h float32, scales kernels.Scales, p SpawnParams) spawnSignals {
	var (
		air           float32
		neighbourVelSum mgl32.Vec3
		neighbourPosSum mgl32.Vec3
		weightSum     float32
		varianceSum   float32
		count         int
	)

	vi := fluidVel[i]

	neighboursOf(fluidPos, g, sorted, i, func(j int, r float32, dir mgl32.Vec3) {
		if r >= h {
			return
		}
		w := kernels.Poly6(r, h, scales.Poly6)
		vj := fluidVel[j]
		vRel := vi.Sub(vj)

		// trapped-air: convergence-weighted closing speed along the
		// connecting line (positive when i and j are approaching).
		closing := -vRel.Dot(dir)
		if closing > 0 {
			air += w * closing
		}

		neighbourVelSum = neighbourVelSum.Add(vj)
		neighbourPosSum = neighbourPosSum.Add(fluidPos[j])
		weightSum += w
		varianceSum += w * vRel.Dot(vRel)
		count++
	})

	var wavecrest float32
	if count > 0 {
		meanVel := neighbourVelSum.Mul(1 / float32(count))
		meanPos := neighbourPosSum.Mul(1 / float32(count))

		outward := fluidPos[i].Sub(meanPos)
		if outward.Len() > 1e-6 {
			outward = outward.Normalize()
			if vi.Len() > 1e-6 {
				align := vi.Normalize().Dot(outward)
				if align > p.Sharpness {
					surfaceMask := 1 - clamp01(float32(count)/p.SurfaceCap)
					wavecrest = vi.Sub(meanVel).Len() * surfaceMask
				}
			}
		}
	}

	var turbulence float32
	if weightSum > 0 {
		turbulence = varianceSum / weightSum
	}

	energy := remap01(vi.Dot(vi), p.EnergyMin, p.EnergyMax)

	return spawnSignals{trappedAir: air, wavecrest: wavecrest, turbulence: turbulence, energy: energy}
}

// SpawnRequest is the resolved spawn decision for one fluid particle: how
// many foam particles to create and from which fluid particle.
type SpawnRequest struct {
	FluidIndex int
	Count      int
}

// Plan evaluates spec §4.F step 1 for every fluid particle and returns the
// stochastically-rounded spawn counts. frameSeed should vary per frame
// (e.g. a frame counter) so the same fluid configuration does not spawn an
// identical pattern every frame.
func Plan(fluidPos, fluidVel []mgl32.Vec3, g grid.NeighbourGrid, sorted grid.Sorted, h float32, p SpawnParams, obstacleFactor, dt float32, frameSeed uint32) []SpawnRequest {
	scales := kernels.NewScales(h)
	var requests []SpawnRequest

	for i := range fluidPos {
		sig := computeSignals(i, fluidPos, fluidVel, g, sorted, h, scales, p)
		lambda := p.Rate * sig.energy * (0.45*sig.trappedAir + 0.30*sig.wavecrest + 0.25*sig.turbulence) * obstacleFactor * dt
		if lambda <= 0 {
			continue
		}

		whole := int(lambda)
		frac := lambda - float32(whole)
		if hashToUnit(uint32(i)^frameSeed*2654435761) < frac {
			whole++
		}
		if whole > p.PerParticleCap {
			whole = p.PerParticleCap
		}
		if whole > 0 {
			requests = append(requests, SpawnRequest{FluidIndex: i, Count: whole})
		}
	}
	return requests
}

// Spawn allocates ring slots for every request and initializes them (spec
// §4.F steps 2-3): position jittered in a velocity-aligned disk, velocity
// perturbed from the source fluid particle, lifetime and scale drawn from
// configured ranges.
func Spawn(ring *Ring, fluidPos, fluidVel []mgl32.Vec3, requests []SpawnRequest, p SpawnParams, frameSeed uint32) {
	total := 0
	for _, r := range requests {
		total += r.Count
	}
	if total == 0 {
		return
	}
	indices := ring.Alloc(total)
	particles := ring.Particles()

	slot := 0
	for _, req := range requests {
		srcPos := fluidPos[req.FluidIndex]
		srcVel := fluidVel[req.FluidIndex]

		for k := 0; k < req.Count; k++ {
			idx := indices[slot]
			seed := uint32(req.FluidIndex)*9781 + uint32(k)*131 + frameSeed

			disk := velocityAlignedJitter(srcVel, seed)
			lifetimeT := hashToUnit(seed ^ 0xA5A5A5A5)
			scaleT := hashToUnit(seed ^ 0x5A5A5A5A)

			particles[idx] = Particle{
				Pos:        srcPos.Add(disk),
				Vel:        srcVel.Add(velocityPerturb(seed)),
				Lifetime:   p.LifetimeMin + lifetimeT*(p.LifetimeMax-p.LifetimeMin),
				Scale:      p.BubbleScale + scaleT*(1-p.BubbleScale),
				StateTag:   StateUnknown,
				Hysteresis: 0,
			}
			slot++
		}
	}
}

// velocityAlignedJitter produces a small offset in the disk perpendicular
// to vel, so spawned particles fan out across the fluid surface rather than
// stacking along the velocity axis.
func velocityAlignedJitter(vel mgl32.Vec3, seed uint32) mgl32.Vec3 {
	axis := vel
	if axis.Len() < 1e-6 {
		axis = mgl32.Vec3{0, 1, 0}
	} else {
		axis = axis.Normalize()
	}
	var tangent mgl32.Vec3
	if absf32(axis.Y()) < 0.99 {
		tangent = axis.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	} else {
		tangent = axis.Cross(mgl32.Vec3{1, 0, 0}).Normalize()
	}
	bitangent := axis.Cross(tangent)

	a := (hashToUnit(seed) - 0.5) * 2
	b := (hashToUnit(seed^0xDEADBEEF) - 0.5) * 2
	const diskRadius = 0.05
	return tangent.Mul(a * diskRadius).Add(bitangent.Mul(b * diskRadius))
}

func velocityPerturb(seed uint32) mgl32.Vec3 {
	const strength = 0.2
	return mgl32.Vec3{
		(hashToUnit(seed+1) - 0.5) * strength,
		(hashToUnit(seed+2) - 0.5) * strength,
		(hashToUnit(seed+3) - 0.5) * strength,
	}
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
