package sph

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/grid"
	"github.com/gekko3d/fluidkit/kernels"
)

// predictionWindow is the fixed short-horizon extrapolation window for
// predicted position (spec §4.D step 1, Glossary "Predicted position"):
// independent of substep length.
const predictionWindow = float32(1.0 / 120.0)

// StepFrame advances the simulation by one frame: dt is pre-clamped to
// 1/maxFPS and scaled by timeScale by the caller (spec §4.D "Time-stepping"),
// then divided here into iterations substeps, each executed in full order.
func StepFrame(s *State, g grid.NeighbourGrid, p Params, obstacle *Obstacle, interaction *Interaction, dt float32, iterations int) {
	if iterations < 1 {
		iterations = 1
	}
	subDt := dt / float32(iterations)
	for i := 0; i < iterations; i++ {
		Step(s, g, p, obstacle, interaction, subDt)
	}
}

// Step executes one SPH substep on s in place, following spec §4.D's
// numbered protocol exactly: external forces, sort, density, pressure,
// viscosity, integrate & collide.
func Step(s *State, g grid.NeighbourGrid, p Params, obstacle *Obstacle, interaction *Interaction, dt float32) {
	applyExternalForces(s, p, interaction, dt)

	sorted := g.Rebuild(s.Pred)
	s.reindex(sorted.Permutation)

	scales := kernels.NewScales(p.H)
	computeDensity(s, g, sorted, p.H, scales)
	applyPressure(s, g, sorted, p, scales, dt)
	applyViscosity(s, g, sorted, p, scales, dt)
	integrateAndCollide(s, obstacle, p, dt)
}

// applyExternalForces adds gravity and the interaction-tool force to
// velocity, then writes the fixed-window predicted position (spec §4.D
// step 1).
func applyExternalForces(s *State, p Params, interaction *Interaction, dt float32) {
	gravity := mgl32.Vec3{0, -p.Gravity, 0}
	for i := 0; i < s.N; i++ {
		f := gravity.Add(interaction.force(s.Pos[i], p))
		s.Vel[i] = s.Vel[i].Add(f.Mul(dt))
		s.Pred[i] = s.Pos[i].Add(s.Vel[i].Mul(predictionWindow))
	}
}

// neighboursOf walks the 27 (2D: 9) cells around pred[i] and calls visit for
// every other particle j whose predicted position lies in one of them.
func neighboursOf(s *State, g grid.NeighbourGrid, sorted grid.Sorted, i int, visit func(j int, r float32, dir mgl32.Vec3)) {
	cells := g.Neighbours(s.Pred[i])
	for _, c := range cells {
		if int(c)+1 >= len(sorted.CellOffset) {
			continue
		}
		lo, hi := sorted.CellOffset[c], sorted.CellOffset[c+1]
		for j := int(lo); j < int(hi); j++ {
			if j == i {
				continue
			}
			delta := s.Pred[j].Sub(s.Pred[i])
			r := delta.Len()
			if r > 1e-9 {
				visit(j, r, delta.Mul(1/r))
			} else {
				visit(j, 0, mgl32.Vec3{})
			}
		}
	}
}

// computeDensity accumulates density and near-density over neighbours
// within h (spec §4.D step 3, invariant 3).
func computeDensity(s *State, g grid.NeighbourGrid, sorted grid.Sorted, h float32, scales kernels.Scales) {
	for i := 0; i < s.N; i++ {
		var density, nearDensity float32
		neighboursOf(s, g, sorted, i, func(j int, r float32, _ mgl32.Vec3) {
			if r >= h {
				return
			}
			density += kernels.SpikyPow2(r, h, scales.SpikyPow2)
			nearDensity += kernels.SpikyPow3(r, h, scales.SpikyPow3)
		})
		s.Density[i] = density
		s.NearDensity[i] = nearDensity
	}
}

// applyPressure applies the double-density pressure impulse with mandatory
// shared-pressure symmetrization (spec §4.D step 4, invariant "Momentum
// symmetry"): computed per-particle then applied as a batch so particle i's
// impulse never reads an already-updated velocity for particle j.
func applyPressure(s *State, g grid.NeighbourGrid, sorted grid.Sorted, p Params, scales kernels.Scales, dt float32) {
	impulses := make([]mgl32.Vec3, s.N)

	pressureOf := func(i int) (float32, float32) {
		pr := p.PressureMultiplier * (s.Density[i] - p.RestDensity)
		prNear := p.NearPressureMultiplier * s.NearDensity[i]
		return pr, prNear
	}

	pr := make([]float32, s.N)
	prNear := make([]float32, s.N)
	for i := 0; i < s.N; i++ {
		pr[i], prNear[i] = pressureOf(i)
	}

	for i := 0; i < s.N; i++ {
		neighboursOf(s, g, sorted, i, func(j int, r float32, dir mgl32.Vec3) {
			if r >= p.H || s.Density[j] == 0 || s.NearDensity[j] == 0 {
				return
			}
			sharedPressure := (pr[i] + pr[j]) / 2
			sharedNear := (prNear[i] + prNear[j]) / 2
			mag := kernels.DerivSpikyPow2(r, p.H, scales.DerivSpikyPow2)*sharedPressure/s.Density[j] +
				kernels.DerivSpikyPow3(r, p.H, scales.DerivSpikyPow3)*sharedNear/s.NearDensity[j]
			impulses[i] = impulses[i].Add(dir.Mul(mag * dt))
		})
	}

	for i := 0; i < s.N; i++ {
		s.Vel[i] = s.Vel[i].Add(impulses[i])
	}
}

// applyViscosity adds XSPH-style velocity smoothing toward neighbours
// weighted by poly6 (spec §4.D step 5).
func applyViscosity(s *State, g grid.NeighbourGrid, sorted grid.Sorted, p Params, scales kernels.Scales, dt float32) {
	impulses := make([]mgl32.Vec3, s.N)
	for i := 0; i < s.N; i++ {
		neighboursOf(s, g, sorted, i, func(j int, r float32, _ mgl32.Vec3) {
			if r >= p.H {
				return
			}
			w := kernels.Poly6(r, p.H, scales.Poly6)
			impulses[i] = impulses[i].Add(s.Vel[j].Sub(s.Vel[i]).Mul(p.Viscosity * dt * w))
		})
	}
	for i := 0; i < s.N; i++ {
		s.Vel[i] = s.Vel[i].Add(impulses[i])
	}
}

// integrateAndCollide advances position by velocity*dt, then clamps against
// bounds and the active obstacle (spec §4.D step 6, invariant 4).
func integrateAndCollide(s *State, obstacle *Obstacle, p Params, dt float32) {
	for i := 0; i < s.N; i++ {
		s.Pos[i] = s.Pos[i].Add(s.Vel[i].Mul(dt))
		collideBoundary(&s.Pos[i], &s.Vel[i], p)
		collideObstacle(&s.Pos[i], &s.Vel[i], obstacle, p.CollisionDamping)
	}
}
