package sph

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/grid"
)

// StepFLIP2D is the 2D FLIP-flavoured variant named in the Glossary
// ("FLIP ... used in 2D variant's grid solver"). It runs the same
// double-density SPH substep as Step (z locked to 0 by the caller's
// grid.Mode2D=true), then blends each particle's velocity toward a
// cell-local average ("grid" velocity) by Config.FlipRatio: ratio 0 behaves
// as pure SPH, ratio 1 behaves as a fully grid-averaged (PIC-like) update.
// This is a deliberately minimal grid transfer -- a full staggered MAC grid
// solver is out of scope; see DESIGN.md.
func StepFLIP2D(s *State, g grid.NeighbourGrid, p Params, obstacle *Obstacle, interaction *Interaction, dt float32, flipRatio float32) {
	Step(s, g, p, obstacle, interaction, dt)
	if flipRatio <= 0 {
		return
	}

	sorted := g.Rebuild(s.Pos)
	s.reindex(sorted.Permutation)

	cellSum := make(map[int32]mgl32.Vec3, len(sorted.CellOf))
	cellCount := make(map[int32]int, len(sorted.CellOf))
	for idx, key := range sorted.CellOf {
		cellSum[key] = cellSum[key].Add(s.Vel[idx])
		cellCount[key]++
	}

	for idx, key := range sorted.CellOf {
		avg := cellSum[key].Mul(1 / float32(cellCount[key]))
		s.Vel[idx] = s.Vel[idx].Mul(1 - flipRatio).Add(avg.Mul(flipRatio))
	}
}
