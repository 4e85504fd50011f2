package sph

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/grid"
)

// TestStepFLIP2DBlendsTowardCellAverage verifies StepFLIP2D's grid-transfer
// blend (spec §4.D supplement): with flipRatio=1 every particle sharing a
// cell ends the step at exactly that cell's average velocity, since the
// underlying SPH substep is given zero forces to perturb it.
func TestStepFLIP2DBlendsTowardCellAverage(t *testing.T) {
	c := config.Default()
	c.Mode2D = true
	c.Gravity = 0
	c.ViscosityStrength = 0
	p := DeriveParams(c)
	g := grid.NewLinearGrid(mgl32.Vec3{c.BoundsSize[0], c.BoundsSize[1], c.BoundsSize[2]}, p.H, true)

	s := &State{
		N:           2,
		Pos:         []mgl32.Vec3{{0, 0, 0}, {p.H * 0.1, 0, 0}},
		Vel:         []mgl32.Vec3{{1, 0, 0}, {-1, 0, 0}},
		Pred:        make([]mgl32.Vec3, 2),
		Density:     make([]float32, 2),
		NearDensity: make([]float32, 2),
	}
	copy(s.Pred, s.Pos)

	StepFLIP2D(s, g, p, nil, nil, 0, 1.0)

	for i := 0; i < s.N; i++ {
		if absf(s.Vel[i].Y()) > 1e-4 || absf(s.Vel[i].Z()) > 1e-4 {
			t.Fatalf("particle %d velocity %v has non-zero y/z component after FLIP blend", i, s.Vel[i])
		}
		if absf(s.Vel[i].X()) > 1e-4 {
			t.Fatalf("particle %d velocity %v did not blend to the cell average (expected ~0)", i, s.Vel[i])
		}
	}
}

// TestStepFLIP2DZeroRatioMatchesStep verifies flipRatio=0 leaves the result
// identical to a plain Step, i.e. the grid-transfer blend is skipped.
func TestStepFLIP2DZeroRatioMatchesStep(t *testing.T) {
	c := config.Default()
	c.Mode2D = true
	s1, p, g1 := newTestState(c)
	s2, _, g2 := newTestState(c)

	dt := float32(1.0 / 60.0)
	Step(s1, g1, p, nil, nil, dt)
	StepFLIP2D(s2, g2, p, nil, nil, dt, 0)

	for i := 0; i < s1.N; i++ {
		if s1.Vel[i].Sub(s2.Vel[i]).Len() > 1e-5 {
			t.Fatalf("particle %d: Step vel %v diverged from StepFLIP2D(ratio=0) vel %v", i, s1.Vel[i], s2.Vel[i])
		}
	}
}
