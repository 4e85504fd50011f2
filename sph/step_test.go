package sph

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/grid"
)

func newTestState(c *config.Config) (*State, Params, grid.NeighbourGrid) {
	s := Reset(c)
	p := DeriveParams(c)
	g := grid.NewLinearGrid(mgl32.Vec3{c.BoundsSize[0], c.BoundsSize[1], c.BoundsSize[2]}, p.H, false)
	return s, p, g
}

// TestBoundsContainment verifies property 3: no particle's position ever
// leaves the half-open bounds interior across many frames.
func TestBoundsContainment(t *testing.T) {
	c := config.Default()
	s, p, g := newTestState(c)

	for frame := 0; frame < 60; frame++ {
		StepFrame(s, g, p, nil, nil, 1.0/60.0, c.IterationsPerFrame)
	}

	eps := float32(1e-4) * c.BoundsSize[0]
	for i := 0; i < s.N; i++ {
		for axis := 0; axis < 3; axis++ {
			limit := p.BoundsHalf[axis] - p.BoundsPadding + eps
			if math.Abs(float64(s.Pos[i][axis])) > float64(limit) {
				t.Fatalf("particle %d axis %d = %v exceeds limit %v at frame %d", i, axis, s.Pos[i][axis], limit, frame)
			}
		}
	}
}

// TestMomentumSymmetry verifies property 4: for a pair of particles within
// h, the pressure impulse added to i equals the negated impulse added to j
// in the same substep. We isolate exactly two particles so the neighbour
// loop only ever sees each other.
func TestMomentumSymmetry(t *testing.T) {
	c := config.Default()
	c.Gravity = 0
	c.ViscosityStrength = 0
	p := DeriveParams(c)

	s := &State{
		N:           2,
		Pos:         []mgl32.Vec3{{0, 0, 0}, {p.H * 0.5, 0, 0}},
		Vel:         []mgl32.Vec3{{0, 0, 0}, {0, 0, 0}},
		Pred:        make([]mgl32.Vec3, 2),
		Density:     make([]float32, 2),
		NearDensity: make([]float32, 2),
	}
	copy(s.Pred, s.Pos)

	g := grid.NewLinearGrid(mgl32.Vec3{c.BoundsSize[0], c.BoundsSize[1], c.BoundsSize[2]}, p.H, false)

	velBefore := append([]mgl32.Vec3(nil), s.Vel...)
	Step(s, g, p, nil, nil, 1.0/60.0)

	// find the two particles again by original identity is impossible post-sort
	// (spec: "no identity across sort passes"), but with exactly two particles
	// and symmetric initial conditions, total momentum must still be conserved:
	// the fixed external force (gravity=0 here) contributes nothing, so any
	// momentum change must come from the pairwise-symmetric pressure impulse,
	// which sums to zero by construction.
	totalBefore := velBefore[0].Add(velBefore[1])
	totalAfter := s.Vel[0].Add(s.Vel[1])

	const tol = 1e-3
	for axis := 0; axis < 3; axis++ {
		diff := totalAfter[axis] - totalBefore[axis]
		if diff < -tol || diff > tol {
			t.Fatalf("axis %d: total momentum changed by %v (before=%v after=%v), want ~0 with gravity=0", axis, diff, totalBefore, totalAfter)
		}
	}
}

func TestObstacleBoxClampsPenetration(t *testing.T) {
	o := &Obstacle{Enabled: true, Shape: ObstacleBox, Center: mgl32.Vec3{0, 0, 0}, HalfExtents: mgl32.Vec3{1, 1, 1}}
	pos := mgl32.Vec3{0.1, 0, 0}
	vel := mgl32.Vec3{-1, 0, 0}
	collideObstacle(&pos, &vel, o, 0.5)
	if pos.X() != 1 {
		t.Fatalf("expected clamp to box surface x=1, got %v", pos.X())
	}
	if vel.X() <= 0 {
		t.Fatalf("expected velocity reflected outward, got %v", vel.X())
	}
}

func TestObstacleSphereClampsPenetration(t *testing.T) {
	o := &Obstacle{Enabled: true, Shape: ObstacleSphere, Center: mgl32.Vec3{0, 0, 0}, Radius: 2}
	pos := mgl32.Vec3{1, 0, 0}
	vel := mgl32.Vec3{-1, 0, 0}
	collideObstacle(&pos, &vel, o, 0.5)
	if pos.Len() < 1.999 || pos.Len() > 2.001 {
		t.Fatalf("expected position pushed to sphere surface (len=2), got %v", pos.Len())
	}
}

func TestCollideBoundaryClampsAndDamps(t *testing.T) {
	c := config.Default()
	p := DeriveParams(c)
	pos := mgl32.Vec3{p.BoundsHalf[0] + 1, 0, 0}
	vel := mgl32.Vec3{5, 0, 0}
	collideBoundary(&pos, &vel, p)
	if pos.X() != p.BoundsHalf[0]-p.BoundsPadding {
		t.Fatalf("expected clamp to %v, got %v", p.BoundsHalf[0]-p.BoundsPadding, pos.X())
	}
	if vel.X() >= 0 {
		t.Fatalf("expected negated velocity, got %v", vel.X())
	}
}
