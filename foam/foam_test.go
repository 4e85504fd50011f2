package foam

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/grid"
)

func TestRingAllocWrapsModuloCapacity(t *testing.T) {
	r := NewRing(8)
	indices := r.Alloc(5)
	if len(indices) != 5 {
		t.Fatalf("expected 5 indices, got %d", len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= 8 {
			t.Fatalf("index %d out of range [0,8)", idx)
		}
	}

	more := r.Alloc(6)
	for _, idx := range more {
		if idx < 0 || idx >= 8 {
			t.Fatalf("wrapped index %d out of range [0,8)", idx)
		}
	}
}

// TestRingNeverExceedsCapacityLiveCount is property 8 / scenario S6:
// with M >= peak live count, live-particle count never exceeds M (trivially
// true since the ring has exactly M slots). Slot distinctness within one
// Alloc call is checked by TestAllocIndicesWithinOneCallAreDistinctUnderCapacity.
func TestRingNeverExceedsCapacityLiveCount(t *testing.T) {
	const capacity = 64
	r := NewRing(capacity)
	particles := r.Particles()
	for i := range particles {
		particles[i].Lifetime = 1
	}
	if r.LiveCount() != capacity {
		t.Fatalf("expected all %d slots live, got %d", capacity, r.LiveCount())
	}
	if r.LiveCount() > r.Capacity() {
		t.Fatalf("live count %d exceeds capacity %d", r.LiveCount(), r.Capacity())
	}
}

func TestAllocIndicesWithinOneCallAreDistinctUnderCapacity(t *testing.T) {
	r := NewRing(100)
	indices := r.Alloc(10)
	seen := make(map[int]bool)
	for _, idx := range indices {
		if seen[idx] {
			t.Fatalf("duplicate index %d within a single Alloc call under capacity", idx)
		}
		seen[idx] = true
	}
}

func TestPlanProducesNoSpawnForStillFluid(t *testing.T) {
	fluidPos := []mgl32.Vec3{{0, 0, 0}, {0.1, 0, 0}, {0, 0.1, 0}}
	fluidVel := []mgl32.Vec3{{}, {}, {}}
	g := grid.NewLinearGrid(mgl32.Vec3{10, 10, 10}, 0.5, false)
	sorted := g.Rebuild(fluidPos)

	p := DefaultSpawnParams()
	p.Rate = 1000
	p.EnergyMin = 0
	p.EnergyMax = 1

	requests := Plan(fluidPos, fluidVel, g, sorted, 0.5, p, 1, 1.0/60.0, 1)
	for _, req := range requests {
		if req.Count > 0 {
			t.Fatalf("still fluid (zero velocity) should not spawn foam, got count %d for particle %d", req.Count, req.FluidIndex)
		}
	}
}

func TestSpawnInitializesLiveParticles(t *testing.T) {
	ring := NewRing(16)
	fluidPos := []mgl32.Vec3{{0, 0, 0}}
	fluidVel := []mgl32.Vec3{{2, 0, 0}}
	requests := []SpawnRequest{{FluidIndex: 0, Count: 3}}

	sp := DefaultSpawnParams()
	sp.LifetimeMin = 0.5
	sp.LifetimeMax = 2
	Spawn(ring, fluidPos, fluidVel, requests, sp, 1)

	if ring.LiveCount() != 3 {
		t.Fatalf("expected 3 live particles after spawn, got %d", ring.LiveCount())
	}
	for _, p := range ring.Particles() {
		if p.Lifetime > 0 {
			if p.Lifetime < 0.5 || p.Lifetime > 2 {
				t.Fatalf("lifetime %v out of configured range [0.5,2]", p.Lifetime)
			}
		}
	}
}

func TestClassifySpraysIsolatedParticle(t *testing.T) {
	ring := NewRing(4)
	particles := ring.Particles()
	particles[0] = Particle{Pos: mgl32.Vec3{100, 100, 100}, Lifetime: 1}

	fluidPos := []mgl32.Vec3{{0, 0, 0}}
	g := grid.NewLinearGrid(mgl32.Vec3{10, 10, 10}, 0.5, false)
	sorted := g.Rebuild(fluidPos)

	Classify(ring, fluidPos, g, sorted, 0.5, DefaultClassifyParams())
	if particles[0].StateTag != StateSpray {
		t.Fatalf("isolated foam particle should classify as spray, got %v", particles[0].StateTag)
	}
}

func TestClassifyHysteresisPreventsSingleFrameFlicker(t *testing.T) {
	cp := DefaultClassifyParams()
	cp.HysteresisThreshold = 3

	ring := NewRing(4)
	particles := ring.Particles()
	particles[0] = Particle{Pos: mgl32.Vec3{0, 0, 0}, Lifetime: 1, StateTag: StateFoam}

	// dense fluid neighbourhood well below the mean plane -> candidate bubble
	fluidPos := make([]mgl32.Vec3, 0, 20)
	for i := 0; i < 20; i++ {
		fluidPos = append(fluidPos, mgl32.Vec3{float32(i%4) * 0.05, 0.3, float32(i/4) * 0.05})
	}
	g := grid.NewLinearGrid(mgl32.Vec3{10, 10, 10}, 0.5, false)
	sorted := g.Rebuild(fluidPos)

	Classify(ring, fluidPos, g, sorted, 0.5, cp)
	if particles[0].StateTag != StateFoam {
		t.Fatalf("single disagreeing frame should not flip state yet, got %v", particles[0].StateTag)
	}
}

func TestIntegrateDecaysLifetime(t *testing.T) {
	ring := NewRing(4)
	particles := ring.Particles()
	particles[0] = Particle{Pos: mgl32.Vec3{0, 0, 0}, Lifetime: 1, StateTag: StateFoam}

	fluidPos := []mgl32.Vec3{{5, 5, 5}}
	fluidVel := []mgl32.Vec3{{0, 0, 0}}
	g := grid.NewLinearGrid(mgl32.Vec3{20, 20, 20}, 0.5, false)
	sorted := g.Rebuild(fluidPos)

	ip := IntegrateParams{DecayFoam: 1, BoundsHalf: [3]float32{10, 10, 10}, BoundsPadding: 0.1}
	Integrate(ring, fluidPos, fluidVel, g, sorted, 0.5, ip, 0.5)

	if particles[0].Lifetime >= 1 {
		t.Fatalf("expected lifetime to decay below 1, got %v", particles[0].Lifetime)
	}
}
