// Package spawn produces the initial particle cloud from the configured
// spawn regions (spec §4.A): a regular lattice per region, perturbed by
// deterministic jitter from a seeded LCG so identical config+seed always
// yields byte-identical arrays (spec §4.A determinism requirement, property
// "S4 reset determinism" in spec §8).
package spawn

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/config"
)

// lcgMultiplier/lcgIncrement are the Numerical-Recipes constants for a
// 32-bit LCG of period 2^32, matching the spec's "seeded LCG of period 2^32"
// requirement exactly.
const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// RNG is a minimal seeded linear congruential generator. It exists instead
// of math/rand so the exact bit sequence is specified and portable across a
// future WGSL re-implementation of the same spawn pass -- math/rand's
// algorithm is not part of Go's compatibility promise.
type RNG struct {
	state uint32
}

// NewRNG seeds the generator. Seed 0 is remapped to 1 so the all-zero fixed
// point of the LCG (0 -> 0 forever) is never reachable from config.
func NewRNG(seed uint32) *RNG {
	if seed == 0 {
		seed = 1
	}
	return &RNG{state: seed}
}

// Next advances the generator and returns the new raw state.
func (r *RNG) Next() uint32 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return r.state
}

// Float01 returns a deterministic pseudo-random value in [0,1]; the largest
// state values map to 1.
func (r *RNG) Float01() float32 {
	return float32(r.Next()) / float32(math.MaxUint32)
}

// SignedUnit returns a deterministic pseudo-random value in [-1,1].
func (r *RNG) SignedUnit() float32 {
	return r.Float01()*2 - 1
}

// Result is the spawned particle cloud: positions and velocities of equal
// length, with no identity carried beyond this point (spec §3: "No identity
// across sort passes").
type Result struct {
	Positions  []mgl32.Vec3
	Velocities []mgl32.Vec3
}

// Generate builds the initial particle cloud from c.SpawnRegions at
// c.SpawnDensity, each particle's initial velocity set to
// c.InitialVelocity, jittered by c.JitterStrength using a RNG seeded from
// c.Seed. Assumes c has already passed config.Validate -- it does not
// re-check region positivity.
func Generate(c *config.Config) Result {
	rng := NewRNG(c.Seed)

	var positions []mgl32.Vec3
	var velocities []mgl32.Vec3

	initVel := mgl32.Vec3{c.InitialVelocity[0], c.InitialVelocity[1], c.InitialVelocity[2]}

	for _, region := range c.SpawnRegions {
		size := mgl32.Vec3{region.Size[0], region.Size[1], region.Size[2]}
		center := mgl32.Vec3{region.Center[0], region.Center[1], region.Center[2]}
		counts := axisCounts(size, c.SpawnDensity)

		spacing := mgl32.Vec3{
			divOrZero(size[0], float32(counts[0])),
			divOrZero(size[1], float32(counts[1])),
			divOrZero(size[2], float32(counts[2])),
		}
		origin := center.Sub(size.Mul(0.5))

		for ix := 0; ix < counts[0]; ix++ {
			for iy := 0; iy < counts[1]; iy++ {
				for iz := 0; iz < counts[2]; iz++ {
					lattice := mgl32.Vec3{
						origin[0] + (float32(ix)+0.5)*spacing[0],
						origin[1] + (float32(iy)+0.5)*spacing[1],
						origin[2] + (float32(iz)+0.5)*spacing[2],
					}
					jitter := mgl32.Vec3{
						rng.SignedUnit() * c.JitterStrength,
						rng.SignedUnit() * c.JitterStrength,
						rng.SignedUnit() * c.JitterStrength,
					}
					positions = append(positions, lattice.Add(jitter))
					velocities = append(velocities, initVel)
				}
			}
		}
	}

	return Result{Positions: positions, Velocities: velocities}
}

// axisCounts picks a per-axis particle count so the product approximates
// density*volume(region) while the per-axis ratio matches the region's
// aspect ratio (spec §4.A).
func axisCounts(size mgl32.Vec3, density float32) [3]int {
	volume := size[0] * size[1] * size[2]
	if volume <= 0 || density <= 0 {
		return [3]int{0, 0, 0}
	}
	total := density * volume
	// n_i proportional to size_i; n_x*n_y*n_z = total and n_i/n_j = size_i/size_j
	// => n_i = cubeRoot(total) * (size_i / geometricMeanSize)
	geoMean := float32(math.Cbrt(float64(volume)))
	cubeRootTotal := float32(math.Cbrt(float64(total)))

	var counts [3]int
	for i := 0; i < 3; i++ {
		n := cubeRootTotal * (size[i] / geoMean)
		c := int(math.Round(float64(n)))
		if c < 1 {
			c = 1
		}
		counts[i] = c
	}
	return counts
}

func divOrZero(numerator float32, denom float32) float32 {
	if denom == 0 {
		return 0
	}
	return numerator / denom
}
