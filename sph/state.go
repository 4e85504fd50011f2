// Package sph implements the GPU-resident SPH physics core's CPU reference
// algorithm (spec §4.D): predictor integration, double-density pressure
// solve, viscosity, boundary and obstacle collision, and the interaction
// tool force. It shares its kernels and per-pair formulas with the WGSL
// compute shaders in package shaders/; the two paths are not bit-identical.
package sph

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/spawn"
)

// State holds the reindexed per-particle arrays (spec §3 "Particle set").
// There is no identity across sort passes -- every array is reindexed
// together by the same grid permutation each substep.
type State struct {
	N int

	Pos  []mgl32.Vec3
	Vel  []mgl32.Vec3
	Pred []mgl32.Vec3

	Density     []float32
	NearDensity []float32
}

// NewState builds a State from a freshly spawned particle cloud.
func NewState(spawned spawn.Result) *State {
	n := len(spawned.Positions)
	return &State{
		N:           n,
		Pos:         append([]mgl32.Vec3(nil), spawned.Positions...),
		Vel:         append([]mgl32.Vec3(nil), spawned.Velocities...),
		Pred:        make([]mgl32.Vec3, n),
		Density:     make([]float32, n),
		NearDensity: make([]float32, n),
	}
}

// Reset re-derives the state from config, discarding all current motion --
// used by the scenario harness and by S4 "reset determinism".
func Reset(c *config.Config) *State {
	return NewState(spawn.Generate(c))
}

// reindex applies a grid permutation to every per-particle array in place,
// mirroring spec §4.C step 4's "swap double-buffered arrays".
func (s *State) reindex(permutation []int) {
	s.Pos = permuteVec3(s.Pos, permutation)
	s.Vel = permuteVec3(s.Vel, permutation)
	s.Pred = permuteVec3(s.Pred, permutation)
	s.Density = permuteFloat(s.Density, permutation)
	s.NearDensity = permuteFloat(s.NearDensity, permutation)
}

func permuteVec3(values []mgl32.Vec3, permutation []int) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(permutation))
	for newIdx, oldIdx := range permutation {
		out[newIdx] = values[oldIdx]
	}
	return out
}

func permuteFloat(values []float32, permutation []int) []float32 {
	out := make([]float32, len(permutation))
	for newIdx, oldIdx := range permutation {
		out[newIdx] = values[oldIdx]
	}
	return out
}
