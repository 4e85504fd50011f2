package sph

import "github.com/gekko3d/fluidkit/config"

// Params is the set of per-frame derived physics constants, rescaled from
// particleRadius per the parameter-scaling contract (spec §4.D): when
// particle radius changes at runtime, h scales with r, restDensity with
// r^2, the pressure multipliers with 1/r^2, and viscosity with 1/r.
type Params struct {
	H                      float32
	RestDensity            float32
	PressureMultiplier     float32
	NearPressureMultiplier float32
	Viscosity              float32

	Gravity          float32
	CollisionDamping float32
	BoundsHalf       [3]float32
	BoundsPadding    float32

	InteractionRadius   float32
	InteractionStrength float32
}

// baseParticleRadius is the radius the config's other numbers are specified
// relative to; scaling is only applied when c.ParticleRadius differs from
// this reference.
const baseParticleRadius float32 = 0.08

// DeriveParams rescales config values by the parameter-scaling contract
// relative to baseParticleRadius, then packs them for the step functions.
func DeriveParams(c *config.Config) Params {
	ratio := c.ParticleRadius / baseParticleRadius
	if ratio <= 0 {
		ratio = 1
	}

	return Params{
		H:                      c.SmoothingRadius * ratio,
		RestDensity:            c.TargetDensity * ratio * ratio,
		PressureMultiplier:     c.PressureMultiplier / (ratio * ratio),
		NearPressureMultiplier: c.NearPressureMultiplier / (ratio * ratio),
		Viscosity:              c.ViscosityStrength / ratio,

		Gravity:          c.Gravity,
		CollisionDamping: c.CollisionDamping,
		BoundsHalf:       [3]float32{c.BoundsSize[0] / 2, c.BoundsSize[1] / 2, c.BoundsSize[2] / 2},
		BoundsPadding:    c.BoundsPadding,

		InteractionRadius:   c.InteractionRadius,
		InteractionStrength: c.InteractionStrength,
	}
}
