package sph

import "github.com/go-gl/mathgl/mgl32"

// Interaction is the user-interaction tool state delivered once per frame
// (spec §6 "Pointer input"): a world-space cursor position and pull/push
// button discrimination.
type Interaction struct {
	Active bool
	Pull   bool
	Push   bool
	Point  mgl32.Vec3
}

// force returns the centre-weighted radial acceleration toward (pull) or
// away from (push) the interaction point, blended over falloff
// centreT=1-dist/R (spec §4.D step 1).
func (in *Interaction) force(pos mgl32.Vec3, p Params) mgl32.Vec3 {
	if in == nil || !in.Active || p.InteractionRadius <= 0 {
		return mgl32.Vec3{}
	}
	toPoint := in.Point.Sub(pos)
	dist := toPoint.Len()
	if dist >= p.InteractionRadius || dist < 1e-6 {
		return mgl32.Vec3{}
	}
	centreT := 1 - dist/p.InteractionRadius
	dir := toPoint.Mul(1 / dist)
	sign := float32(1)
	if in.Push {
		sign = -1
	}
	return dir.Mul(sign * p.InteractionStrength * centreT)
}
