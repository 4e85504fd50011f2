package foam

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/grid"
)

// ClassifyParams tunes the hysteresis classifier (spec §4.F step 4).
type ClassifyParams struct {
	SprayMaxNeighbours  int
	BubbleMinNeighbours int
	BandHalfWidth       float32
	HysteresisThreshold uint8
}

// DefaultClassifyParams fills in the default classification thresholds; of
// these only HysteresisThreshold has a config knob (Foam.ClassifyHysteresis).
func DefaultClassifyParams() ClassifyParams {
	return ClassifyParams{
		SprayMaxNeighbours:  4,
		BubbleMinNeighbours: 8,
		BandHalfWidth:       0.15,
		HysteresisThreshold: 3,
	}
}

// pointNeighbours counts fluid particles within h of p and their mean
// height, using the grid's cell addressing around p directly (foam
// particles are not indexed members of the fluid arrays).
func pointNeighbours(p mgl32.Vec3, fluidPos []mgl32.Vec3, g grid.NeighbourGrid, sorted grid.Sorted, h float32) (count int, meanY float32) {
	var sumY float32
	cells := g.Neighbours(p)
	for _, c := range cells {
		if int(c)+1 >= len(sorted.CellOffset) {
			continue
		}
		lo, hi := sorted.CellOffset[c], sorted.CellOffset[c+1]
		for j := int(lo); j < int(hi); j++ {
			if fluidPos[j].Sub(p).Len() >= h {
				continue
			}
			count++
			sumY += fluidPos[j].Y()
		}
	}
	if count > 0 {
		meanY = sumY / float32(count)
	}
	return
}

// Classify reclassifies every live foam particle against its local fluid
// neighbourhood (spec §4.F step 4): few neighbours -> spray; many
// neighbours and sufficiently below the local fluid mean plane -> bubble;
// otherwise foam. A state change only commits once the hysteresis counter
// reaches the configured threshold; until then the previous state persists
// (invariant: no flicker on a single disagreeing frame).
func Classify(ring *Ring, fluidPos []mgl32.Vec3, g grid.NeighbourGrid, sorted grid.Sorted, h float32, cp ClassifyParams) {
	particles := ring.Particles()
	for i := range particles {
		p := &particles[i]
		if p.Lifetime <= 0 {
			continue
		}

		count, meanY := pointNeighbours(p.Pos, fluidPos, g, sorted, h)

		var candidate State
		switch {
		case count < cp.SprayMaxNeighbours:
			candidate = StateSpray
		case count > cp.BubbleMinNeighbours && p.Pos.Y() < meanY-cp.BandHalfWidth:
			candidate = StateBubble
		default:
			candidate = StateFoam
		}

		if p.StateTag == StateUnknown {
			p.StateTag = candidate
			p.Hysteresis = 0
			continue
		}

		if candidate == p.StateTag {
			p.Hysteresis = 0
			continue
		}

		p.Hysteresis++
		if p.Hysteresis >= cp.HysteresisThreshold {
			p.StateTag = candidate
			p.Hysteresis = 0
		}
	}
}
