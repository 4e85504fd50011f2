package grid

import "github.com/go-gl/mathgl/mgl32"

// LinearGrid is the canonical neighbour-search structure (spec §4.C): cells
// are addressed by direct linearization cx+gx*(cy+gy*cz), so C is the exact
// product of grid dimensions, never a modulo-N hash -- no rescans, no
// collisions.
type LinearGrid struct {
	Min    mgl32.Vec3
	H      float32
	Dims   [3]int32 // gx, gy, gz
	Mode2D bool

	lastKeys []int32
}

// NewLinearGrid derives per-axis cell counts covering bounds (centred at
// origin) with cell side h, per spec §3 "uniform cubic/square grid of
// side=smoothing radius covering sim bounds".
func NewLinearGrid(bounds mgl32.Vec3, h float32, mode2D bool) *LinearGrid {
	dimOf := func(size float32) int32 {
		d := int32(size/h) + 1
		if d < 1 {
			d = 1
		}
		return d
	}
	dims := [3]int32{dimOf(bounds[0]), dimOf(bounds[1]), dimOf(bounds[2])}
	if mode2D {
		dims[2] = 1
	}
	return &LinearGrid{
		Min:    bounds.Mul(-0.5),
		H:      h,
		Dims:   dims,
		Mode2D: mode2D,
	}
}

// CellCount returns C = gx*gy*gz (spec §4.C "C chosen as power of grid
// dimensions, not modulo-N").
func (g *LinearGrid) CellCount() int {
	return int(g.Dims[0]) * int(g.Dims[1]) * int(g.Dims[2])
}

func (g *LinearGrid) key(p mgl32.Vec3) int32 {
	cx, cy, cz := cellCoords(p, g.Min, g.H)
	cx = clampCoord(cx, g.Dims[0])
	cy = clampCoord(cy, g.Dims[1])
	if g.Mode2D {
		cz = 0
	} else {
		cz = clampCoord(cz, g.Dims[2])
	}
	return cx + g.Dims[0]*(cy+g.Dims[1]*cz)
}

// Rebuild sorts particles by cell key via the shared counting-sort protocol
// (spec §4.C steps 1-3).
func (g *LinearGrid) Rebuild(pred []mgl32.Vec3) Sorted {
	keys := make([]int32, len(pred))
	for i, p := range pred {
		keys[i] = g.key(p)
	}
	g.lastKeys = keys
	return countingSort(keys, g.CellCount())
}

// CellCoordsOf recovers (cx,cy,cz) from a linear key -- used by sph.Step to
// iterate the 27 (2D: 9) surrounding cells without recomputing predicted
// position math.
func (g *LinearGrid) CellCoordsOf(key int32) (cx, cy, cz int32) {
	gx, gy := g.Dims[0], g.Dims[1]
	cz = key / (gx * gy)
	rem := key % (gx * gy)
	cy = rem / gx
	cx = rem % gx
	return
}

// Neighbours returns the cell indices in the 3x3x3 (2D: 3x3) block around
// the cell containing p.
func (g *LinearGrid) Neighbours(p mgl32.Vec3) []int32 {
	cx, cy, cz := cellCoords(p, g.Min, g.H)
	cx = clampCoord(cx, g.Dims[0])
	cy = clampCoord(cy, g.Dims[1])
	if !g.Mode2D {
		cz = clampCoord(cz, g.Dims[2])
	}
	return NeighbourCells(cx, cy, cz, g.Dims[0], g.Dims[1], g.Dims[2], g.Mode2D)
}
