// Package grid implements the deterministic neighbour-search structures of
// spec §4.C: the canonical linear grid (direct cell linearization, "rank +
// start" contention-free scatter) and the legacy hash-mod-N grid (kept per
// the Design Notes' open question -- "note but do not decide").
package grid

import "github.com/go-gl/mathgl/mgl32"

// NeighbourGrid is the common contract both grid variants satisfy: sort
// particles into cell-contiguous order and expose the resulting offset
// table and permutation, so sph.Step can walk 3x3x3 (2D: 3x3) neighbour
// cells in O(1) per cell regardless of which grid backs the simulation.
type NeighbourGrid interface {
	// Rebuild sorts pred (N predicted positions) into cell-contiguous order,
	// returning the permutation old->new index used to reindex every other
	// per-particle array (positions, velocities, ...).
	Rebuild(pred []mgl32.Vec3) Sorted

	// CellCount reports C, the total addressable cell count (sentinel index
	// cellOffset[C] always equals N).
	CellCount() int

	// Neighbours returns the cell indices of the 3x3x3 (2D: 3x3) block
	// surrounding the cell containing p, to be looked up in the Sorted
	// returned by the most recent Rebuild.
	Neighbours(p mgl32.Vec3) []int32
}

// Sorted is the result of one Rebuild call: the permutation and the
// resulting cell offset table (spec §3 "Cell offset table").
type Sorted struct {
	// Permutation[newIndex] = oldIndex. Applying it to every per-particle
	// array reindexes them consistently (spec §4.C step 4).
	Permutation []int

	// CellOffset has length CellCount()+1; CellOffset[c] is the first
	// reindexed slot of cell c, CellOffset[C] == N (spec §3 invariant 1).
	CellOffset []uint32

	// CellOf[newIndex] is the cell key the particle at that reindexed slot
	// belongs to, useful for neighbour iteration without recomputing keys.
	CellOf []int32
}

// cellCoords floors (pred-min)/h per axis -- spec §4.C step 1.
func cellCoords(p, min mgl32.Vec3, h float32) (int32, int32, int32) {
	return floorDiv(p[0]-min[0], h), floorDiv(p[1]-min[1], h), floorDiv(p[2]-min[2], h)
}

func floorDiv(v, h float32) int32 {
	if h == 0 {
		return 0
	}
	q := v / h
	i := int32(q)
	if q < 0 && float32(i) != q {
		i--
	}
	return i
}

// clampCoord keeps a cell coordinate within [0, dim-1] so particles at or
// just past the configured bounds (before collision clamps position next
// frame) still land in a valid, addressable cell.
func clampCoord(c, dim int32) int32 {
	if c < 0 {
		return 0
	}
	if c >= dim {
		return dim - 1
	}
	return c
}

// countingSort implements the "rank + start" protocol shared by both grid
// variants (spec §4.C steps 1-3): key pass with per-cell rank via counters,
// exclusive prefix-sum scan, contention-free scatter.
func countingSort(keys []int32, cellCount int) Sorted {
	n := len(keys)
	population := make([]uint32, cellCount)
	for _, k := range keys {
		population[k]++
	}

	cellOffset := make([]uint32, cellCount+1)
	var running uint32
	for c := 0; c < cellCount; c++ {
		cellOffset[c] = running
		running += population[c]
	}
	cellOffset[cellCount] = running

	// rank_i: 0-based index among particles sharing key k_i, assigned by a
	// per-cell counter that mirrors the atomic fetch-add of the GPU kernel.
	cursor := make([]uint32, cellCount)
	copy(cursor, cellOffset[:cellCount])

	permutation := make([]int, n)
	cellOf := make([]int32, n)
	for i, k := range keys {
		dest := cursor[k]
		cursor[k]++
		permutation[dest] = i
		cellOf[dest] = k
	}

	return Sorted{Permutation: permutation, CellOffset: cellOffset, CellOf: cellOf}
}

// Reindex applies a Sorted permutation to a per-particle array of any type,
// returning a freshly allocated reindexed copy (spec §4.C step 4 "swap
// double-buffered arrays" -- callers own the ping-pong, this just builds the
// new "back" buffer).
func Reindex[T any](values []T, sorted Sorted) []T {
	out := make([]T, len(sorted.Permutation))
	for newIdx, oldIdx := range sorted.Permutation {
		out[newIdx] = values[oldIdx]
	}
	return out
}

// NeighbourCells returns the up to 27 (2D: 9) cell indices surrounding the
// cell at integer coords (cx,cy,cz) within a grid of given per-axis
// dimensions. mode2D collapses the z range to a single layer.
func NeighbourCells(cx, cy, cz, gx, gy, gz int32, mode2D bool) []int32 {
	zLo, zHi := cz-1, cz+1
	if mode2D {
		zLo, zHi = 0, 0
		cz = 0
	}
	cells := make([]int32, 0, 27)
	for z := zLo; z <= zHi; z++ {
		if z < 0 || z >= gz {
			continue
		}
		for y := cy - 1; y <= cy+1; y++ {
			if y < 0 || y >= gy {
				continue
			}
			for x := cx - 1; x <= cx+1; x++ {
				if x < 0 || x >= gx {
					continue
				}
				cells = append(cells, x+gx*(y+gy*z))
			}
		}
	}
	return cells
}
