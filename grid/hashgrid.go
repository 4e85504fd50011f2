package grid

import "github.com/go-gl/mathgl/mgl32"

// Large-prime mixing constants for the legacy hash grid, grounded on the
// teacher's SpatialHashGrid.hashKey (mod_spatialgrid.go): three large,
// pairwise-coprime-ish primes XORed together then reduced mod bucket count.
const (
	hashPrimeX uint64 = 73856093
	hashPrimeY uint64 = 19349663
	hashPrimeZ uint64 = 83492791
)

// HashGrid is the legacy neighbour-search structure (spec §4.C, §9 Design
// Notes "legacy hash-mod-N sort"): deprecated in favour of LinearGrid
// because a hash collision across unrelated cells requires a rescan to
// disambiguate, but kept as an alternative implementation of the same
// NeighbourGrid contract -- see DESIGN.md's Open Question resolution.
type HashGrid struct {
	Min      mgl32.Vec3
	H        float32
	Buckets  int
	Mode2D   bool
}

// NewHashGrid builds a hash grid with the given bucket count N (spec: "hash
// mod N"). A higher bucket count reduces collision probability but this
// grid, unlike LinearGrid, never guarantees C equals the true cell count.
func NewHashGrid(bounds mgl32.Vec3, h float32, buckets int, mode2D bool) *HashGrid {
	if buckets < 1 {
		buckets = 1
	}
	return &HashGrid{
		Min:     bounds.Mul(-0.5),
		H:       h,
		Buckets: buckets,
		Mode2D:  mode2D,
	}
}

func (g *HashGrid) CellCount() int { return g.Buckets }

func (g *HashGrid) hashKey(cx, cy, cz int32) int32 {
	ux, uy, uz := uint64(uint32(cx)), uint64(uint32(cy)), uint64(uint32(cz))
	h := (ux * hashPrimeX) ^ (uy * hashPrimeY) ^ (uz * hashPrimeZ)
	return int32(h % uint64(g.Buckets))
}

func (g *HashGrid) key(p mgl32.Vec3) int32 {
	cx, cy, cz := cellCoords(p, g.Min, g.H)
	if g.Mode2D {
		cz = 0
	}
	return g.hashKey(cx, cy, cz)
}

// Rebuild sorts particles into hash-bucket-contiguous order via the same
// counting-sort protocol as LinearGrid, so it satisfies the identical
// partition invariant (spec §8 property 1) despite addressing cells
// differently.
func (g *HashGrid) Rebuild(pred []mgl32.Vec3) Sorted {
	keys := make([]int32, len(pred))
	for i, p := range pred {
		keys[i] = g.key(p)
	}
	return countingSort(keys, g.Buckets)
}

// Neighbours returns the bucket indices a query at p must scan: since two
// distinct geometric cells can alias to the same bucket, this degrades to
// scanning every bucket whose key could plausibly collide with any of the
// 27 (2D: 9) true neighbour cells -- the "requires rescan on key mismatch"
// cost the spec calls out as the reason this variant is deprecated.
func (g *HashGrid) Neighbours(p mgl32.Vec3) []int32 {
	cx, cy, cz := cellCoords(p, g.Min, g.H)
	if g.Mode2D {
		cz = 0
	}
	seen := make(map[int32]struct{}, 27)
	var out []int32
	zLo, zHi := cz-1, cz+1
	if g.Mode2D {
		zLo, zHi = 0, 0
	}
	for z := zLo; z <= zHi; z++ {
		for y := cy - 1; y <= cy+1; y++ {
			for x := cx - 1; x <= cx+1; x++ {
				k := g.hashKey(x, y, z)
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	return out
}
