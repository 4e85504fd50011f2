// Package density implements the CPU reference for the 3-pass density
// splat (spec §4.E): clear, splat (atomic fixed-point accumulation), and
// resolve (to a 16-bit float R-channel texture payload). The GPU path
// (package gpu/shaders) performs the identical three passes on-device; this
// package is what density_test.go exercises for the voxel round-trip
// property (spec §8 property 7).
package density

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/kernels"
)

// fixedPointScale is the accumulator's fixed-point scale factor (spec §4.E
// "e.g. x1000").
const fixedPointScale = 1000

// Volume is a 3D scalar field sized proportional to bounds, addressed by
// voxel index cx+Res.X*(cy+Res.Y*cz).
type Volume struct {
	Res    [3]int
	Min    mgl32.Vec3
	VoxelSize mgl32.Vec3

	accumulator []uint32 // fixed-point u32, spec invariant 6: zeroed every frame
	resolved    []uint16 // packed binary16, R channel payload
}

// NewVolume builds a volume covering bounds at the given resolution along
// the longest axis (spec §6 "densityTextureRes (longest-axis voxel
// count)"), scaling the other two axes to keep voxels roughly cubic.
func NewVolume(bounds mgl32.Vec3, longestAxisRes int) *Volume {
	longest := bounds[0]
	for axis := 1; axis < 3; axis++ {
		if bounds[axis] > longest {
			longest = bounds[axis]
		}
	}
	voxelSide := longest / float32(longestAxisRes)

	var res [3]int
	for axis := 0; axis < 3; axis++ {
		r := int(bounds[axis]/voxelSide + 0.5)
		if r < 1 {
			r = 1
		}
		res[axis] = r
	}

	total := res[0] * res[1] * res[2]
	return &Volume{
		Res:       res,
		Min:       bounds.Mul(-0.5),
		VoxelSize: mgl32.Vec3{voxelSide, voxelSide, voxelSide},
		accumulator: make([]uint32, total),
		resolved:    make([]uint16, total),
	}
}

func (v *Volume) index(cx, cy, cz int) int {
	return cx + v.Res[0]*(cy+v.Res[1]*cz)
}

// Clear zeros the fixed-point accumulator (spec §4.E pass 1, invariant 6:
// "never carries state across frames").
func (v *Volume) Clear() {
	for i := range v.accumulator {
		v.accumulator[i] = 0
	}
}

// Splat accumulates every particle's contribution into the voxels whose
// centre lies within h, using spikyPow2 weighting (spec §4.E pass 2).
// Particles outside the volume contribute nothing.
func (v *Volume) Splat(positions []mgl32.Vec3, h float32) {
	scales := kernels.NewScales(h)
	for _, p := range positions {
		v.splatOne(p, h, scales)
	}
}

func (v *Volume) splatOne(p mgl32.Vec3, h float32, scales kernels.Scales) {
	// AABB of voxels whose centre could lie within h of p.
	minCoord := [3]int{}
	maxCoord := [3]int{}
	for axis := 0; axis < 3; axis++ {
		lo := voxelCoord(p[axis]-h, v.Min[axis], v.VoxelSize[axis])
		hi := voxelCoord(p[axis]+h, v.Min[axis], v.VoxelSize[axis])
		minCoord[axis] = clampInt(lo, 0, v.Res[axis]-1)
		maxCoord[axis] = clampInt(hi, 0, v.Res[axis]-1)
	}

	for cz := minCoord[2]; cz <= maxCoord[2]; cz++ {
		for cy := minCoord[1]; cy <= maxCoord[1]; cy++ {
			for cx := minCoord[0]; cx <= maxCoord[0]; cx++ {
				centre := v.voxelCentre(cx, cy, cz)
				r := centre.Sub(p).Len()
				if r >= h {
					continue
				}
				w := kernels.SpikyPow2(r, h, scales.SpikyPow2)
				fixed := uint32(w * fixedPointScale)
				v.accumulator[v.index(cx, cy, cz)] += fixed
			}
		}
	}
}

func (v *Volume) voxelCentre(cx, cy, cz int) mgl32.Vec3 {
	return mgl32.Vec3{
		v.Min[0] + (float32(cx)+0.5)*v.VoxelSize[0],
		v.Min[1] + (float32(cy)+0.5)*v.VoxelSize[1],
		v.Min[2] + (float32(cz)+0.5)*v.VoxelSize[2],
	}
}

func voxelCoord(world, min, voxelSize float32) int {
	if voxelSize == 0 {
		return 0
	}
	return int((world - min) / voxelSize)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Resolve divides every voxel's fixed-point accumulator by the scale and
// packs the result as binary16 (spec §4.E pass 3).
func (v *Volume) Resolve() {
	for i, fixed := range v.accumulator {
		value := float32(fixed) / fixedPointScale
		v.resolved[i] = EncodeFloat16(value)
	}
}

// SampleResolved reads back the resolved (decoded) scalar at a voxel index,
// for tests -- never used on the production render path.
func (v *Volume) SampleResolved(cx, cy, cz int) float32 {
	return DecodeFloat16(v.resolved[v.index(cx, cy, cz)])
}
