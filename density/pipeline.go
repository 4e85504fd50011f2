package density

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/gpu"
	"github.com/gekko3d/fluidkit/kernels"
	"github.com/gekko3d/fluidkit/shaders"
)

// Pipeline is the GPU-resident three-pass splat: clear the fixed-point
// accumulator, splat every particle's SpikyPow2-weighted contribution into
// it, then resolve to the r16float volume texture (spec §4.E). The Volume
// type in this package is the CPU reference density_test.go exercises for
// the round-trip property; Pipeline is the on-device production path.
type Pipeline struct {
	device *gpu.Device

	clearKernel      *gpu.ComputeKernel
	accumulateKernel *gpu.ComputeKernel
	resolveKernel    *gpu.ComputeKernel

	res [3]int
}

// NewPipeline builds an unbound Pipeline; call Rebuild after
// Buffers.EnsureDensityVolumeCapacity.
func NewPipeline(device *gpu.Device) *Pipeline {
	return &Pipeline{device: device}
}

// Rebuild (re)creates the three kernels' bind groups against buffers.
func (p *Pipeline) Rebuild(buffers *gpu.Buffers, res [3]int) error {
	p.res = res

	if err := buffers.EnsureUniform(&buffers.VolumeParamsBuf, "VolumeParamsBuf", 64); err != nil {
		return err
	}

	var err error
	if p.clearKernel, err = p.device.CreateComputeKernel("density-clear", "main", shaders.SplatClearWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.DensityVolumeAccumBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("density: clear kernel: %w", err)
	}

	if p.accumulateKernel, err = p.device.CreateComputeKernel("density-accumulate", "main", shaders.SplatAccumulateWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.DensityVolumeAccumBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.VolumeParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("density: accumulate kernel: %w", err)
	}

	if p.resolveKernel, err = p.device.CreateComputeKernel("density-resolve", "main", shaders.SplatResolveWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.DensityVolumeAccumBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: buffers.DensityVolumeView},
		},
	}); err != nil {
		return fmt.Errorf("density: resolve kernel: %w", err)
	}
	return nil
}

// Destroy releases all three kernels.
func (p *Pipeline) Destroy() {
	p.clearKernel.Destroy()
	p.accumulateKernel.Destroy()
	p.resolveKernel.Destroy()
}

// Dispatch runs clear -> accumulate -> resolve for count particles. Clear
// and resolve are whole-volume dispatches; accumulate is per-particle.
func (p *Pipeline) Dispatch(encoder *wgpu.CommandEncoder, particleCount int) {
	voxelCount := p.res[0] * p.res[1] * p.res[2]
	p.device.DispatchParticlePass(encoder, p.clearKernel, voxelCount)
	p.device.DispatchParticlePass(encoder, p.accumulateKernel, particleCount)
	p.device.DispatchVolumePass(encoder, p.resolveKernel, p.res)
}

// PackVolumeParams matches splat_accumulate.wgsl's VolumeParams struct. WGSL
// aligns every vec3 field (min, voxelSize, res) to a 16-byte boundary, so
// each occupies 12 bytes of a 16-byte slot; the struct's total size then
// rounds up to the largest member alignment (16).
func PackVolumeParams(min, voxelSize mgl32.Vec3, res [3]int, h float32) []byte {
	s := kernels.NewScales(h)
	buf := make([]byte, 64)
	putVec3(buf[0:12], min)
	putVec3(buf[16:28], voxelSize)
	binary.LittleEndian.PutUint32(buf[32:36], uint32(res[0]))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(res[1]))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(res[2]))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(h))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(s.SpikyPow2))
	return buf
}

func putVec3(dst []byte, v mgl32.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v[2]))
}
