package foam

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/fluidkit/gpu"
	"github.com/gekko3d/fluidkit/kernels"
	"github.com/gekko3d/fluidkit/shaders"
)

// Pipeline is the GPU-resident foam lifecycle: spawn, classify, integrate
// (spec §4.F), each a separate compute pass over the shared ring buffer.
// Ring/Particle/Spawn/Classify/Integrate in this package are the CPU
// reference foam_test.go exercises for invariant 5 and scenario S6;
// Pipeline dispatches the bit-compatible WGSL stages.
type Pipeline struct {
	device *gpu.Device

	spawnKernel     *gpu.ComputeKernel
	classifyKernel  *gpu.ComputeKernel
	integrateKernel *gpu.ComputeKernel
}

// NewPipeline builds an unbound Pipeline; call Rebuild after
// Buffers.EnsureFoamCapacity.
func NewPipeline(device *gpu.Device) *Pipeline {
	return &Pipeline{device: device}
}

// Rebuild (re)creates the three stages' bind groups against buffers.
func (p *Pipeline) Rebuild(buffers *gpu.Buffers) error {
	if err := buffers.EnsureUniform(&buffers.FoamSpawnParamsBuf, "FoamSpawnParamsBuf", 56); err != nil {
		return err
	}
	if err := buffers.EnsureUniform(&buffers.FoamClassifyParamsBuf, "FoamClassifyParamsBuf", 20); err != nil {
		return err
	}
	if err := buffers.EnsureUniform(&buffers.FoamIntegrateParamsBuf, "FoamIntegrateParamsBuf", 80); err != nil {
		return err
	}

	var err error
	if p.spawnKernel, err = p.device.CreateComputeKernel("foam-spawn", "main", shaders.FoamSpawnWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.SortedVelocityBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.CellOffsetBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.CellCountBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: buffers.FoamBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: buffers.RingCursorBuf, Size: wgpu.WholeSize},
			{Binding: 6, Buffer: buffers.FoamSpawnParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("foam: spawn kernel: %w", err)
	}

	if p.classifyKernel, err = p.device.CreateComputeKernel("foam-classify", "main", shaders.FoamClassifyWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.FoamBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.CellOffsetBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.CellCountBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: buffers.FoamClassifyParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("foam: classify kernel: %w", err)
	}

	if p.integrateKernel, err = p.device.CreateComputeKernel("foam-integrate", "main", shaders.FoamIntegrateWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.FoamBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.SortedVelocityBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.CellOffsetBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: buffers.CellCountBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: buffers.FoamIntegrateParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("foam: integrate kernel: %w", err)
	}
	return nil
}

// Destroy releases all three kernels.
func (p *Pipeline) Destroy() {
	p.spawnKernel.Destroy()
	p.classifyKernel.Destroy()
	p.integrateKernel.Destroy()
}

// Dispatch runs spawn (over fluid particles), then classify and integrate
// (over ring capacity) for one frame.
func (p *Pipeline) Dispatch(encoder *wgpu.CommandEncoder, fluidCount, ringCapacity int) {
	p.device.DispatchParticlePass(encoder, p.spawnKernel, fluidCount)
	p.device.DispatchParticlePass(encoder, p.classifyKernel, ringCapacity)
	p.device.DispatchParticlePass(encoder, p.integrateKernel, ringCapacity)
}

// PackSpawnParams matches foam_spawn.wgsl's SpawnParams struct.
func PackSpawnParams(sp SpawnParams, h float32, dt float32, frameSeed uint32) []byte {
	s := kernels.NewScales(h)
	buf := make([]byte, 56)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(h))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(s.Poly6))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(sp.Rate))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(sp.EnergyMin))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(sp.EnergyMax))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(sp.Sharpness))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(sp.SurfaceCap))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(sp.LifetimeMin))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(sp.LifetimeMax))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(sp.BubbleScale))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(1)) // obstacleFactor: no obstacle dampening modeled yet
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(dt))
	binary.LittleEndian.PutUint32(buf[48:52], frameSeed)
	binary.LittleEndian.PutUint32(buf[52:56], uint32(sp.PerParticleCap))
	return buf
}

// PackClassifyParams matches foam_classify.wgsl's ClassifyParams struct.
func PackClassifyParams(cp ClassifyParams, h float32) []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(h))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(cp.SprayMaxNeighbours))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(cp.BubbleMinNeighbours))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(cp.BandHalfWidth))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(cp.HysteresisThreshold))
	return buf
}

// PackIntegrateParams matches foam_integrate.wgsl's IntegrateParams struct.
// boundsHalf is a vec3<f32>, aligned to a 16-byte boundary by WGSL.
func PackIntegrateParams(ip IntegrateParams, h, dt float32) []byte {
	buf := make([]byte, 80)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(ip.Gravity))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(ip.AdvectionRate))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(ip.BuoyancyStrength))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(ip.SprayDrag))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(ip.SprayFriction))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(ip.SprayRestitution))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(ip.DecayFoam))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(ip.DecayBubble))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(ip.DecaySpray))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(ip.DensityMin))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(ip.DensityMax))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(ip.PreserveRate))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(ip.BoundsHalf[0]))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(ip.BoundsHalf[1]))
	binary.LittleEndian.PutUint32(buf[56:60], math.Float32bits(ip.BoundsHalf[2]))
	binary.LittleEndian.PutUint32(buf[60:64], math.Float32bits(ip.BoundsPadding))
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(h))
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(dt))
	return buf
}
