package sph

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/fluidkit/gpu"
	"github.com/gekko3d/fluidkit/kernels"
	"github.com/gekko3d/fluidkit/shaders"
)

// Pipeline is the GPU-resident substep chain: key -> scan -> scatter ->
// density -> pressure -> viscosity -> integrate, one ComputeKernel per WGSL
// stage, dispatched in sequence every Step. It is the authoritative
// "production" physics path (spec §1/§5); the rest of this package is the
// CPU reference the _test.go files exercise, per the
// CPU-testable-core/GPU-resident-core Open Question resolution (DESIGN.md).
type Pipeline struct {
	device  *gpu.Device
	buffers *gpu.Buffers

	keyKernel       *gpu.ComputeKernel
	scanKernel      *gpu.ComputeKernel
	scatterKernel   *gpu.ComputeKernel
	densityKernel   *gpu.ComputeKernel
	pressureKernel  *gpu.ComputeKernel
	viscosityKernel *gpu.ComputeKernel
	integrateKernel *gpu.ComputeKernel

	epoch gpu.Epoch
}

// NewPipeline builds an unbound Pipeline; call Rebuild once buffers are
// sized (EnsureParticleCapacity/EnsureCellOffsetCapacity) and on every
// epoch change, mirroring the renderer/registry switch protocol (spec
// §4.J): rebind, don't recreate, unless the device resources changed shape.
func NewPipeline(device *gpu.Device) *Pipeline {
	return &Pipeline{device: device}
}

// Rebuild (re)creates every kernel's bind groups against the current
// buffers. Cheap relative to pipeline compilation since WGSL compiles once
// per process if the caller caches by shader source, but kept simple here:
// called only on capacity growth or a renderer-style epoch bump.
func (p *Pipeline) Rebuild(buffers *gpu.Buffers) error {
	p.buffers = buffers
	p.epoch = buffers.Epoch

	if err := buffers.EnsureUniform(&buffers.GridParamsBuf, "GridParamsBuf", 32); err != nil {
		return err
	}
	if err := buffers.EnsureUniform(&buffers.DensityParamsBuf, "DensityParamsBuf", 16); err != nil {
		return err
	}
	if err := buffers.EnsureUniform(&buffers.PressureParamsBuf, "PressureParamsBuf", 28); err != nil {
		return err
	}
	if err := buffers.EnsureUniform(&buffers.ViscosityParamsBuf, "ViscosityParamsBuf", 16); err != nil {
		return err
	}
	if err := buffers.EnsureUniform(&buffers.IntegrateParamsBuf, "IntegrateParamsBuf", 32); err != nil {
		return err
	}
	if err := buffers.EnsureUniform(&buffers.ObstacleParamsBuf, "ObstacleParamsBuf", 48); err != nil {
		return err
	}

	var err error
	if p.keyKernel, err = p.device.CreateComputeKernel("sph-keypass", "main", shaders.KeyPassWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.PredictedPosBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.CellKeyBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.CellCountBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.GridParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("sph: keypass kernel: %w", err)
	}

	if p.scanKernel, err = p.device.CreateComputeKernel("sph-scan", "main", shaders.ScanWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.CellCountBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.CellOffsetBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("sph: scan kernel: %w", err)
	}

	if p.scatterKernel, err = p.device.CreateComputeKernel("sph-scatter", "main", shaders.ScatterWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.CellKeyBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.CellCursorBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.CellOffsetBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.PermutationBuf, Size: wgpu.WholeSize},
		},
		1: {
			{Binding: 0, Buffer: buffers.PositionBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.VelocityBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.SortedVelocityBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("sph: scatter kernel: %w", err)
	}

	if p.densityKernel, err = p.device.CreateComputeKernel("sph-density", "main", shaders.DensityWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.DensityBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.NearDensityBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.CellOffsetBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: buffers.CellCountBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: buffers.DensityParamsBuf, Size: wgpu.WholeSize},
			{Binding: 6, Buffer: buffers.GridParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("sph: density kernel: %w", err)
	}

	if p.pressureKernel, err = p.device.CreateComputeKernel("sph-pressure", "main", shaders.PressureWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.DensityBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.NearDensityBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.SortedVelocityBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: buffers.CellOffsetBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: buffers.CellCountBuf, Size: wgpu.WholeSize},
			{Binding: 6, Buffer: buffers.PressureParamsBuf, Size: wgpu.WholeSize},
			{Binding: 7, Buffer: buffers.GridParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("sph: pressure kernel: %w", err)
	}

	if p.viscosityKernel, err = p.device.CreateComputeKernel("sph-viscosity", "main", shaders.ViscosityWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.SortedVelocityBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.VelocityScratchBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.CellOffsetBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: buffers.CellCountBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: buffers.ViscosityParamsBuf, Size: wgpu.WholeSize},
			{Binding: 6, Buffer: buffers.GridParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("sph: viscosity kernel: %w", err)
	}

	if p.integrateKernel, err = p.device.CreateComputeKernel("sph-integrate", "main", shaders.IntegrateWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, Buffer: buffers.SortedPositionBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.VelocityScratchBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.IntegrateParamsBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.ObstacleParamsBuf, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return fmt.Errorf("sph: integrate kernel: %w", err)
	}

	return nil
}

// Destroy releases every stage's pipeline and bind groups.
func (p *Pipeline) Destroy() {
	for _, k := range []*gpu.ComputeKernel{
		p.keyKernel, p.scanKernel, p.scatterKernel, p.densityKernel,
		p.pressureKernel, p.viscosityKernel, p.integrateKernel,
	} {
		k.Destroy()
	}
}

// Dispatch runs one substep of the key/scan/scatter/density/pressure/
// viscosity/integrate chain over count particles. Each stage is a separate
// compute pass within the same command encoder so wgpu's implicit pass
// barriers serialize reads after writes (spec §4.C/§4.D step ordering).
func (p *Pipeline) Dispatch(encoder *wgpu.CommandEncoder, count, cellCount int) {
	p.device.DispatchParticlePass(encoder, p.keyKernel, count)
	p.device.DispatchParticlePass(encoder, p.scanKernel, cellCount)
	p.device.DispatchParticlePass(encoder, p.scatterKernel, count)
	p.device.DispatchParticlePass(encoder, p.densityKernel, count)
	p.device.DispatchParticlePass(encoder, p.pressureKernel, count)
	p.device.DispatchParticlePass(encoder, p.viscosityKernel, count)
	p.device.DispatchParticlePass(encoder, p.integrateKernel, count)
}

// PackGridParams matches the key/density/pressure/viscosity shaders' shared
// GridParams struct (32 bytes: vec3 min, f32 h, vec3<i32> dims, u32 mode2d).
func PackGridParams(min [3]float32, h float32, dims [3]int32, mode2D bool) []byte {
	buf := make([]byte, 32)
	putVec3(buf[0:12], min)
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(h))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(dims[0]))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(dims[1]))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(dims[2]))
	m := uint32(0)
	if mode2D {
		m = 1
	}
	binary.LittleEndian.PutUint32(buf[28:32], m)
	return buf
}

// The Pack*Params functions below match the density/pressure/viscosity/integrate WGSL
// SimParams structs, one per stage, each with a distinct field set. Rather
// than one shared struct, PackDensityParams/PackPressureParams/etc. build
// the exact byte layout the corresponding shader expects.
func PackDensityParams(p Params) []byte {
	s := kernels.NewScales(p.H)
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.H))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.RestDensity))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(s.SpikyPow2))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(s.SpikyPow3))
	return buf
}

func PackPressureParams(p Params, dt float32) []byte {
	s := kernels.NewScales(p.H)
	buf := make([]byte, 28)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.H))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.RestDensity))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.PressureMultiplier))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.NearPressureMultiplier))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(s.DerivSpikyPow2))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(s.DerivSpikyPow3))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(dt))
	return buf
}

func PackViscosityParams(p Params, dt float32) []byte {
	s := kernels.NewScales(p.H)
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.H))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Viscosity))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(s.Poly6))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(dt))
	return buf
}

// PackIntegrateParams matches integrate.wgsl's SimParams struct -- boundsHalf
// is a vec3<f32> so WGSL aligns it to a 16-byte boundary, leaving an 8-byte
// gap after collisionDamping.
func PackIntegrateParams(p Params, dt float32) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(dt))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.CollisionDamping))
	putVec3(buf[16:28], p.BoundsHalf)
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(p.BoundsPadding))
	return buf
}

// PackObstacleParams matches integrate.wgsl's ObstacleParams struct. WGSL
// aligns vec3<f32> fields to 16 bytes, so center/halfExtents each start on a
// 16-byte boundary even though they're only 12 bytes wide.
func PackObstacleParams(o Obstacle) []byte {
	buf := make([]byte, 48)
	enabled := uint32(0)
	if o.Enabled {
		enabled = 1
	}
	binary.LittleEndian.PutUint32(buf[0:4], enabled)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(o.Shape))
	putVec3(buf[16:28], [3]float32(o.Center))
	putVec3(buf[32:44], [3]float32(o.HalfExtents))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(o.Radius))
	return buf
}

func putVec3(dst []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v[2]))
}

