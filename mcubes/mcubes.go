// Package mcubes implements the marching-cubes isosurface renderer
// strategy (spec §4.H): triangulate the density volume against an
// iso-level, accumulate vertices into a storage buffer via atomicAdd,
// prepare an indirect draw argument buffer from the device-side triangle
// count, and drawIndirect -- no host read-back of the counter is ever
// needed.
package mcubes

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/camera"
	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/density"
	"github.com/gekko3d/fluidkit/gpu"
	"github.com/gekko3d/fluidkit/renderer"
	"github.com/gekko3d/fluidkit/shaders"
)

// maxTrianglesPerFrame bounds the vertex buffer so a single allocation
// survives every config this renderer supports; each cell emits at most 5
// triangles (spec §4.H table row length).
const maxTrianglesPerFrame = 5 * 512 * 512 * 512 / 64 // conservative cap for a 512^3-class volume, not a hard spec limit

// Renderer implements renderer.Renderer for the marching-cubes isosurface
// strategy.
type Renderer struct {
	device  *gpu.Device
	buffers *gpu.Buffers
	orbit   *camera.Orbit
	vol     *density.Volume

	extractKernel *gpu.ComputeKernel
	indirectKernel *gpu.ComputeKernel
	renderPipeline *wgpu.RenderPipeline
	renderBindGrp  *wgpu.BindGroup

	edgeTableBuf   *wgpu.Buffer
	triTableBuf    *wgpu.Buffer
	vertexBuf      *wgpu.Buffer
	triangleCntBuf *wgpu.Buffer
	indirectBuf    *wgpu.Buffer
	volumeParamsBuf *wgpu.Buffer

	cfg   config.MarchingCubesConfig
	epoch gpu.Epoch
}

// New is the renderer.Factory for registry registration.
func New() renderer.Renderer {
	return &Renderer{orbit: camera.NewOrbit()}
}

func (r *Renderer) Init(device *gpu.Device, buffers *gpu.Buffers, cfg *config.Config) error {
	r.device = device
	r.buffers = buffers
	r.cfg = cfg.MarchingCubes
	bounds := mgl32.Vec3{cfg.BoundsSize[0], cfg.BoundsSize[1], cfg.BoundsSize[2]}
	r.vol = density.NewVolume(bounds, cfg.DensityTextureRes)

	var err error
	if err = r.uploadTables(); err != nil {
		return err
	}

	r.vertexBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MCVertexBuf",
		Size:  uint64(maxTrianglesPerFrame) * 3 * 16, // vec4<f32> per vertex, 3 per triangle
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("mcubes: create vertex buffer: %w", err)
	}
	r.triangleCntBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MCTriangleCount",
		Size:  4,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("mcubes: create triangle-count buffer: %w", err)
	}
	r.indirectBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MCIndirectArgs",
		Size:  16,
		Usage: wgpu.BufferUsageIndirect | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("mcubes: create indirect-args buffer: %w", err)
	}
	r.volumeParamsBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MCVolumeParams",
		Size:  48,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("mcubes: create volume-params buffer: %w", err)
	}

	sampler, err := device.Device.CreateSampler(nil)
	if err != nil {
		return fmt.Errorf("mcubes: create volume sampler: %w", err)
	}

	r.extractKernel, err = device.CreateComputeKernel("mcubes-extract", "main", shaders.MarchingCubesWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, TextureView: buffers.DensityVolumeView},
			{Binding: 1, Sampler: sampler},
			{Binding: 2, Buffer: r.edgeTableBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: r.triTableBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: r.vertexBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: r.triangleCntBuf, Size: wgpu.WholeSize},
			{Binding: 6, Buffer: r.volumeParamsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("mcubes: create extract kernel: %w", err)
	}

	r.indirectKernel, err = device.CreateComputeKernel("mcubes-prepare-indirect", "prepare_indirect", shaders.MarchingCubesWGSL, map[uint32][]wgpu.BindGroupEntry{
		1: {
			{Binding: 0, Buffer: r.triangleCntBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.indirectBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("mcubes: create prepare-indirect kernel: %w", err)
	}

	if err := r.buildRenderPipeline(); err != nil {
		return err
	}

	r.epoch = buffers.Epoch
	return nil
}

// uploadTables uploads the 256-entry edge table and the 256x16 triangle
// table as storage buffers (spec §4.H note: tables live as host-uploaded
// storage, not WGSL literals).
func (r *Renderer) uploadTables() error {
	edgeData := make([]byte, len(edgeTable)*4)
	for i, v := range edgeTable {
		binary.LittleEndian.PutUint32(edgeData[i*4:], v)
	}
	var err error
	r.edgeTableBuf, err = r.device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MCEdgeTable", Size: uint64(len(edgeData)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("mcubes: create edge table buffer: %w", err)
	}
	r.device.Queue.WriteBuffer(r.edgeTableBuf, 0, edgeData)

	triData := make([]byte, 256*rowsPerConfig*4)
	for cfg := 0; cfg < 256; cfg++ {
		for i, v := range triTableRows[cfg] {
			binary.LittleEndian.PutUint32(triData[(cfg*rowsPerConfig+i)*4:], uint32(v))
		}
	}
	r.triTableBuf, err = r.device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MCTriTable", Size: uint64(len(triData)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("mcubes: create tri table buffer: %w", err)
	}
	r.device.Queue.WriteBuffer(r.triTableBuf, 0, triData)
	return nil
}

func (r *Renderer) buildRenderPipeline() error {
	shader, err := r.device.CreateShaderModule("mcubes-draw", shaders.MarchingCubesWGSL)
	if err != nil {
		return fmt.Errorf("mcubes: compile draw shader: %w", err)
	}
	defer shader.Release()

	pipeline, err := r.device.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "MCDrawPipeline",
		Vertex: wgpu.VertexState{
			Module: shader, EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 16,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module: shader, EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{Format: r.device.SurfaceConfig.Format, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive:   wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList, CullMode: wgpu.CullModeNone},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("mcubes: create draw pipeline: %w", err)
	}
	r.renderPipeline = pipeline
	return nil
}

func (r *Renderer) Reset(cfg *config.Config) error {
	r.orbit = camera.NewOrbit()
	r.cfg = cfg.MarchingCubes
	bounds := mgl32.Vec3{cfg.BoundsSize[0], cfg.BoundsSize[1], cfg.BoundsSize[2]}
	r.vol = density.NewVolume(bounds, cfg.DensityTextureRes)
	r.epoch = r.buffers.Epoch
	return nil
}

// Step uploads the volume-params uniform (spec isoLevel + voxel geometry)
// ahead of the extract/draw passes Render issues.
func (r *Renderer) Step(cfg *config.Config, dt float32) {
	data := make([]byte, 48)
	putVec3(data[0:], r.vol.Min)
	putVec3(data[16:], r.vol.VoxelSize)
	binary.LittleEndian.PutUint32(data[32:], uint32(int32(r.vol.Res[0])))
	binary.LittleEndian.PutUint32(data[36:], uint32(int32(r.vol.Res[1])))
	binary.LittleEndian.PutUint32(data[40:], uint32(int32(r.vol.Res[2])))
	binary.LittleEndian.PutUint32(data[44:], math.Float32bits(r.cfg.IsoLevel))
	r.device.Queue.WriteBuffer(r.volumeParamsBuf, 0, data)
	r.device.Queue.WriteBuffer(r.triangleCntBuf, 0, []byte{0, 0, 0, 0})
}

func putVec3(dst []byte, v mgl32.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v[2]))
}

// Render dispatches the extract pass, the prepare-indirect pass, then issues
// a single drawIndirect call against the accumulated vertex buffer (spec
// §4.H "Draw uses drawIndirect").
func (r *Renderer) Render(device *gpu.Device) error {
	if r.buffers.Epoch != r.epoch {
		return fmt.Errorf("mcubes: stale buffer epoch, caller must re-Init after a reset")
	}

	surfaceTex, err := device.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("mcubes: get current texture: %w", err)
	}
	view, err := surfaceTex.Texture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("mcubes: create texture view: %w", err)
	}
	defer view.Release()

	encoder, err := device.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("mcubes: create command encoder: %w", err)
	}

	device.DispatchVolumePass(encoder, r.extractKernel, r.vol.Res)
	device.DispatchParticlePass(encoder, r.indirectKernel, 1)

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{View: view, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore},
		},
	})
	pass.SetPipeline(r.renderPipeline)
	if r.renderBindGrp != nil {
		pass.SetBindGroup(0, r.renderBindGrp, nil)
	}
	pass.SetVertexBuffer(0, r.vertexBuf, 0, wgpu.WholeSize)
	pass.DrawIndirect(r.indirectBuf, 0)
	pass.End()

	return device.Submit(encoder)
}

func (r *Renderer) Resize(width, height uint32) {}

func (r *Renderer) Destroy() {
	r.extractKernel.Destroy()
	r.indirectKernel.Destroy()
	if r.renderPipeline != nil {
		r.renderPipeline.Release()
	}
	if r.renderBindGrp != nil {
		r.renderBindGrp.Release()
	}
	for _, buf := range []*wgpu.Buffer{
		r.edgeTableBuf, r.triTableBuf, r.vertexBuf, r.triangleCntBuf,
		r.indirectBuf, r.volumeParamsBuf,
	} {
		if buf != nil {
			buf.Release()
		}
	}
}
