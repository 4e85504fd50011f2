package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/camera"
	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/gpu"
	"github.com/gekko3d/fluidkit/shaders"
)

// BillboardRenderer draws every particle as a camera-facing shaded quad
// (spec §4.G billboard renderer strategy), the simplest of the four
// strategies and the one used as the default on startup.
type BillboardRenderer struct {
	device   *gpu.Device
	buffers  *gpu.Buffers
	pipeline *wgpu.RenderPipeline
	bindGrp  *wgpu.BindGroup
	cameraBuf *wgpu.Buffer

	orbit *camera.Orbit
	epoch gpu.Epoch
}

// NewBillboardRenderer is the Factory for Registry registration.
func NewBillboardRenderer() Renderer {
	return &BillboardRenderer{orbit: camera.NewOrbit()}
}

func (b *BillboardRenderer) Init(device *gpu.Device, buffers *gpu.Buffers, cfg *config.Config) error {
	b.device = device
	b.buffers = buffers

	shader, err := device.CreateShaderModule("billboard", shaders.ParticlesBillboardWGSL)
	if err != nil {
		return fmt.Errorf("billboard: compile shader: %w", err)
	}
	defer shader.Release()

	b.cameraBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "BillboardCamera",
		Size:  256,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("billboard: create camera buffer: %w", err)
	}

	pipeline, err := device.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "BillboardPipeline",
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: device.SurfaceConfig.Format, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("billboard: create pipeline: %w", err)
	}
	b.pipeline = pipeline

	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	bindGroup, err := device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.cameraBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buffers.PositionBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.VelocityBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("billboard: create bind group: %w", err)
	}
	b.bindGrp = bindGroup
	b.epoch = buffers.Epoch
	return nil
}

func (b *BillboardRenderer) Reset(cfg *config.Config) error {
	b.orbit = camera.NewOrbit()
	b.epoch = b.buffers.Epoch
	return nil
}

func (b *BillboardRenderer) Step(cfg *config.Config, dt float32) {
	view := b.orbit.ViewMatrix()
	proj := b.orbit.ProjectionMatrix(float32(b.device.SurfaceConfig.Width) / float32(b.device.SurfaceConfig.Height))
	right := mgl32.Vec3{view[0], view[4], view[8]}
	up := mgl32.Vec3{view[1], view[5], view[9]}

	data := make([]byte, 0, 256)
	data = append(data, wgpu.ToBytes(view)...)
	data = append(data, wgpu.ToBytes(proj)...)
	data = append(data, wgpu.ToBytes(right)...)
	data = append(data, 0, 0, 0, 0) // cameraRight is a vec3 in a 16-byte slot
	data = append(data, wgpu.ToBytes(up)...)
	b.device.Queue.WriteBuffer(b.cameraBuf, 0, data)
}

func (b *BillboardRenderer) Render(device *gpu.Device) error {
	if b.buffers.Epoch != b.epoch {
		return fmt.Errorf("billboard: stale buffer epoch, caller must re-Init after a reset")
	}

	surfaceTex, err := device.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("billboard: get current texture: %w", err)
	}
	view, err := surfaceTex.Texture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("billboard: create texture view: %w", err)
	}
	defer view.Release()

	encoder, err := device.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("billboard: create command encoder: %w", err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0.02, G: 0.03, B: 0.05, A: 1.0},
			},
		},
	})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.bindGrp, nil)
	pass.Draw(6, b.particleCount(), 0, 0)
	pass.End()

	return device.Submit(encoder)
}

func (b *BillboardRenderer) particleCount() uint32 {
	if b.buffers.PositionBuf == nil {
		return 0
	}
	return uint32(b.buffers.PositionBuf.GetSize() / (3 * 4))
}

func (b *BillboardRenderer) Resize(width, height uint32) {}

func (b *BillboardRenderer) Destroy() {
	if b.bindGrp != nil {
		b.bindGrp.Release()
	}
	if b.pipeline != nil {
		b.pipeline.Release()
	}
	if b.cameraBuf != nil {
		b.cameraBuf.Release()
	}
}
