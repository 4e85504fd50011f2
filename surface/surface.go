// Package surface implements the screen-space surface renderer strategy:
// depth -> smooth -> thickness -> normals -> composite (spec §4.G).
package surface

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/fluidkit/camera"
	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/environment"
	"github.com/gekko3d/fluidkit/gpu"
	"github.com/gekko3d/fluidkit/renderer"
	"github.com/gekko3d/fluidkit/shaders"
)

// smoothIterations is the number of bilateral-smoothing passes applied to
// the depth target before normal reconstruction (spec §4.G step 2); kept
// even so the ping-pong always lands back on depthTexA.
const smoothIterations = 4

// Renderer implements renderer.Renderer for the five-pass screen-space
// surface strategy.
type Renderer struct {
	device  *gpu.Device
	buffers *gpu.Buffers
	orbit   *camera.Orbit
	env     *environment.Sampler

	depthPipeline *wgpu.RenderPipeline
	depthBindGrp  *wgpu.BindGroup

	smoothAtoB *gpu.ComputeKernel
	smoothBtoA *gpu.ComputeKernel

	thicknessPipeline *wgpu.RenderPipeline
	thicknessBindGrp  *wgpu.BindGroup

	normalsKernel *gpu.ComputeKernel

	compositePipeline *wgpu.RenderPipeline
	compositeBindGrp  *wgpu.BindGroup

	depthTexA, depthTexB   *wgpu.Texture
	depthViewA, depthViewB *wgpu.TextureView
	normalTex              *wgpu.Texture
	normalView             *wgpu.TextureView
	thicknessTex           *wgpu.Texture
	thicknessView          *wgpu.TextureView
	foamTex                *wgpu.Texture
	foamView               *wgpu.TextureView
	backgroundTex          *wgpu.Texture
	backgroundView         *wgpu.TextureView
	sampler                *wgpu.Sampler

	cameraBuf          *wgpu.Buffer // SurfaceDepth/SurfaceThickness's shared {view,proj} Camera
	normalsParamsBuf   *wgpu.Buffer // SurfaceNormals' {invProj,targetSize} InvProj
	compositeCameraBuf *wgpu.Buffer // SurfaceComposite's {invView,invProj,eye} Camera
	lightingBuf        *wgpu.Buffer

	extinction [3]float32
	cfg        *config.Config
	epoch      gpu.Epoch
}

// New is the renderer.Factory for registry registration.
func New() renderer.Renderer {
	return &Renderer{orbit: camera.NewOrbit()}
}

func (r *Renderer) Init(device *gpu.Device, buffers *gpu.Buffers, cfg *config.Config) error {
	r.device = device
	r.buffers = buffers
	r.env = environment.NewSampler(cfg.Environment, int64(cfg.Seed))
	r.extinction = cfg.ScreenSpace.Extinction
	r.cfg = cfg

	if err := r.createTargets(device.SurfaceConfig.Width, device.SurfaceConfig.Height); err != nil {
		return err
	}

	var err error
	r.sampler, err = device.Device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("surface: create sampler: %w", err)
	}

	r.cameraBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SurfaceCamera", Size: 128, Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("surface: create camera buffer: %w", err)
	}
	r.normalsParamsBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SurfaceNormalsParams", Size: 80, Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("surface: create normals-params buffer: %w", err)
	}
	r.compositeCameraBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SurfaceCompositeCamera", Size: 144, Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("surface: create composite-camera buffer: %w", err)
	}
	r.lightingBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SurfaceLighting", Size: 48, Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("surface: create lighting buffer: %w", err)
	}

	if err := r.buildDepthPass(); err != nil {
		return err
	}
	if err := r.buildSmoothPass(); err != nil {
		return err
	}
	if err := r.buildThicknessPass(); err != nil {
		return err
	}
	if err := r.buildNormalsPass(); err != nil {
		return err
	}
	if err := r.buildCompositePass(); err != nil {
		return err
	}

	r.bakeBackground()

	r.epoch = buffers.Epoch
	return nil
}

// bakeBackground renders the shared environment sampler into backgroundTex
// (spec §4.G step 6b): it is re-baked whenever the camera or config could
// have changed what it should show (Init, Reset, Resize) rather than every
// frame, since the CPU sampler is not cheap enough for a per-frame bake.
func (r *Renderer) bakeBackground() {
	view := r.orbit.ViewMatrix()
	aspect := float32(r.device.SurfaceConfig.Width) / float32(r.device.SurfaceConfig.Height)
	proj := r.orbit.ProjectionMatrix(aspect)
	invViewProj := proj.Mul4(view).Inv()
	width := r.device.SurfaceConfig.Width
	height := r.device.SurfaceConfig.Height
	data := r.env.Bake(r.cfg, invViewProj, r.orbit.Eye(), int(width), int(height))
	r.device.WriteTexture(r.backgroundTex, data, width, height, 8)
}

func (r *Renderer) createTargets(width, height uint32) error {
	var err error
	r.depthTexA, err = r.createTarget("SurfaceDepthA", width, height, wgpu.TextureFormatR32Float)
	if err != nil {
		return err
	}
	r.depthViewA = mustView(r.depthTexA)
	r.depthTexB, err = r.createTarget("SurfaceDepthB", width, height, wgpu.TextureFormatR32Float)
	if err != nil {
		return err
	}
	r.depthViewB = mustView(r.depthTexB)
	r.normalTex, err = r.createTarget("SurfaceNormal", width, height, wgpu.TextureFormatRGBA16Float)
	if err != nil {
		return err
	}
	r.normalView = mustView(r.normalTex)
	r.thicknessTex, err = r.createTarget("SurfaceThickness", width, height, wgpu.TextureFormatR16Float)
	if err != nil {
		return err
	}
	r.thicknessView = mustView(r.thicknessTex)
	r.foamTex, err = r.createTarget("SurfaceFoam", width, height, wgpu.TextureFormatR16Float)
	if err != nil {
		return err
	}
	r.foamView = mustView(r.foamTex)
	// The foam billboard overlay pass isn't wired yet (no whitewater splat
	// shader exists in this package), so foamTex stays zeroed: the
	// composite shader's mix(..., foam) term is then always a no-op.
	r.backgroundTex, err = r.createTarget("SurfaceBackground", width, height, wgpu.TextureFormatRGBA16Float)
	if err != nil {
		return err
	}
	r.backgroundView = mustView(r.backgroundTex)
	return nil
}

func (r *Renderer) releaseTargets() {
	for _, view := range []*wgpu.TextureView{r.depthViewA, r.depthViewB, r.normalView, r.thicknessView, r.foamView, r.backgroundView} {
		if view != nil {
			view.Release()
		}
	}
	for _, tex := range []*wgpu.Texture{r.depthTexA, r.depthTexB, r.normalTex, r.thicknessTex, r.foamTex, r.backgroundTex} {
		if tex != nil {
			tex.Release()
		}
	}
}

func (r *Renderer) createTarget(label string, width, height uint32, format wgpu.TextureFormat) (*wgpu.Texture, error) {
	tex, err := r.device.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageStorageBinding | wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("surface: create target %s: %w", label, err)
	}
	return tex, nil
}

// mustView creates a texture view for bind-group wiring at Init/Resize
// time, where the source texture was just successfully created and a view
// failure would indicate a driver-level problem no retry could recover
// from (same "fatal at init" policy raymarch.Renderer.Init follows).
func mustView(tex *wgpu.Texture) *wgpu.TextureView {
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(fmt.Sprintf("surface: create texture view: %v", err))
	}
	return view
}

// buildDepthPass compiles pass 1: billboard each particle into depthTexA.
func (r *Renderer) buildDepthPass() error {
	shader, err := r.device.CreateShaderModule("surface-depth", shaders.SurfaceDepthWGSL)
	if err != nil {
		return fmt.Errorf("surface: compile depth shader: %w", err)
	}
	defer shader.Release()

	pipeline, err := r.device.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "SurfaceDepthPipeline",
		Vertex: wgpu.VertexState{Module: shader, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module: shader, EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{Format: wgpu.TextureFormatR32Float, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive:   wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList, CullMode: wgpu.CullModeNone},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("surface: create depth pipeline: %w", err)
	}

	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	bindGrp, err := r.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.cameraBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.buffers.PositionBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("surface: create depth bind group: %w", err)
	}

	r.depthPipeline = pipeline
	r.depthBindGrp = bindGrp
	return nil
}

// buildSmoothPass compiles pass 2 twice: once reading depthTexA and writing
// depthTexB, once the reverse, so Render can ping-pong the bilateral filter
// without rebuilding bind groups every iteration (spec §4.G step 2).
func (r *Renderer) buildSmoothPass() error {
	var err error
	r.smoothAtoB, err = r.device.CreateComputeKernel("surface-smooth-a-to-b", "main", shaders.SurfaceSmoothWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, TextureView: r.depthViewA},
			{Binding: 1, TextureView: r.depthViewB},
		},
	})
	if err != nil {
		return fmt.Errorf("surface: create smooth A->B kernel: %w", err)
	}
	r.smoothBtoA, err = r.device.CreateComputeKernel("surface-smooth-b-to-a", "main", shaders.SurfaceSmoothWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, TextureView: r.depthViewB},
			{Binding: 1, TextureView: r.depthViewA},
		},
	})
	if err != nil {
		return fmt.Errorf("surface: create smooth B->A kernel: %w", err)
	}
	return nil
}

func (r *Renderer) buildThicknessPass() error {
	shader, err := r.device.CreateShaderModule("surface-thickness", shaders.SurfaceThicknessWGSL)
	if err != nil {
		return fmt.Errorf("surface: compile thickness shader: %w", err)
	}
	defer shader.Release()
	pipeline, err := r.device.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "SurfaceThicknessPipeline",
		Vertex: wgpu.VertexState{Module: shader, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module: shader, EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    wgpu.TextureFormatR16Float,
				WriteMask: wgpu.ColorWriteMaskAll,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne},
					Alpha: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne},
				},
			}},
		},
		Primitive:   wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList, CullMode: wgpu.CullModeNone},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("surface: create thickness pipeline: %w", err)
	}

	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	bindGrp, err := r.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.cameraBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.buffers.PositionBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("surface: create thickness bind group: %w", err)
	}

	r.thicknessPipeline = pipeline
	r.thicknessBindGrp = bindGrp
	return nil
}

// buildNormalsPass compiles pass 4, always reading the smoothed depth
// target the ping-pong lands on (depthTexA, since smoothIterations is even).
func (r *Renderer) buildNormalsPass() error {
	kernel, err := r.device.CreateComputeKernel("surface-normals", "main", shaders.SurfaceNormalsWGSL, map[uint32][]wgpu.BindGroupEntry{
		0: {
			{Binding: 0, TextureView: r.depthViewA},
			{Binding: 1, TextureView: r.normalView},
			{Binding: 2, Buffer: r.normalsParamsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("surface: create normals kernel: %w", err)
	}
	r.normalsKernel = kernel
	return nil
}

func (r *Renderer) buildCompositePass() error {
	shader, err := r.device.CreateShaderModule("surface-composite", shaders.SurfaceCompositeWGSL)
	if err != nil {
		return fmt.Errorf("surface: compile composite shader: %w", err)
	}
	defer shader.Release()
	pipeline, err := r.device.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "SurfaceCompositePipeline",
		Vertex: wgpu.VertexState{Module: shader, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module: shader, EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{Format: r.device.SurfaceConfig.Format, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive:   wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList, CullMode: wgpu.CullModeNone},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("surface: create composite pipeline: %w", err)
	}

	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	bindGrp, err := r.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.compositeCameraBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.lightingBuf, Size: wgpu.WholeSize},
			{Binding: 2, TextureView: r.depthViewA},
			{Binding: 3, TextureView: r.normalView},
			{Binding: 4, TextureView: r.thicknessView},
			{Binding: 5, TextureView: r.foamView},
			{Binding: 6, TextureView: r.backgroundView},
			{Binding: 7, Sampler: r.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("surface: create composite bind group: %w", err)
	}

	r.compositePipeline = pipeline
	r.compositeBindGrp = bindGrp
	return nil
}

func (r *Renderer) Reset(cfg *config.Config) error {
	r.orbit = camera.NewOrbit()
	r.env = environment.NewSampler(cfg.Environment, int64(cfg.Seed))
	r.extinction = cfg.ScreenSpace.Extinction
	r.cfg = cfg
	r.bakeBackground()
	r.epoch = r.buffers.Epoch
	return nil
}

// Step uploads every pass's per-frame uniforms: the shared view/proj camera
// (depth+thickness), the inverse-projection+target-size pair (normals), the
// inverse-view/inverse-proj/eye camera (composite), and the lighting terms
// the composite shader's Beer-Lambert/Blinn-Phong blend reads.
func (r *Renderer) Step(cfg *config.Config, dt float32) {
	view := r.orbit.ViewMatrix()
	proj := r.orbit.ProjectionMatrix(float32(r.device.SurfaceConfig.Width) / float32(r.device.SurfaceConfig.Height))

	camData := make([]byte, 0, 128)
	camData = append(camData, wgpu.ToBytes(view)...)
	camData = append(camData, wgpu.ToBytes(proj)...)
	r.device.Queue.WriteBuffer(r.cameraBuf, 0, camData)

	invProj := proj.Inv()
	width := float32(r.device.SurfaceConfig.Width)
	height := float32(r.device.SurfaceConfig.Height)
	normalsData := make([]byte, 80)
	copy(normalsData[0:64], wgpu.ToBytes(invProj))
	binary.LittleEndian.PutUint32(normalsData[64:68], math.Float32bits(width))
	binary.LittleEndian.PutUint32(normalsData[68:72], math.Float32bits(height))
	r.device.Queue.WriteBuffer(r.normalsParamsBuf, 0, normalsData)

	invView := view.Inv()
	eye := r.orbit.Eye()
	compositeCamData := make([]byte, 144)
	copy(compositeCamData[0:64], wgpu.ToBytes(invView))
	copy(compositeCamData[64:128], wgpu.ToBytes(invProj))
	binary.LittleEndian.PutUint32(compositeCamData[128:132], math.Float32bits(eye[0]))
	binary.LittleEndian.PutUint32(compositeCamData[132:136], math.Float32bits(eye[1]))
	binary.LittleEndian.PutUint32(compositeCamData[136:140], math.Float32bits(eye[2]))
	r.device.Queue.WriteBuffer(r.compositeCameraBuf, 0, compositeCamData)

	lightDir := [3]float32{0.4, 0.8, 0.3}
	lightData := make([]byte, 48)
	putVec3(lightData[0:12], lightDir)
	putVec3(lightData[16:28], r.extinction)
	binary.LittleEndian.PutUint32(lightData[32:36], math.Float32bits(width))
	binary.LittleEndian.PutUint32(lightData[36:40], math.Float32bits(height))
	r.device.Queue.WriteBuffer(r.lightingBuf, 0, lightData)
}

// Render records the five ordered passes into a single command buffer and
// submits it (spec §4.G): depth, ping-ponged smooth, thickness, normals,
// composite.
func (r *Renderer) Render(device *gpu.Device) error {
	if r.buffers.Epoch != r.epoch {
		return fmt.Errorf("surface: stale buffer epoch, caller must re-Init after a reset")
	}

	surfaceTex, err := device.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("surface: get current texture: %w", err)
	}
	swapView, err := surfaceTex.Texture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface: create texture view: %w", err)
	}
	defer swapView.Release()

	encoder, err := device.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("surface: create command encoder: %w", err)
	}

	count := r.particleCount()

	depthPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{View: r.depthViewA, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore},
		},
	})
	depthPass.SetPipeline(r.depthPipeline)
	depthPass.SetBindGroup(0, r.depthBindGrp, nil)
	depthPass.Draw(6, count, 0, 0)
	depthPass.End()

	width := int(device.SurfaceConfig.Width)
	height := int(device.SurfaceConfig.Height)
	for i := 0; i < smoothIterations; i++ {
		if i%2 == 0 {
			device.DispatchCompute2D(encoder, r.smoothAtoB, width, height, 8)
		} else {
			device.DispatchCompute2D(encoder, r.smoothBtoA, width, height, 8)
		}
	}

	thicknessPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{View: r.thicknessView, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore},
		},
	})
	thicknessPass.SetPipeline(r.thicknessPipeline)
	thicknessPass.SetBindGroup(0, r.thicknessBindGrp, nil)
	thicknessPass.Draw(6, count, 0, 0)
	thicknessPass.End()

	device.DispatchCompute2D(encoder, r.normalsKernel, width, height, 8)

	compositePass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{View: swapView, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore},
		},
	})
	compositePass.SetPipeline(r.compositePipeline)
	compositePass.SetBindGroup(0, r.compositeBindGrp, nil)
	compositePass.Draw(3, 1, 0, 0)
	compositePass.End()

	return device.Submit(encoder)
}

func (r *Renderer) particleCount() uint32 {
	if r.buffers.PositionBuf == nil {
		return 0
	}
	return uint32(r.buffers.PositionBuf.GetSize() / (3 * 4))
}

// Resize recreates every render target and rebuilds the passes that bind
// them -- cheaper to re-run than to thread through every bind group's
// screen-sized view individually.
func (r *Renderer) Resize(width, height uint32) {
	r.destroyPasses()
	r.releaseTargets()

	if err := r.createTargets(width, height); err != nil {
		panic(fmt.Sprintf("surface: resize: recreate targets: %v", err))
	}
	if err := r.buildDepthPass(); err != nil {
		panic(fmt.Sprintf("surface: resize: rebuild depth pass: %v", err))
	}
	if err := r.buildSmoothPass(); err != nil {
		panic(fmt.Sprintf("surface: resize: rebuild smooth pass: %v", err))
	}
	if err := r.buildThicknessPass(); err != nil {
		panic(fmt.Sprintf("surface: resize: rebuild thickness pass: %v", err))
	}
	if err := r.buildNormalsPass(); err != nil {
		panic(fmt.Sprintf("surface: resize: rebuild normals pass: %v", err))
	}
	if err := r.buildCompositePass(); err != nil {
		panic(fmt.Sprintf("surface: resize: rebuild composite pass: %v", err))
	}
	r.bakeBackground()
}

func (r *Renderer) destroyPasses() {
	if r.depthPipeline != nil {
		r.depthPipeline.Release()
	}
	if r.depthBindGrp != nil {
		r.depthBindGrp.Release()
	}
	r.smoothAtoB.Destroy()
	r.smoothBtoA.Destroy()
	if r.thicknessPipeline != nil {
		r.thicknessPipeline.Release()
	}
	if r.thicknessBindGrp != nil {
		r.thicknessBindGrp.Release()
	}
	r.normalsKernel.Destroy()
	if r.compositePipeline != nil {
		r.compositePipeline.Release()
	}
	if r.compositeBindGrp != nil {
		r.compositeBindGrp.Release()
	}
}

func (r *Renderer) Destroy() {
	r.destroyPasses()
	r.releaseTargets()

	if r.sampler != nil {
		r.sampler.Release()
	}
	if r.cameraBuf != nil {
		r.cameraBuf.Release()
	}
	if r.normalsParamsBuf != nil {
		r.normalsParamsBuf.Release()
	}
	if r.compositeCameraBuf != nil {
		r.compositeCameraBuf.Release()
	}
	if r.lightingBuf != nil {
		r.lightingBuf.Release()
	}
}

func putVec3(dst []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v[2]))
}
