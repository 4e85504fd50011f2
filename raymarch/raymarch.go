// Package raymarch implements the cone-optimized volumetric raymarcher
// renderer strategy (spec §4.I): a half-resolution compute pass marches
// the density volume, then a full-screen blit upsamples the result to the
// swap-chain target with a linear-to-sRGB conversion.
package raymarch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/camera"
	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/density"
	"github.com/gekko3d/fluidkit/environment"
	"github.com/gekko3d/fluidkit/gpu"
	"github.com/gekko3d/fluidkit/renderer"
	"github.com/gekko3d/fluidkit/shaders"
)

// Renderer implements renderer.Renderer for the raymarched-volume strategy.
type Renderer struct {
	device  *gpu.Device
	buffers *gpu.Buffers
	orbit   *camera.Orbit
	env     *environment.Sampler
	vol     *density.Volume

	marchKernel  *gpu.ComputeKernel
	blitPipeline *wgpu.RenderPipeline
	blitBindGrp  *wgpu.BindGroup

	halfResTex  *wgpu.Texture
	halfResView *wgpu.TextureView
	backgroundTex *wgpu.Texture
	sampler     *wgpu.Sampler

	cameraBuf *wgpu.Buffer
	volumeBuf *wgpu.Buffer

	cfg     config.RaymarchConfig
	fullCfg *config.Config
	epoch   gpu.Epoch
}

// New is the renderer.Factory for registry registration.
func New() renderer.Renderer {
	return &Renderer{orbit: camera.NewOrbit()}
}

func (r *Renderer) Init(device *gpu.Device, buffers *gpu.Buffers, cfg *config.Config) error {
	r.device = device
	r.buffers = buffers
	r.env = environment.NewSampler(cfg.Environment, int64(cfg.Seed))
	r.cfg = cfg.Raymarch
	r.fullCfg = cfg
	bounds := mgl32.Vec3{cfg.BoundsSize[0], cfg.BoundsSize[1], cfg.BoundsSize[2]}
	r.vol = density.NewVolume(bounds, cfg.DensityTextureRes)

	halfW := uint32(float32(device.SurfaceConfig.Width) * r.cfg.RenderScale)
	halfH := uint32(float32(device.SurfaceConfig.Height) * r.cfg.RenderScale)
	if halfW < 1 {
		halfW = 1
	}
	if halfH < 1 {
		halfH = 1
	}

	var err error
	r.halfResTex, err = device.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "RaymarchHalfRes",
		Size:          wgpu.Extent3D{Width: halfW, Height: halfH, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA16Float,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("raymarch: create half-res texture: %w", err)
	}
	r.halfResView, err = r.halfResTex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("raymarch: create half-res view: %w", err)
	}

	r.backgroundTex, err = device.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "RaymarchBackground",
		Size:          wgpu.Extent3D{Width: halfW, Height: halfH, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA16Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("raymarch: create background texture: %w", err)
	}
	r.bakeBackground(halfW, halfH)

	r.sampler, err = device.Device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("raymarch: create sampler: %w", err)
	}

	r.cameraBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "RaymarchCamera", Size: 80, Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("raymarch: create camera buffer: %w", err)
	}
	r.volumeBuf, err = device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "RaymarchVolumeParams", Size: 64, Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("raymarch: create volume-params buffer: %w", err)
	}

	if buffers.DensityVolumeView != nil {
		r.marchKernel, err = device.CreateComputeKernel("raymarch-march", "main", shaders.RaymarchWGSL, map[uint32][]wgpu.BindGroupEntry{
			0: {
				{Binding: 0, Buffer: r.cameraBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: r.volumeBuf, Size: wgpu.WholeSize},
				{Binding: 2, TextureView: buffers.DensityVolumeView},
				{Binding: 3, Sampler: r.sampler},
				{Binding: 4, TextureView: mustView(r.backgroundTex)},
				{Binding: 5, TextureView: r.halfResView},
			},
		})
		if err != nil {
			return fmt.Errorf("raymarch: create march kernel: %w", err)
		}
	}

	if err := r.buildBlitPipeline(); err != nil {
		return err
	}

	r.epoch = buffers.Epoch
	return nil
}

// mustView creates a texture view for bind-group wiring at Init time, where
// the source textures were just successfully created and a view failure
// would indicate a driver-level problem no retry could recover from (same
// "fatal at init" policy as every other device-resource failure in this
// package, spec §7).
func mustView(tex *wgpu.Texture) *wgpu.TextureView {
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(fmt.Sprintf("raymarch: create texture view: %v", err))
	}
	return view
}

// bakeBackground renders the shared environment sampler into backgroundTex
// at the march pass's own half-res dimensions (spec §4.I step 4): re-baked
// whenever the camera or config could have changed what it should show
// (Init, Reset, Resize), not every frame -- the CPU sampler isn't cheap
// enough for that.
func (r *Renderer) bakeBackground(width, height uint32) {
	view := r.orbit.ViewMatrix()
	aspect := float32(r.device.SurfaceConfig.Width) / float32(r.device.SurfaceConfig.Height)
	proj := r.orbit.ProjectionMatrix(aspect)
	invViewProj := proj.Mul4(view).Inv()
	data := r.env.Bake(r.fullCfg, invViewProj, r.orbit.Eye(), int(width), int(height))
	r.device.WriteTexture(r.backgroundTex, data, width, height, 8)
}

// buildBlitPipeline compiles the final full-screen blit that upsamples the
// half-res march output to the swap-chain target with linear-to-sRGB
// conversion (spec §4.I "blit the half-res buffer to the swap-chain target
// with linear-to-sRGB conversion"). Follows the screen-space surface
// composite pass's full-screen-triangle render-pipeline shape, but against
// its own dedicated blit.wgsl rather than reusing surface_composite.wgsl --
// the two shaders read entirely different bind groups.
func (r *Renderer) buildBlitPipeline() error {
	shader, err := r.device.CreateShaderModule("raymarch-blit", shaders.BlitWGSL)
	if err != nil {
		return fmt.Errorf("raymarch: compile blit shader: %w", err)
	}
	defer shader.Release()

	pipeline, err := r.device.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "RaymarchBlitPipeline",
		Vertex: wgpu.VertexState{Module: shader, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module: shader, EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{Format: r.device.SurfaceConfig.Format, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive:   wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList, CullMode: wgpu.CullModeNone},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("raymarch: create blit pipeline: %w", err)
	}
	r.blitPipeline = pipeline

	bindGrp, err := r.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: r.halfResView},
			{Binding: 1, Sampler: r.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("raymarch: create blit bind group: %w", err)
	}
	r.blitBindGrp = bindGrp
	return nil
}

func (r *Renderer) Reset(cfg *config.Config) error {
	r.orbit = camera.NewOrbit()
	r.env = environment.NewSampler(cfg.Environment, int64(cfg.Seed))
	r.cfg = cfg.Raymarch
	r.fullCfg = cfg
	bounds := mgl32.Vec3{cfg.BoundsSize[0], cfg.BoundsSize[1], cfg.BoundsSize[2]}
	r.vol = density.NewVolume(bounds, cfg.DensityTextureRes)
	r.bakeBackground(r.halfResTex.GetWidth(), r.halfResTex.GetHeight())
	r.epoch = r.buffers.Epoch
	return nil
}

// Step uploads the per-frame camera inverse-view-projection and volume
// marching parameters (coarse/fine step, max steps, refraction count,
// Beer-Lambert absorption) the march kernel reads.
func (r *Renderer) Step(cfg *config.Config, dt float32) {
	view := r.orbit.ViewMatrix()
	proj := r.orbit.ProjectionMatrix(float32(r.device.SurfaceConfig.Width) / float32(r.device.SurfaceConfig.Height))
	viewProj := proj.Mul4(view)
	invViewProj := viewProj.Inv()

	camData := make([]byte, 80)
	m := invViewProj
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(camData[i*4:], math.Float32bits(m[i]))
	}
	eye := r.orbit.Eye()
	binary.LittleEndian.PutUint32(camData[64:], math.Float32bits(eye[0]))
	binary.LittleEndian.PutUint32(camData[68:], math.Float32bits(eye[1]))
	binary.LittleEndian.PutUint32(camData[72:], math.Float32bits(eye[2]))
	r.device.Queue.WriteBuffer(r.cameraBuf, 0, camData)

	volData := make([]byte, 64)
	min := r.vol.Min
	max := min.Add(mgl32.Vec3{
		r.vol.VoxelSize[0] * float32(r.vol.Res[0]),
		r.vol.VoxelSize[1] * float32(r.vol.Res[1]),
		r.vol.VoxelSize[2] * float32(r.vol.Res[2]),
	})
	putVec3(volData[0:], min)
	putVec3(volData[16:], max)
	binary.LittleEndian.PutUint32(volData[28:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(volData[32:], math.Float32bits(r.cfg.StepSize*4))
	binary.LittleEndian.PutUint32(volData[36:], math.Float32bits(r.cfg.StepSize))
	binary.LittleEndian.PutUint32(volData[40:], uint32(r.cfg.MaxSteps))
	binary.LittleEndian.PutUint32(volData[44:], uint32(r.cfg.NumRefractions))
	putVec3(volData[48:], mgl32.Vec3{r.cfg.Extinction[0], r.cfg.Extinction[1], r.cfg.Extinction[2]})
	r.device.Queue.WriteBuffer(r.volumeBuf, 0, volData)
}

func putVec3(dst []byte, v mgl32.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v[2]))
}

// Render dispatches the half-resolution march pass, then blits the result
// to the swap-chain target (spec §4.I).
func (r *Renderer) Render(device *gpu.Device) error {
	if r.buffers.Epoch != r.epoch {
		return fmt.Errorf("raymarch: stale buffer epoch, caller must re-Init after a reset")
	}

	surfaceTex, err := device.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("raymarch: get current texture: %w", err)
	}
	view, err := surfaceTex.Texture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("raymarch: create texture view: %w", err)
	}
	defer view.Release()

	encoder, err := device.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("raymarch: create command encoder: %w", err)
	}

	device.DispatchVolumePass(encoder, r.marchKernel, [3]int{
		int(r.halfResTex.GetWidth()), int(r.halfResTex.GetHeight()), 1,
	})

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{View: view, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore},
		},
	})
	pass.SetPipeline(r.blitPipeline)
	pass.SetBindGroup(0, r.blitBindGrp, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	return device.Submit(encoder)
}

// Resize recreates the half-res texture/view at the new render scale and
// rebuilds every bind group that references it -- both the march kernel's
// (binding 5) and the blit pass's -- since a bind group captures the view
// it was created against, not a reference that tracks a later texture swap.
func (r *Renderer) Resize(width, height uint32) {
	r.marchKernel.Destroy()
	if r.blitBindGrp != nil {
		r.blitBindGrp.Release()
	}
	if r.halfResTex != nil {
		r.halfResTex.Release()
	}
	if r.halfResView != nil {
		r.halfResView.Release()
	}
	if r.backgroundTex != nil {
		r.backgroundTex.Release()
	}
	halfW := uint32(float32(width) * r.cfg.RenderScale)
	halfH := uint32(float32(height) * r.cfg.RenderScale)
	if halfW < 1 {
		halfW = 1
	}
	if halfH < 1 {
		halfH = 1
	}
	var err error
	r.halfResTex, err = r.device.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "RaymarchHalfRes",
		Size:          wgpu.Extent3D{Width: halfW, Height: halfH, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA16Float,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		panic(fmt.Sprintf("raymarch: recreate half-res texture: %v", err))
	}
	r.halfResView = mustView(r.halfResTex)

	r.backgroundTex, err = r.device.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "RaymarchBackground",
		Size:          wgpu.Extent3D{Width: halfW, Height: halfH, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA16Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(fmt.Sprintf("raymarch: recreate background texture: %v", err))
	}
	r.bakeBackground(halfW, halfH)

	if r.buffers.DensityVolumeView != nil {
		r.marchKernel, err = r.device.CreateComputeKernel("raymarch-march", "main", shaders.RaymarchWGSL, map[uint32][]wgpu.BindGroupEntry{
			0: {
				{Binding: 0, Buffer: r.cameraBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: r.volumeBuf, Size: wgpu.WholeSize},
				{Binding: 2, TextureView: r.buffers.DensityVolumeView},
				{Binding: 3, Sampler: r.sampler},
				{Binding: 4, TextureView: mustView(r.backgroundTex)},
				{Binding: 5, TextureView: r.halfResView},
			},
		})
		if err != nil {
			panic(fmt.Sprintf("raymarch: recreate march kernel: %v", err))
		}
	}

	bindGrp, err := r.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: r.blitPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: r.halfResView},
			{Binding: 1, Sampler: r.sampler},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("raymarch: recreate blit bind group: %v", err))
	}
	r.blitBindGrp = bindGrp
}

func (r *Renderer) Destroy() {
	r.marchKernel.Destroy()
	if r.blitPipeline != nil {
		r.blitPipeline.Release()
	}
	if r.blitBindGrp != nil {
		r.blitBindGrp.Release()
	}
	for _, tex := range []*wgpu.Texture{r.halfResTex, r.backgroundTex} {
		if tex != nil {
			tex.Release()
		}
	}
	if r.halfResView != nil {
		r.halfResView.Release()
	}
	if r.sampler != nil {
		r.sampler.Release()
	}
	if r.cameraBuf != nil {
		r.cameraBuf.Release()
	}
	if r.volumeBuf != nil {
		r.volumeBuf.Release()
	}
}
