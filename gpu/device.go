// Package gpu owns WebGPU bring-up and the device-resident buffers/textures
// every renderer strategy shares (spec §5 "Concurrency & Resource Model").
package gpu

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window wraps the GLFW window the surface is created from.
type Window struct {
	handle *glfw.Window
	Width  int
	Height int
	title  string
}

// NewWindow creates a GLFW window with no client API, matching how a wgpu
// surface must be created -- GLFW must not bind GL/GLES to the window.
func NewWindow(width, height int, title string) (*Window, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("gpu: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create window: %w", err)
	}

	return &Window{handle: win, Width: width, Height: height, title: title}, nil
}

// Handle exposes the underlying GLFW window for input polling.
func (w *Window) Handle() *glfw.Window { return w.handle }

// ShouldClose reports whether the user requested the window be closed.
func (w *Window) ShouldClose() bool { return w.handle.ShouldClose() }

// PollEvents drains the GLFW event queue for this frame.
func (w *Window) PollEvents() { glfw.PollEvents() }

// Destroy releases the GLFW window.
func (w *Window) Destroy() { w.handle.Destroy() }

// Device bundles the WebGPU surface/adapter/device/queue every component
// built on top of gpu depends on, matching the teacher's GpuState shape.
type Device struct {
	Surface       *wgpu.Surface
	Adapter       *wgpu.Adapter
	Device        *wgpu.Device
	Queue         *wgpu.Queue
	SurfaceConfig *wgpu.SurfaceConfiguration
}

// NewDevice requests an adapter/device for win and configures its surface.
func NewDevice(win *Window) (*Device, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win.handle))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "fluidkit device",
		RequiredFeatures: nil,
		RequiredLimits:   nil,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	queue := device.GetQueue()

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(win.Width),
		Height:      uint32(win.Height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &Device{
		Surface:       surface,
		Adapter:       adapter,
		Device:        device,
		Queue:         queue,
		SurfaceConfig: &surfaceConfig,
	}, nil
}

// Resize reconfigures the surface for a new window size.
func (d *Device) Resize(width, height uint32) {
	d.SurfaceConfig.Width = width
	d.SurfaceConfig.Height = height
	d.Surface.Configure(d.Adapter, d.Device, d.SurfaceConfig)
}

// Destroy releases the device and surface.
func (d *Device) Destroy() {
	d.Device.Release()
	d.Surface.Release()
}

// WriteBuffer uploads data to buf at offset via the device queue -- the
// single path every per-frame uniform/storage upload in this module goes
// through.
func (d *Device) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	return d.Queue.WriteBuffer(buf, offset, data)
}

// WriteTexture uploads a tightly-packed 2D image (bytesPerRow = width *
// bytesPerTexel) into tex's base mip level, the same Queue.WriteTexture
// call the teacher's text-atlas/voxel-payload uploads use (voxelrt/rt/app/
// app.go's setupTextResources, voxelrt/rt/gpu/manager.go's brick payload
// upload).
func (d *Device) WriteTexture(tex *wgpu.Texture, data []byte, width, height, bytesPerTexel uint32) {
	d.Queue.WriteTexture(
		tex.AsImageCopy(),
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * bytesPerTexel,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
}

// CreateShaderModule compiles WGSL source into a shader module.
func (d *Device) CreateShaderModule(label, code string) (*wgpu.ShaderModule, error) {
	return d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
}
