// Package renderer holds the Renderer interface every visualization
// strategy implements, plus the registry that switches between them at
// runtime (spec §4.J).
package renderer

import (
	"fmt"

	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/gpu"
)

// Name identifies a registered renderer strategy.
type Name string

const (
	Billboard     Name = "billboard"
	ScreenSpace   Name = "screenspace"
	MarchingCubes Name = "marchingcubes"
	Raymarch      Name = "raymarch"
)

// Renderer is implemented by every visualization strategy (billboard
// particles, screen-space surface, marching cubes, raymarched volume).
type Renderer interface {
	Init(device *gpu.Device, buffers *gpu.Buffers, cfg *config.Config) error
	Reset(cfg *config.Config) error
	Step(cfg *config.Config, dt float32)
	Render(view *gpu.Device) error
	Resize(width, height uint32)
	Destroy()
}

// Factory constructs a fresh, uninitialized Renderer instance.
type Factory func() Renderer

// Registry holds an ordered list of renderer factories and the currently
// active renderer (spec §4.J "ordered list of renderer factories").
type Registry struct {
	device   *gpu.Device
	buffers  *gpu.Buffers
	order    []Name
	factory  map[Name]Factory
	active   Name
	instance Renderer
}

// NewRegistry builds an empty registry bound to device/buffers.
func NewRegistry(device *gpu.Device, buffers *gpu.Buffers) *Registry {
	return &Registry{
		device:  device,
		buffers: buffers,
		factory: make(map[Name]Factory),
	}
}

// Register adds a renderer factory under name, preserving registration order.
func (r *Registry) Register(name Name, f Factory) {
	if _, exists := r.factory[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factory[name] = f
}

// Names returns the registered renderer names in registration order.
func (r *Registry) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

// Active returns the name of the currently active renderer, or "" if none.
func (r *Registry) Active() Name {
	return r.active
}

// Switch performs the renderer switch of spec §4.J: destroy the old
// renderer's GPU resources, create the new one, rebind input (the caller's
// responsibility -- Switch returns the new Renderer for the caller to wire
// into its input poller), and trigger a reset. Nothing is copied between the
// old and new renderer; shared config fields carry over because every
// renderer reads the same cfg passed here.
func (r *Registry) Switch(name Name, cfg *config.Config) (Renderer, error) {
	factory, ok := r.factory[name]
	if !ok {
		return nil, fmt.Errorf("renderer: no factory registered for %q", name)
	}

	if r.instance != nil {
		r.instance.Destroy()
	}

	next := factory()
	if err := next.Init(r.device, r.buffers, cfg); err != nil {
		return nil, fmt.Errorf("renderer: init %q: %w", name, err)
	}
	if err := next.Reset(cfg); err != nil {
		return nil, fmt.Errorf("renderer: reset %q: %w", name, err)
	}

	r.instance = next
	r.active = name
	return next, nil
}

// Current returns the active Renderer instance, or nil if Switch has never
// been called.
func (r *Registry) Current() Renderer {
	return r.instance
}

// Destroy releases the active renderer's resources, if any.
func (r *Registry) Destroy() {
	if r.instance != nil {
		r.instance.Destroy()
		r.instance = nil
		r.active = ""
	}
}
