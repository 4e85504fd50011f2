package renderer

import (
	"testing"

	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/gpu"
)

type fakeRenderer struct {
	name               Name
	initCount          int
	resetCount         int
	destroyCount       int
	destroyedBeforeInit bool
}

func (f *fakeRenderer) Init(device *gpu.Device, buffers *gpu.Buffers, cfg *config.Config) error {
	f.initCount++
	return nil
}
func (f *fakeRenderer) Reset(cfg *config.Config) error { f.resetCount++; return nil }
func (f *fakeRenderer) Step(cfg *config.Config, dt float32) {}
func (f *fakeRenderer) Render(device *gpu.Device) error { return nil }
func (f *fakeRenderer) Resize(width, height uint32)     {}
func (f *fakeRenderer) Destroy()                         { f.destroyCount++ }

func TestRegisterPreservesOrder(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(Billboard, func() Renderer { return &fakeRenderer{name: Billboard} })
	r.Register(Raymarch, func() Renderer { return &fakeRenderer{name: Raymarch} })
	r.Register(MarchingCubes, func() Renderer { return &fakeRenderer{name: MarchingCubes} })

	names := r.Names()
	want := []Name{Billboard, Raymarch, MarchingCubes}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}
}

func TestSwitchInitializesAndResetsTheNewRenderer(t *testing.T) {
	r := NewRegistry(nil, nil)
	var created *fakeRenderer
	r.Register(Billboard, func() Renderer {
		created = &fakeRenderer{name: Billboard}
		return created
	})

	cfg := config.Default()
	inst, err := r.Switch(Billboard, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst != created {
		t.Fatal("expected Switch to return the constructed instance")
	}
	if created.initCount != 1 || created.resetCount != 1 {
		t.Fatalf("expected Init and Reset called once each, got init=%d reset=%d", created.initCount, created.resetCount)
	}
	if r.Active() != Billboard {
		t.Fatalf("expected active renderer %q, got %q", Billboard, r.Active())
	}
}

func TestSwitchDestroysThePreviousRenderer(t *testing.T) {
	r := NewRegistry(nil, nil)
	var first, second *fakeRenderer
	r.Register(Billboard, func() Renderer {
		first = &fakeRenderer{name: Billboard}
		return first
	})
	r.Register(Raymarch, func() Renderer {
		second = &fakeRenderer{name: Raymarch}
		return second
	})

	cfg := config.Default()
	if _, err := r.Switch(Billboard, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Switch(Raymarch, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.destroyCount != 1 {
		t.Fatalf("expected previous renderer destroyed once, got %d", first.destroyCount)
	}
	if second.destroyCount != 0 {
		t.Fatalf("expected new renderer not destroyed, got %d", second.destroyCount)
	}
	if r.Active() != Raymarch {
		t.Fatalf("expected active renderer %q, got %q", Raymarch, r.Active())
	}
}

func TestSwitchToUnregisteredNameReturnsError(t *testing.T) {
	r := NewRegistry(nil, nil)
	if _, err := r.Switch(Billboard, config.Default()); err == nil {
		t.Fatal("expected error switching to an unregistered renderer")
	}
}
