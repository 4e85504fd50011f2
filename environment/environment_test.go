package environment

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/config"
)

func TestSampleSkyIsWithinUnitRange(t *testing.T) {
	cfg := config.Default().Environment
	s := NewSampler(cfg, 1)
	color := s.Sample(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{}, false, false)
	for axis := 0; axis < 3; axis++ {
		if color[axis] < 0 || color[axis] > 1 {
			t.Fatalf("sky color component %d = %v out of [0,1]", axis, color[axis])
		}
	}
}

func TestSampleObstacleSilhouetteIsDark(t *testing.T) {
	cfg := config.Default().Environment
	s := NewSampler(cfg, 1)
	color := s.Sample(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{}, false, true)
	if color.X() > 0.2 || color.Y() > 0.2 || color.Z() > 0.2 {
		t.Fatalf("expected dark silhouette color, got %v", color)
	}
}

func TestSampleIsDeterministicForSameSeed(t *testing.T) {
	cfg := config.Default().Environment
	s1 := NewSampler(cfg, 42)
	s2 := NewSampler(cfg, 42)

	p := mgl32.Vec3{1.3, 0, 2.7}
	c1 := s1.Sample(mgl32.Vec3{0, -1, 0}, p, true, false)
	c2 := s2.Sample(mgl32.Vec3{0, -1, 0}, p, true, false)
	if c1 != c2 {
		t.Fatalf("same seed should produce identical checker dithering: %v vs %v", c1, c2)
	}
}
