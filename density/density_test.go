package density

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/kernels"
)

// TestVoxelResolveRoundTrip verifies property 7: for a single particle
// splatted and resolved, the sampled volume integral (sum over voxels *
// voxel volume) approximates the analytic integral of spikyPow2 over its
// support, within numerical tolerance.
func TestVoxelResolveRoundTrip(t *testing.T) {
	bounds := mgl32.Vec3{8, 8, 8}
	h := float32(1.0)
	v := NewVolume(bounds, 64)

	v.Clear()
	v.Splat([]mgl32.Vec3{{0, 0, 0}}, h)
	v.Resolve()

	voxelVolume := v.VoxelSize[0] * v.VoxelSize[1] * v.VoxelSize[2]
	var sampledIntegral float64
	for cz := 0; cz < v.Res[2]; cz++ {
		for cy := 0; cy < v.Res[1]; cy++ {
			for cx := 0; cx < v.Res[0]; cx++ {
				sampledIntegral += float64(v.SampleResolved(cx, cy, cz)) * float64(voxelVolume)
			}
		}
	}

	analyticIntegral := analyticSpikyPow2Integral(h)

	tol := 0.25 * analyticIntegral // coarse voxelization tolerance
	if math.Abs(sampledIntegral-analyticIntegral) > tol {
		t.Fatalf("sampled integral %v too far from analytic %v (tol %v)", sampledIntegral, analyticIntegral, tol)
	}
}

// analyticSpikyPow2Integral computes int_0^h spikyPow2(r,h)*4*pi*r^2 dr
// numerically via fine Riemann sum, independent of the voxel grid.
func analyticSpikyPow2Integral(h float32) float64 {
	scales := kernels.NewScales(h)
	const steps = 100000
	dr := float64(h) / steps
	var sum float64
	for i := 0; i < steps; i++ {
		r := float32((float64(i) + 0.5) * dr)
		w := float64(kernels.SpikyPow2(r, h, scales.SpikyPow2))
		sum += w * 4 * math.Pi * float64(r) * float64(r) * dr
	}
	return sum
}

func TestSplatOutsideVolumeContributesNothing(t *testing.T) {
	v := NewVolume(mgl32.Vec3{4, 4, 4}, 16)
	v.Clear()
	v.Splat([]mgl32.Vec3{{1000, 1000, 1000}}, 1.0)
	v.Resolve()
	for cz := 0; cz < v.Res[2]; cz++ {
		for cy := 0; cy < v.Res[1]; cy++ {
			for cx := 0; cx < v.Res[0]; cx++ {
				if v.SampleResolved(cx, cy, cz) != 0 {
					t.Fatalf("expected zero density at (%d,%d,%d), got %v", cx, cy, cz, v.SampleResolved(cx, cy, cz))
				}
			}
		}
	}
}

func TestClearZeroesAccumulatorBetweenFrames(t *testing.T) {
	v := NewVolume(mgl32.Vec3{4, 4, 4}, 16)
	v.Splat([]mgl32.Vec3{{0, 0, 0}}, 1.0)
	v.Resolve()
	var before float32
	for _, val := range v.resolved {
		before += DecodeFloat16(val)
	}
	if before == 0 {
		t.Fatal("expected non-zero density after first splat")
	}

	v.Clear()
	v.Resolve()
	for _, val := range v.resolved {
		if DecodeFloat16(val) != 0 {
			t.Fatalf("expected zero density after Clear+Resolve, got %v", DecodeFloat16(val))
		}
	}
}

func TestFloat16RoundTripCommonValues(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, 123.25, -0.001, 65504, 1e-5}
	for _, want := range values {
		encoded := EncodeFloat16(want)
		got := DecodeFloat16(encoded)
		diff := math.Abs(float64(got - want))
		tol := 0.01 * math.Abs(float64(want))
		if tol < 1e-3 {
			tol = 1e-3
		}
		if diff > tol {
			t.Errorf("float16 round trip for %v: got %v, diff %v > tol %v", want, got, diff, tol)
		}
	}
}

func TestFloat16ZeroAndSubnormal(t *testing.T) {
	if DecodeFloat16(EncodeFloat16(0)) != 0 {
		t.Fatal("zero should round-trip exactly")
	}
	tiny := float32(1e-8)
	encoded := EncodeFloat16(tiny)
	got := DecodeFloat16(encoded)
	if got < 0 {
		t.Fatalf("tiny positive value decoded negative: %v", got)
	}
}
