package kernels

import "testing"

// TestKernelSupport verifies property 5: spikyPow2(r>=h)=0, poly6(r>=h)=0, and
// the derivatives vanish identically past the smoothing radius.
func TestKernelSupport(t *testing.T) {
	h := float32(1.0)
	s := NewScales(h)

	cases := []float32{h, h + 0.01, h * 2, 1e6}
	for _, r := range cases {
		if v := Poly6(r, h, s.Poly6); v != 0 {
			t.Errorf("Poly6(%v) = %v, want 0", r, v)
		}
		if v := SpikyPow2(r, h, s.SpikyPow2); v != 0 {
			t.Errorf("SpikyPow2(%v) = %v, want 0", r, v)
		}
		if v := SpikyPow3(r, h, s.SpikyPow3); v != 0 {
			t.Errorf("SpikyPow3(%v) = %v, want 0", r, v)
		}
		if v := DerivSpikyPow2(r, h, s.DerivSpikyPow2); v != 0 {
			t.Errorf("DerivSpikyPow2(%v) = %v, want 0", r, v)
		}
		if v := DerivSpikyPow3(r, h, s.DerivSpikyPow3); v != 0 {
			t.Errorf("DerivSpikyPow3(%v) = %v, want 0", r, v)
		}
	}
}

// TestKernelPositiveWithinSupport checks the kernels are strictly positive
// inside the support radius (sanity check underlying property 6's premise).
func TestKernelPositiveWithinSupport(t *testing.T) {
	h := float32(2.0)
	s := NewScales(h)

	for _, r := range []float32{0, 0.25, 1, 1.9} {
		if v := Poly6(r, h, s.Poly6); v <= 0 {
			t.Errorf("Poly6(%v) = %v, want > 0", r, v)
		}
		if v := SpikyPow2(r, h, s.SpikyPow2); v <= 0 {
			t.Errorf("SpikyPow2(%v) = %v, want > 0", r, v)
		}
		if v := SpikyPow3(r, h, s.SpikyPow3); v <= 0 {
			t.Errorf("SpikyPow3(%v) = %v, want > 0", r, v)
		}
	}
}

// TestDensityMonotonicity verifies property 6: density (spikyPow2 sum)
// increases as a neighbour moves from r=h toward r=0.
func TestDensityMonotonicity(t *testing.T) {
	h := float32(1.5)
	s := NewScales(h)

	prev := float32(-1)
	for r := h; r >= 0; r -= 0.1 {
		v := SpikyPow2(r, h, s.SpikyPow2)
		if v < prev {
			t.Fatalf("SpikyPow2 not monotonically increasing as r->0: at r=%v got %v < prev %v", r, v, prev)
		}
		prev = v
	}
}

// TestDerivativesNegateTowardCenter: the spiky derivatives are used as signed
// force magnitudes pointing away from the neighbour (repulsive); they must be
// <= 0 everywhere inside the support (since -s*(h-r) <= 0 for s>0, r<h).
func TestDerivativesNegateTowardCenter(t *testing.T) {
	h := float32(1.0)
	s := NewScales(h)
	for r := float32(0); r < h; r += 0.05 {
		if d := DerivSpikyPow2(r, h, s.DerivSpikyPow2); d > 0 {
			t.Errorf("DerivSpikyPow2(%v) = %v, want <= 0", r, d)
		}
		if d := DerivSpikyPow3(r, h, s.DerivSpikyPow3); d > 0 {
			t.Errorf("DerivSpikyPow3(%v) = %v, want <= 0", r, d)
		}
	}
}
