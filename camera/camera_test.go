package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func vecClose(a, b mgl32.Vec3, eps float32) bool {
	return absf(a.X()-b.X()) < eps && absf(a.Y()-b.Y()) < eps && absf(a.Z()-b.Z()) < eps
}

func TestEyeIsDistanceFromTarget(t *testing.T) {
	o := NewOrbit()
	eye := o.Eye()
	if got := eye.Sub(o.Target).Len(); absf(got-o.Distance) > 1e-3 {
		t.Fatalf("expected eye distance %v, got %v", o.Distance, got)
	}
}

func TestDragClampsPitchAwayFromPoles(t *testing.T) {
	o := NewOrbit()
	for i := 0; i < 10000; i++ {
		o.Drag(0, 1000)
	}
	const limit = math.Pi/2 - 0.01
	if o.Pitch > limit+1e-3 {
		t.Fatalf("pitch %v exceeded clamp limit %v", o.Pitch, limit)
	}
}

func TestZoomClampsToDistanceRange(t *testing.T) {
	o := NewOrbit()
	o.Zoom(10000)
	if o.Distance != o.MinDistance {
		t.Fatalf("expected distance clamped to MinDistance, got %v", o.Distance)
	}
	o.Zoom(-10000)
	if o.Distance != o.MaxDistance {
		t.Fatalf("expected distance clamped to MaxDistance, got %v", o.Distance)
	}
}

func TestUnprojectAndViewProjectRoundTrip(t *testing.T) {
	o := NewOrbit()
	view := o.ViewMatrix()
	proj := o.ProjectionMatrix(1.0)
	viewProj := proj.Mul4(view)
	invViewProj := viewProj.Inv()

	origin, dir := Unproject(mgl32.Vec2{0, 0}, invViewProj)
	if dir.Len() < 0.99 || dir.Len() > 1.01 {
		t.Fatalf("expected unit direction, got len %v", dir.Len())
	}
	if !vecClose(origin, o.Eye(), 0.05) {
		t.Fatalf("expected near point close to eye, got %v vs eye %v", origin, o.Eye())
	}
}

func TestRayPlaneIntersectHitsExpectedPoint(t *testing.T) {
	origin := mgl32.Vec3{0, 5, 0}
	dir := mgl32.Vec3{0, -1, 0}
	point, hit := RayPlaneIntersect(origin, dir, 0)
	if !hit {
		t.Fatal("expected ray to hit plane")
	}
	if !vecClose(point, mgl32.Vec3{0, 0, 0}, 1e-4) {
		t.Fatalf("expected intersection at origin, got %v", point)
	}
}

func TestRayPlaneIntersectMissesParallelRay(t *testing.T) {
	origin := mgl32.Vec3{0, 5, 0}
	dir := mgl32.Vec3{1, 0, 0}
	_, hit := RayPlaneIntersect(origin, dir, 0)
	if hit {
		t.Fatal("expected parallel ray to miss plane")
	}
}

func TestRayPlaneIntersectMissesBehindOrigin(t *testing.T) {
	origin := mgl32.Vec3{0, 5, 0}
	dir := mgl32.Vec3{0, 1, 0}
	_, hit := RayPlaneIntersect(origin, dir, 0)
	if hit {
		t.Fatal("expected plane behind ray origin to miss")
	}
}
