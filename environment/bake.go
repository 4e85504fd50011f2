package environment

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/camera"
	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/density"
)

// Bake renders a background plate by unprojecting every texel to a
// world-space ray, sampling it, and packing the result as RGBA16Float
// (spec §4.G step 6b, §4.I step 4: the composite/raymarch passes read this
// plate instead of marching past the fluid). width/height are the plate's
// own resolution, independent of the swap-chain size -- callers typically
// bake at the renderer's own low-res target size.
func (s *Sampler) Bake(cfg *config.Config, invViewProj mgl32.Mat4, eye mgl32.Vec3, width, height int) []byte {
	boundsHalf := mgl32.Vec3{cfg.BoundsSize[0] / 2, cfg.BoundsSize[1] / 2, cfg.BoundsSize[2] / 2}
	floorY := -boundsHalf.Y()
	obstacleCenter := mgl32.Vec3{cfg.ObstacleCentre[0], cfg.ObstacleCentre[1], cfg.ObstacleCentre[2]}
	obstacleHalf := mgl32.Vec3{cfg.ObstacleSize[0] / 2, cfg.ObstacleSize[1] / 2, cfg.ObstacleSize[2] / 2}

	out := make([]byte, width*height*8)
	for y := 0; y < height; y++ {
		ndcY := 1 - 2*(float32(y)+0.5)/float32(height)
		for x := 0; x < width; x++ {
			ndcX := 2*(float32(x)+0.5)/float32(width) - 1
			_, dir := camera.Unproject(mgl32.Vec2{ndcX, ndcY}, invViewProj)

			hitFloor := false
			var floorHit mgl32.Vec3
			if dir.Y() < -1e-6 {
				t := (floorY - eye.Y()) / dir.Y()
				if t > 0 {
					floorHit = eye.Add(dir.Mul(t))
					hitFloor = floorHit.X() >= -boundsHalf.X() && floorHit.X() <= boundsHalf.X() &&
						floorHit.Z() >= -boundsHalf.Z() && floorHit.Z() <= boundsHalf.Z()
				}
			}

			obstacleSilhouette := cfg.ObstacleEnabled &&
				rayHitsObstacle(eye, dir, obstacleCenter, cfg.ObstacleShape, obstacleHalf, cfg.ObstacleRadius)

			c := s.Sample(dir, floorHit, hitFloor, obstacleSilhouette)

			i := (y*width + x) * 8
			binary.LittleEndian.PutUint16(out[i:], density.EncodeFloat16(c.X()))
			binary.LittleEndian.PutUint16(out[i+2:], density.EncodeFloat16(c.Y()))
			binary.LittleEndian.PutUint16(out[i+4:], density.EncodeFloat16(c.Z()))
			binary.LittleEndian.PutUint16(out[i+6:], density.EncodeFloat16(1))
		}
	}
	return out
}

// rayHitsObstacle is a coarse silhouette test against the configured
// obstacle shape -- not the collision-grade SDF sph.collideObstacle uses,
// just enough to darken the background plate behind the obstacle.
func rayHitsObstacle(origin, dir, center mgl32.Vec3, shape config.ObstacleShape, halfExtents mgl32.Vec3, radius float32) bool {
	if shape == config.ObstacleSphere {
		toCenter := center.Sub(origin)
		proj := toCenter.Dot(dir)
		if proj < 0 {
			return false
		}
		closest := origin.Add(dir.Mul(proj))
		return closest.Sub(center).Len() <= radius
	}
	return rayAABBHit(origin, dir, center.Sub(halfExtents), center.Add(halfExtents))
}

// rayAABBHit is the standard slab test for a ray against an axis-aligned box.
func rayAABBHit(origin, dir, boxMin, boxMax mgl32.Vec3) bool {
	tMin, tMax := float32(0), float32(1e30)
	for axis := 0; axis < 3; axis++ {
		if absf(dir[axis]) < 1e-9 {
			if origin[axis] < boxMin[axis] || origin[axis] > boxMax[axis] {
				return false
			}
			continue
		}
		inv := 1 / dir[axis]
		t0 := (boxMin[axis] - origin[axis]) * inv
		t1 := (boxMax[axis] - origin[axis]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return false
		}
	}
	return true
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
