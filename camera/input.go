package camera

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/fluidkit/sph"
)

// Poller reads the window's pointer state once per frame, matching
// mod_input.go's poll-every-frame idiom (GetCursorPos/GetMouseButton)
// rather than relying solely on callbacks, so the interaction tool's
// pull/push flags are always in sync with the current frame (spec §6
// "Pointer input ... delivered each frame").
type Poller struct {
	window *glfw.Window
	orbit  *Orbit
	planeY float32

	lastX, lastY float64
	dragging     bool
}

// NewPoller builds a Poller bound to window, orbiting around orbit, picking
// against the horizontal plane y=planeY (the fluid's resting surface).
func NewPoller(window *glfw.Window, orbit *Orbit, planeY float32) *Poller {
	return &Poller{window: window, orbit: orbit, planeY: planeY}
}

// Poll reads the current mouse state and produces this frame's Interaction,
// updating the orbit camera from middle-button drags.
func (p *Poller) Poll(invViewProj mgl32.Mat4, width, height int) sph.Interaction {
	x, y := p.window.GetCursorPos()

	if p.window.GetMouseButton(glfw.MouseButtonMiddle) == glfw.Press {
		if p.dragging {
			p.orbit.Drag(float32(x-p.lastX), float32(y-p.lastY))
		}
		p.dragging = true
	} else {
		p.dragging = false
	}
	p.lastX, p.lastY = x, y

	ndc := mgl32.Vec2{
		float32(x)/float32(width)*2 - 1,
		1 - float32(y)/float32(height)*2,
	}
	origin, dir := Unproject(ndc, invViewProj)
	point, hit := RayPlaneIntersect(origin, dir, p.planeY)

	pull := p.window.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press
	push := p.window.GetMouseButton(glfw.MouseButtonRight) == glfw.Press

	return sph.Interaction{
		Active: hit && (pull || push),
		Pull:   pull,
		Push:   push,
		Point:  point,
	}
}
