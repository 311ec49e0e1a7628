package components

import (
	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/math"
)

const (
	minPitch = -89.0
	maxPitch = 89.0
)

// Camera orbits a target point. Yaw and pitch are in degrees, pitch stays
// inside (-90, 90) so the view never flips.
type Camera struct {
	Target      math.Vec3
	Distance    float32
	MinDistance float32
	MaxDistance float32
	Yaw         float32
	Pitch       float32

	FovDegrees float32
	Near       float32
	Far        float32

	// RotateSpeed is degrees per pixel of drag, KeySpeed degrees per second
	// of key hold and ZoomSpeed the distance factor per wheel step.
	RotateSpeed float32
	KeySpeed    float32
	ZoomSpeed   float32

	isDirty    bool
	viewMatrix math.Mat4

	dragging bool
	lastX    float64
	lastY    float64
}

func NewCamera(target math.Vec3, distance float32) *Camera {
	c := &Camera{
		Target:      target,
		MinDistance: 0.1,
		MaxDistance: 1000,
		FovDegrees:  45,
		Near:        0.1,
		Far:         1000,
		RotateSpeed: 0.3,
		KeySpeed:    90,
		ZoomSpeed:   0.1,
	}
	c.SetDistance(distance)
	c.isDirty = true
	return c
}

func (c *Camera) SetDistance(distance float32) {
	c.Distance = math.Clamp(distance, c.MinDistance, c.MaxDistance)
	c.isDirty = true
}

func (c *Camera) SetTarget(target math.Vec3) {
	c.Target = target
	c.isDirty = true
}

// Rotate adds to yaw and pitch, clamping the pitch.
func (c *Camera) Rotate(yawDegrees, pitchDegrees float32) {
	c.Yaw += yawDegrees
	for c.Yaw >= 360 {
		c.Yaw -= 360
	}
	for c.Yaw < 0 {
		c.Yaw += 360
	}
	c.Pitch = math.Clamp(c.Pitch+pitchDegrees, minPitch, maxPitch)
	c.isDirty = true
}

// Zoom moves towards the target for positive steps.
func (c *Camera) Zoom(steps float32) {
	factor := 1 - steps*c.ZoomSpeed
	if factor < 0.05 {
		factor = 0.05
	}
	c.SetDistance(c.Distance * factor)
}

// Position is the eye point on the orbit sphere.
func (c *Camera) Position() math.Vec3 {
	yaw := math.DegToRad(c.Yaw)
	pitch := math.DegToRad(c.Pitch)
	offset := math.NewVec3(
		math.Cos(pitch)*math.Sin(yaw),
		math.Sin(pitch),
		math.Cos(pitch)*math.Cos(yaw),
	)
	return c.Target.Add(offset.MulScalar(c.Distance))
}

func (c *Camera) View() math.Mat4 {
	if c.isDirty {
		c.viewMatrix = math.NewMat4LookAt(c.Position(), c.Target, math.NewVec3Up())
		c.isDirty = false
	}
	return c.viewMatrix
}

func (c *Camera) Projection(aspect float32) math.Mat4 {
	return math.NewMat4Perspective(math.DegToRad(c.FovDegrees), aspect, c.Near, c.Far)
}

// Update applies held keys: A/D and the arrows orbit, W/S zoom.
func (c *Camera) Update(deltaSeconds float32) {
	step := c.KeySpeed * deltaSeconds
	if core.InputIsKeyDown(core.KEY_A) || core.InputIsKeyDown(core.KEY_LEFT) {
		c.Rotate(-step, 0)
	}
	if core.InputIsKeyDown(core.KEY_D) || core.InputIsKeyDown(core.KEY_RIGHT) {
		c.Rotate(step, 0)
	}
	if core.InputIsKeyDown(core.KEY_UP) {
		c.Rotate(0, step)
	}
	if core.InputIsKeyDown(core.KEY_DOWN) {
		c.Rotate(0, -step)
	}
	if core.InputIsKeyDown(core.KEY_W) {
		c.Zoom(deltaSeconds * 5)
	}
	if core.InputIsKeyDown(core.KEY_S) {
		c.Zoom(-deltaSeconds * 5)
	}
}

// Attach subscribes the camera to cursor and scroll events.
func (c *Camera) Attach() {
	core.EventRegister(core.EVENT_CODE_MOUSE_MOVED, c, c.onMouseMoved)
	core.EventRegister(core.EVENT_CODE_MOUSE_WHEEL, c, c.onMouseWheel)
}

func (c *Camera) Detach() {
	core.EventUnregister(core.EVENT_CODE_MOUSE_MOVED, c)
	core.EventUnregister(core.EVENT_CODE_MOUSE_WHEEL, c)
	c.dragging = false
}

// onMouseMoved orbits while the left button is held.
func (c *Camera) onMouseMoved(context core.EventContext) bool {
	e, ok := context.Data.(*core.MouseEvent)
	if !ok {
		return false
	}
	if !core.InputIsButtonDown(core.BUTTON_LEFT) {
		c.dragging = false
		return false
	}
	if c.dragging {
		dx := float32(e.PosX - c.lastX)
		dy := float32(e.PosY - c.lastY)
		c.Rotate(-dx*c.RotateSpeed, dy*c.RotateSpeed)
	}
	c.dragging = true
	c.lastX, c.lastY = e.PosX, e.PosY
	return false
}

func (c *Camera) onMouseWheel(context core.EventContext) bool {
	e, ok := context.Data.(*core.MouseEvent)
	if !ok {
		return false
	}
	c.Zoom(float32(e.Scroll))
	return true
}
