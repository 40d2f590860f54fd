package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	moveSpeed        = 1.0
	mouseSensitivity = 0.065
	maxPitch         = 89.5
)

// inputSource is the part of the engine the camera controls read.
type inputSource interface {
	IsKeyPressed(code sdl.Scancode) bool
	CursorPos() mgl32.Vec2
}

// controller moves a camera with WASD, Space and left Shift and turns it
// with the mouse. Angles are in degrees; positive pitch looks down.
type controller struct {
	yaw, pitch float32
	last       mgl32.Vec2
	primed     bool
}

func newController(c Camera) *controller {
	dir := c.Direction.Normalize()
	pitch := -math.Asin(float64(dir.Y()))
	yaw := math.Atan2(float64(dir.Z()), float64(dir.X()))
	return &controller{
		yaw:   mgl32.RadToDeg(float32(yaw)),
		pitch: mgl32.RadToDeg(float32(pitch)),
	}
}

func (ctl *controller) update(in inputSource, c *Camera, dt float32) {
	ctl.move(in, c, dt)
	ctl.turn(in, c)
}

func (ctl *controller) move(in inputSource, c *Camera, dt float32) {
	step := moveSpeed * dt

	right := up.Cross(c.Direction)
	if right.Len() > 0 {
		right = right.Normalize()
		if in.IsKeyPressed(sdl.SCANCODE_A) {
			c.Position = c.Position.Add(right.Mul(step))
		}
		if in.IsKeyPressed(sdl.SCANCODE_D) {
			c.Position = c.Position.Sub(right.Mul(step))
		}
	}

	forward := mgl32.Vec3{c.Direction.X(), 0, c.Direction.Z()}
	if forward.Len() > 0 {
		forward = forward.Normalize()
		if in.IsKeyPressed(sdl.SCANCODE_W) {
			c.Position = c.Position.Add(forward.Mul(step))
		}
		if in.IsKeyPressed(sdl.SCANCODE_S) {
			c.Position = c.Position.Sub(forward.Mul(step))
		}
	}

	if in.IsKeyPressed(sdl.SCANCODE_SPACE) {
		c.Position = c.Position.Add(up.Mul(step))
	}
	if in.IsKeyPressed(sdl.SCANCODE_LSHIFT) {
		c.Position = c.Position.Sub(up.Mul(step))
	}
}

func (ctl *controller) turn(in inputSource, c *Camera) {
	cursor := in.CursorPos()
	if !ctl.primed {
		ctl.last = cursor
		ctl.primed = true
	}
	delta := cursor.Sub(ctl.last)
	ctl.last = cursor

	ctl.yaw += delta.X() * mouseSensitivity
	ctl.pitch = mgl32.Clamp(ctl.pitch+delta.Y()*mouseSensitivity, -maxPitch, maxPitch)

	yaw, pitch := mgl32.DegToRad(ctl.yaw), mgl32.DegToRad(ctl.pitch)
	c.Direction = mgl32.Vec3{
		float32(math.Cos(float64(yaw)) * math.Cos(float64(pitch))),
		float32(math.Sin(float64(-pitch))),
		float32(math.Sin(float64(yaw)) * math.Cos(float64(pitch))),
	}
}
