package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var up = mgl32.Vec3{0, 1, 0}

// Camera is a perspective camera. FOV is the vertical field of view in
// degrees.
type Camera struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Near      float32
	Far       float32
	FOV       float32
}

func newCamera() Camera {
	return Camera{
		Position:  mgl32.Vec3{0, 0, 1},
		Direction: mgl32.Vec3{0, 0, -1},
		Near:      0.1,
		Far:       10,
		FOV:       45,
	}
}

func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Direction), up)
}

// Projection is a right-handed perspective projection mapping depth to
// [0, 1]. Y is not flipped here; the viewport does that.
func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	near, far := c.Near, c.Far
	fmn := far - near
	f := float32(1. / math.Tan(float64(mgl32.DegToRad(c.FOV))/2.0))

	return mgl32.Mat4{f / aspect, 0, 0, 0, 0, f, 0, 0, 0, 0, -far / fmn, -1, 0, 0, -(far * near) / fmn, 0}
}
