package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraViewLooksDownDirection(t *testing.T) {
	c := newCamera()

	// a point straight ahead lands on the negative Z axis in view space
	ahead := c.View().Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	assert.InDelta(t, 0, ahead.X(), 1e-6)
	assert.InDelta(t, 0, ahead.Y(), 1e-6)
	assert.InDelta(t, -2, ahead.Z(), 1e-6)

	// +Y stays up
	above := c.View().Mul4x1(mgl32.Vec4{0, 1, 1, 1})
	assert.InDelta(t, 1, above.Y(), 1e-6)
}

func TestCameraProjectionDepthRange(t *testing.T) {
	c := newCamera()
	proj := c.Projection(4.0 / 3.0)

	depth := func(z float32) float32 {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, -z, 1})
		return clip.Z() / clip.W()
	}
	assert.InDelta(t, 0, depth(c.Near), 1e-5)
	assert.InDelta(t, 1, depth(c.Far), 1e-5)

	// Y is not flipped
	top := proj.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	assert.Greater(t, top.Y(), float32(0))
}
