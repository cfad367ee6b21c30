package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraState_Basis(t *testing.T) {
	c := NewCameraState()

	// At rest the camera looks down -Z in a Y-up world.
	fwd := c.GetForward()
	assert.InDelta(t, 0, float64(fwd.X()), 1e-6)
	assert.InDelta(t, 0, float64(fwd.Y()), 1e-6)
	assert.InDelta(t, -1, float64(fwd.Z()), 1e-6)

	up := c.GetUp()
	assert.InDelta(t, 1, float64(up.Y()), 1e-6)

	// Orthonormal basis regardless of orientation.
	c.Yaw = 1.3
	c.Pitch = -0.7
	fwd = c.GetForward()
	right := c.GetRight()
	assert.InDelta(t, 1, float64(fwd.Len()), 1e-5)
	assert.InDelta(t, 1, float64(right.Len()), 1e-5)
	assert.InDelta(t, 0, float64(fwd.Dot(right)), 1e-5)
	assert.InDelta(t, 0, float64(fwd.Dot(c.GetUp())), 1e-5)
}

func TestCameraState_PitchClamp(t *testing.T) {
	c := NewCameraState()
	c.Rotate(0, -1e6)
	assert.Less(t, c.Pitch, float32(math.Pi/2))
	c.Rotate(0, 1e6)
	assert.Greater(t, c.Pitch, float32(-math.Pi/2))
}

func TestCameraState_Move(t *testing.T) {
	c := NewCameraState()
	c.Position = mgl32.Vec3{0, 0, 0}
	c.Speed = 2.0

	c.Move(mgl32.Vec3{0, 0, 1}, 0.5)
	assert.InDelta(t, -1, float64(c.Position.Z()), 1e-5, "walked forward one unit")

	// Diagonal input is normalized and does not move faster.
	c.Position = mgl32.Vec3{}
	c.Move(mgl32.Vec3{1, 0, 1}, 0.5)
	assert.InDelta(t, 1, float64(c.Position.Len()), 1e-5)
}

func TestCameraState_ViewProjection(t *testing.T) {
	c := NewCameraState()
	c.Position = mgl32.Vec3{0, 0, 5}

	// A point in front of the camera lands inside clip space.
	vp := c.GetViewProjection(16.0 / 9.0)
	clip := vp.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Mul(1 / clip.W())
	assert.InDelta(t, 0, float64(ndc.X()), 1e-5)
	assert.InDelta(t, 0, float64(ndc.Y()), 1e-5)
	assert.Greater(t, float64(ndc.Z()), 0.0)
	assert.Less(t, float64(ndc.Z()), 1.0)

	// Degenerate aspect falls back instead of producing NaNs.
	vp = c.GetViewProjection(0)
	assert.False(t, math.IsNaN(float64(vp.At(0, 0))))
}
