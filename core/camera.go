package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32 // radians, 0 looks down -Z
	Pitch       float32 // radians, clamped to avoid gimbal flip
	Speed       float32
	Sensitivity float32
	FovYDegrees float32
	Near        float32
	Far         float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{0, 0, 20},
		Yaw:         0,
		Pitch:       0,
		Speed:       10.0,
		Sensitivity: 0.003,
		FovYDegrees: 60.0,
		Near:        0.1,
		Far:         1000.0,
	}
}

// Y-up: yaw spins around Y, pitch tilts toward +Y.
func (c *CameraState) GetForward() mgl32.Vec3 {
	cp := math.Cos(float64(c.Pitch))
	return mgl32.Vec3{
		float32(math.Sin(float64(c.Yaw)) * cp),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Yaw)) * cp),
	}
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *CameraState) GetUp() mgl32.Vec3 {
	return c.GetRight().Cross(c.GetForward())
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	eye := c.Position
	target := eye.Add(c.GetForward())
	return mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
}

// glToWgpuDepth remaps GL clip z in [-1,1] to the [0,1] range WebGPU clips
// against.
var glToWgpuDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

func (c *CameraState) GetProjection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1.0
	}
	return glToWgpuDepth.Mul4(mgl32.Perspective(mgl32.DegToRad(c.FovYDegrees), aspect, c.Near, c.Far))
}

func (c *CameraState) GetViewProjection(aspect float32) mgl32.Mat4 {
	return c.GetProjection(aspect).Mul4(c.GetViewMatrix())
}

// Rotate applies mouse deltas scaled by sensitivity and clamps pitch just
// shy of straight up/down.
func (c *CameraState) Rotate(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch -= dy * c.Sensitivity

	limit := float32(math.Pi/2) - 0.01
	if c.Pitch > limit {
		c.Pitch = limit
	}
	if c.Pitch < -limit {
		c.Pitch = -limit
	}
}

// Move translates along the camera basis: move[0] strafes, move[1] lifts
// along world Y, move[2] walks forward.
func (c *CameraState) Move(move mgl32.Vec3, dt float32) {
	dir := mgl32.Vec3{}
	dir = dir.Add(c.GetRight().Mul(move[0]))
	dir = dir.Add(mgl32.Vec3{0, 1, 0}.Mul(move[1]))
	dir = dir.Add(c.GetForward().Mul(move[2]))

	if dir.Len() > 0 {
		c.Position = c.Position.Add(dir.Normalize().Mul(c.Speed * dt))
	}
}
