// Package camera provides the viewer pose used for culling and LOD.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective viewer over the park. The simulation reads
// its position for LOD distances and its view-projection matrix for
// frustum culling; it renders nothing itself.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	FOV    float32 // vertical field of view in radians
	Aspect float32
	Near   float32
	Far    float32
}

// New creates a camera looking at the center of the grounds from the
// given position.
func New(position, target mgl32.Vec3, aspect float32) *Camera {
	return &Camera{
		Position: position,
		Target:   target,
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      mgl32.DegToRad(60),
		Aspect:   aspect,
		Near:     0.1,
		Far:      500,
	}
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the perspective projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

// ViewProjection returns the combined matrix for frustum extraction.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// Dolly moves the camera along its view direction, keeping the target.
func (c *Camera) Dolly(amount float32) {
	c.Position = c.Position.Add(c.Forward().Mul(amount))
}

// Pan translates position and target together in the ground plane,
// relative to the view direction.
func (c *Camera) Pan(right, forward float32) {
	f := c.Forward()
	flat := mgl32.Vec3{f.X(), 0, f.Z()}
	if l := flat.Len(); l > 1e-6 {
		flat = flat.Mul(1 / l)
	}
	side := flat.Cross(c.Up)
	delta := side.Mul(right).Add(flat.Mul(forward))
	c.Position = c.Position.Add(delta)
	c.Target = c.Target.Add(delta)
}
