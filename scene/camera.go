package scene

import (
	"fmt"

	"github.com/achilleasa/voxray/types"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Degrees of rotation per unit of normalized cursor motion.
	orbitSensitivity = 500

	// The camera may not move through the volume center.
	minDistance = 0.01
)

// The camera orbits the volume. Its view matrix maps camera space to
// normalized model space.
type Camera struct {
	Rotation    mgl32.Quat
	Translation mgl32.Vec3
	Ortho       bool
}

// Create a camera looking at the volume from a distance of 2.
func NewCamera() *Camera {
	c := &Camera{}
	c.Reset()
	return c
}

// Reset rotation and translation to the defaults.
func (c *Camera) Reset() {
	c.Rotation = mgl32.QuatIdent()
	c.Translation = mgl32.Vec3{0, 0, 2}
}

// ViewMatrix returns R * T * S where S scales uniformly by the camera
// distance so orthographic projections zoom along with it.
func (c *Camera) ViewMatrix() types.Mat4 {
	r := c.Rotation.Normalize().Mat4()
	t := mgl32.Translate3D(c.Translation.X(), c.Translation.Y(), c.Translation.Z())
	z := c.Translation.Z()
	s := mgl32.Scale3D(z, z, z)
	return types.Mat4(r.Mul4(t).Mul4(s))
}

// Orbit rotates the camera by a cursor delta given in normalized screen
// units.
func (c *Camera) Orbit(dx, dy float32) {
	if dx == 0 && dy == 0 {
		return
	}
	axis := mgl32.Vec3{dy, dx, 0}.Normalize()
	angle := mgl32.Vec2{dx, dy}.Len() * orbitSensitivity
	c.Rotation = c.Rotation.Mul(mgl32.QuatRotate(mgl32.DegToRad(-angle), axis)).Normalize()
}

// Pan moves the camera parallel to the image plane.
func (c *Camera) Pan(dx, dy, sensitivity float32) {
	c.Translation[0] -= dx * sensitivity
	c.Translation[1] += dy * sensitivity
}

// Zoom moves the camera towards (positive delta) or away from the volume.
func (c *Camera) Zoom(delta float32) {
	c.Translation[2] = max(minDistance, c.Translation[2]-delta)
}

func (c *Camera) String() string {
	return fmt.Sprintf(
		"rotation: (%.4f %.4f %.4f %.4f), translation: (%.4f %.4f %.4f)",
		c.Rotation.W, c.Rotation.V[0], c.Rotation.V[1], c.Rotation.V[2],
		c.Translation[0], c.Translation[1], c.Translation[2],
	)
}
