package scene

import (
	"testing"

	"github.com/achilleasa/voxray/types"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestDefaultViewMatrix(t *testing.T) {
	c := NewCamera()
	view := c.ViewMatrix()

	// The camera sits at (0, 0, 2) looking down -z.
	origin := view.MulPoint(types.XYZ(0, 0, 0))
	require.InDelta(t, 0, origin[0], 1e-6)
	require.InDelta(t, 0, origin[1], 1e-6)
	require.InDelta(t, 2, origin[2], 1e-6)

	dir := view.MulDir(types.XYZ(0, 0, -1)).Normalize()
	require.InDelta(t, -1, dir[2], 1e-6)
}

func TestOrbit(t *testing.T) {
	c := NewCamera()
	c.Orbit(0, 0)
	require.Equal(t, mgl32.QuatIdent(), c.Rotation)

	// A horizontal drag rotates around the y axis and keeps the distance.
	c.Orbit(0.18, 0)
	origin := c.ViewMatrix().MulPoint(types.XYZ(0, 0, 0))
	require.InDelta(t, 0, origin[1], 1e-5)
	require.InDelta(t, 2, origin.Len(), 1e-5)
	require.Greater(t, float64(abs(origin[0])), 1.0)

	c.Reset()
	require.Equal(t, mgl32.QuatIdent(), c.Rotation)
	require.Equal(t, mgl32.Vec3{0, 0, 2}, c.Translation)
}

func TestZoomLimit(t *testing.T) {
	c := NewCamera()
	c.Zoom(10)
	require.Equal(t, float32(minDistance), c.Translation.Z())

	c.Zoom(-1)
	require.InDelta(t, 1.01, c.Translation.Z(), 1e-6)

	c.Pan(0.5, 0.5, 2)
	require.Equal(t, float32(-1), c.Translation.X())
	require.Equal(t, float32(1), c.Translation.Y())
}

func TestModelScale(t *testing.T) {
	scale := ModelScale([3]int{256, 256, 64}, [3]float64{1, 1, 2})
	require.Equal(t, types.XYZ(1, 1, 0.5), scale)

	scale = ModelScale([3]int{32, 32, 32}, [3]float64{0, 1, 1})
	require.Equal(t, types.XYZ(1, 1, 1), scale)
}

func TestNormalizeBBox(t *testing.T) {
	lo, hi := NormalizeBBox([3]int{64, 0, 128}, [3]int{0, 128, 256}, [3]int{128, 128, 128})
	require.Equal(t, types.XYZ(-1, -1, 1), lo)
	require.Equal(t, types.XYZ(0, 1, 1), hi)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
