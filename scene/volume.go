package scene

import (
	"github.com/achilleasa/voxray/types"
)

// ModelScale returns the physical extent of each volume axis normalized so
// that the largest axis spans [-1, 1]. Non-positive slice thicknesses are
// treated as 1.
func ModelScale(resolution [3]int, sliceThickness [3]float64) types.Vec3 {
	var extent [3]float64
	var largest float64
	for i := range extent {
		thickness := sliceThickness[i]
		if thickness <= 0 {
			thickness = 1
		}
		extent[i] = float64(max(resolution[i], 1)) * thickness
		largest = max(largest, extent[i])
	}

	var scale types.Vec3
	for i := range scale {
		scale[i] = float32(extent[i] / largest)
	}
	return scale
}

// NormalizeBBox maps a clipping box given in voxel coordinates to the
// normalized [-1, 1] model coordinates used by the render kernel. Corners
// are reordered and clamped to the volume.
func NormalizeBBox(bl, tr [3]int, resolution [3]int) (types.Vec3, types.Vec3) {
	var lo, hi types.Vec3
	for i := 0; i < 3; i++ {
		res := float32(max(resolution[i], 1))
		a := clamp(float32(bl[i])/res*2-1, -1, 1)
		b := clamp(float32(tr[i])/res*2-1, -1, 1)
		lo[i], hi[i] = min(a, b), max(a, b)
	}
	return lo, hi
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}
