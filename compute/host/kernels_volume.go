package host

import (
	"fmt"
	"math"

	"github.com/achilleasa/voxray/kernel"
	"github.com/achilleasa/voxray/types"
)

// generateBricks(volume, bricks): store the (min, max) first-channel value of
// the voxels covered by each brick.
func generateBricks(args []interface{}) (func(wg workGroup), error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expected 2 args; got %d", len(args))
	}
	vol, err := imageArg(args, 0)
	if err != nil {
		return nil, err
	}
	bricks, err := imageArg(args, 1)
	if err != nil {
		return nil, err
	}
	if vol.desc.Dims() != 3 || bricks.desc.Dims() != 3 {
		return nil, fmt.Errorf("generateBricks requires 3D images")
	}

	return func(wg workGroup) {
		wg.forEach(func(gid [3]int) {
			if gid[0] >= bricks.w || gid[1] >= bricks.h || gid[2] >= bricks.d {
				return
			}
			x0, x1 := kernel.BrickRange(gid[0], vol.w, bricks.w)
			y0, y1 := kernel.BrickRange(gid[1], vol.h, bricks.h)
			z0, z1 := kernel.BrickRange(gid[2], vol.d, bricks.d)

			lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
			for z := z0; z < z1; z++ {
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						v := vol.FetchR(x, y, z)
						if v < lo {
							lo = v
						}
						if v > hi {
							hi = v
						}
					}
				}
			}
			if lo > hi {
				lo, hi = 0, 0
			}
			bricks.Store(gid[0], gid[1], gid[2], types.XYZW(lo, hi, 0, 0))
		})
	}, nil
}

// downsampling(volume, out): box filter the source voxels covered by each
// destination voxel.
func downsampling(args []interface{}) (func(wg workGroup), error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expected 2 args; got %d", len(args))
	}
	vol, err := imageArg(args, 0)
	if err != nil {
		return nil, err
	}
	out, err := imageArg(args, 1)
	if err != nil {
		return nil, err
	}
	if vol.desc.Dims() != 3 || out.desc.Dims() != 3 {
		return nil, fmt.Errorf("downsampling requires 3D images")
	}

	span := func(i, src, dst int) (int, int) {
		from := i * src / dst
		to := (i + 1) * src / dst
		if to <= from {
			to = from + 1
		}
		return from, min(to, src)
	}

	return func(wg workGroup) {
		wg.forEach(func(gid [3]int) {
			if gid[0] >= out.w || gid[1] >= out.h || gid[2] >= out.d {
				return
			}
			x0, x1 := span(gid[0], vol.w, out.w)
			y0, y1 := span(gid[1], vol.h, out.h)
			z0, z1 := span(gid[2], vol.d, out.d)

			var sum types.Vec4
			for z := z0; z < z1; z++ {
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						sum = sum.Add(vol.Fetch(x, y, z))
					}
				}
			}
			count := float32((x1 - x0) * (y1 - y0) * (z1 - z0))
			out.Store(gid[0], gid[1], gid[2], sum.Mul(1/count))
		})
	}, nil
}
