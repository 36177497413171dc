package renderer

import (
	"fmt"
	"time"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/kernel"
)

// Local work-group edge length of the brick generation dispatch.
const brickLocalSize = 4

// Number of bricks along each axis for the given divisor.
func brickResolution(volRes [3]int, divisor BrickDivisor) [3]int {
	var out [3]int
	for i, res := range volRes {
		cell := max(1, (res+int(divisor)-1)/int(divisor))
		out[i] = (res + cell - 1) / cell
	}
	return out
}

// GenerateBricks rebuilds the brick grid of every timestep using the given
// divisor. On failure the previous grid and divisor stay in effect.
func (r *Renderer) GenerateBricks(divisor BrickDivisor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !divisor.Valid() {
		return &BuildError{Err: fmt.Errorf("%w: %d", ErrInvalidBrickDivisor, divisor)}
	}
	if r.state != DataLoaded {
		r.brickDivisor = divisor
		return nil
	}
	if err := r.buildBricks(divisor); err != nil {
		return err
	}
	r.brickDivisor = divisor
	r.resetIteration()
	return nil
}

// BrickResolution returns the brick grid of the loaded dataset or zeros if no
// grid has been built.
func (r *Renderer) BrickResolution() [3]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.brickRes
}

// SetObjESS toggles object-order empty space skipping.
func (r *Renderer) SetObjESS(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objESS = enabled
}

// Build the bricks of every timestep into a new set and swap it in once all
// of them succeed.
func (r *Renderer) buildBricks(divisor BrickDivisor) error {
	if len(r.res.volumes) == 0 {
		return &BuildError{Err: ErrNoVolume}
	}

	volDesc := r.res.volumes[0].Desc()
	brickRes := brickResolution([3]int{volDesc.Width, volDesc.Height, volDesc.Depth}, divisor)
	desc := compute.ImageDesc{
		Width:  brickRes[0],
		Height: brickRes[1],
		Depth:  brickRes[2],
		Format: compute.ImageFormat{Order: compute.RG, Type: volDesc.Format.Type},
	}

	k := r.res.kernels[kernel.GenerateBricks.String()]
	bricks := make([]compute.Image, 0, len(r.res.volumes))
	var elapsed time.Duration
	for t, vol := range r.res.volumes {
		img, err := r.device.NewImage(desc, nil)
		if err != nil {
			releaseAll(bricks)
			return &BuildError{Timestep: t, Err: err}
		}
		bricks = append(bricks, img)

		if err = k.SetArgs(vol, img); err != nil {
			releaseAll(bricks)
			return &BuildError{Timestep: t, Err: err}
		}
		took, err := k.Exec3D(
			compute.RoundUp(brickRes[0], brickLocalSize),
			compute.RoundUp(brickRes[1], brickLocalSize),
			compute.RoundUp(brickRes[2], brickLocalSize),
			brickLocalSize, brickLocalSize, brickLocalSize,
		)
		if err != nil {
			releaseAll(bricks)
			return &BuildError{Timestep: t, Err: err}
		}
		elapsed += took
	}

	r.res.releaseBricks()
	r.res.bricks = bricks
	r.brickRes = brickRes
	r.stats.BrickTime = elapsed
	r.logger.Debugf("generated %dx%dx%d bricks for %d timestep(s) in %s", brickRes[0], brickRes[1], brickRes[2], len(r.res.volumes), elapsed)
	return nil
}

// The brick image bound for timestep t. Without a complete grid a 1x1x1
// placeholder is returned and ok is false; the kernel must then run with
// object-order ESS disabled.
func (r *Renderer) brickImage(t int) (img compute.Image, ok bool, err error) {
	if len(r.res.bricks) == len(r.res.volumes) && t < len(r.res.bricks) {
		return r.res.bricks[t], true, nil
	}
	if r.res.placeholderBrick == nil {
		desc := compute.ImageDesc{
			Width: 1, Height: 1, Depth: 1,
			Format: compute.ImageFormat{Order: compute.RG, Type: compute.UNorm8},
		}
		if r.res.placeholderBrick, err = r.device.NewImage(desc, nil); err != nil {
			return nil, false, err
		}
	}
	return r.res.placeholderBrick, false, nil
}
