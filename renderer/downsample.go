package renderer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/kernel"
	"github.com/achilleasa/voxray/volume"
)

const (
	minDownsampledRes   = 64
	downsampleLocalSize = 4
)

// Downsample writes a copy of timestep t reduced by factor along every axis
// next to the source descriptor as <base>_<x>.raw and <base>_<x>.dat, where x
// is the reduced width. It returns <base>_<x>.
func (r *Renderer) Downsample(t, factor int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != DataLoaded {
		return "", &ResourceError{Op: "downsample", Err: ErrNoVolume}
	}
	if t < 0 || t >= len(r.res.volumes) {
		return "", &ResourceError{Op: "downsample", Err: fmt.Errorf("%w: %d", ErrTimestepOutOfRange, t)}
	}
	if factor < 2 {
		return "", &ResourceError{Op: "downsample", Err: fmt.Errorf("%w; got %d", ErrInvalidFactor, factor)}
	}

	src := r.res.volumes[t]
	srcDesc := src.Desc()
	desc := compute.ImageDesc{
		Width:  (srcDesc.Width + factor - 1) / factor,
		Height: (srcDesc.Height + factor - 1) / factor,
		Depth:  (srcDesc.Depth + factor - 1) / factor,
		Format: srcDesc.Format,
		Access: compute.WriteOnly,
	}
	if min(desc.Width, desc.Height, desc.Depth) < minDownsampledRes {
		return "", &ResourceError{
			Op:  "downsample",
			Err: fmt.Errorf("%w: %dx%dx%d", ErrResolutionTooSmall, desc.Width, desc.Height, desc.Depth),
		}
	}

	dst, err := r.device.NewImage(desc, nil)
	if err != nil {
		return "", &ResourceError{Op: "allocate downsampled volume", Err: err}
	}
	defer dst.Release()

	k := r.res.kernels[kernel.Downsampling.String()]
	if err = k.SetArgs(src, dst); err != nil {
		return "", &ResourceError{Op: "downsample", Err: err}
	}
	took, err := k.Exec3D(
		compute.RoundUp(desc.Width, downsampleLocalSize),
		compute.RoundUp(desc.Height, downsampleLocalSize),
		compute.RoundUp(desc.Depth, downsampleLocalSize),
		downsampleLocalSize, downsampleLocalSize, downsampleLocalSize,
	)
	if err != nil {
		return "", &ResourceError{Op: "downsample", Err: err}
	}

	payload := make([]byte, desc.Size())
	if err = r.device.ReadImage(dst, payload); err != nil {
		return "", &ResourceError{Op: "read downsampled volume", Err: err}
	}

	props := r.props
	props.Resolution = [4]int{desc.Width, desc.Height, desc.Depth, 1}
	props.RawFileNames = nil
	base := fmt.Sprintf("%s_%d", downsampleBase(r.props), desc.Width)
	if _, _, err = volume.WriteDataset(base, props, payload); err != nil {
		return "", err
	}

	r.logger.Infof("downsampled timestep %d to %dx%dx%d in %s; wrote %s.dat", t, desc.Width, desc.Height, desc.Depth, took, base)
	return base, nil
}

// The descriptor path without its extension or, for datasets loaded from a
// raw file, the raw path without its extension.
func downsampleBase(props volume.Properties) string {
	name := props.DatFileName
	if name == "" && len(props.RawFileNames) > 0 {
		name = props.RawFileNames[0]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
