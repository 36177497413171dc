package renderer

import (
	"encoding/binary"
	"fmt"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/tfunc"
)

// SetTransferFunction uploads a 1024 entry RGBA8 table together with the
// prefix sum of its alpha channel. Bricks are rebuilt and the iteration is
// reset.
func (r *Renderer) SetTransferFunction(rgba []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Uninitialized {
		return &ResourceError{Op: "set transfer function", Err: ErrNotInitialized}
	}
	if len(rgba) != tfunc.Samples*4 {
		return &ResourceError{Op: "set transfer function", Err: fmt.Errorf("%w; got %d bytes", ErrInvalidTransferFunc, len(rgba))}
	}
	return r.uploadTransferFunction(rgba, tfunc.PrefixSum(rgba))
}

// SetTransferFunctionPrefixSum replaces the prefix sum used by object-order
// empty space skipping.
func (r *Renderer) SetTransferFunctionPrefixSum(values []uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Uninitialized {
		return &ResourceError{Op: "set prefix sum", Err: ErrNotInitialized}
	}
	if len(values) != tfunc.Samples {
		return &ResourceError{Op: "set prefix sum", Err: fmt.Errorf("%w; got %d", ErrInvalidPrefixSum, len(values))}
	}
	if err := r.uploadPrefixSum(values); err != nil {
		return err
	}
	r.resetIteration()
	return nil
}

// ApplyTransferFunction uploads a sampled table.
func (r *Renderer) ApplyTransferFunction(table *tfunc.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Uninitialized {
		return &ResourceError{Op: "set transfer function", Err: ErrNotInitialized}
	}
	if table == nil || len(table.RGBA) != tfunc.Samples*4 || len(table.PrefixSum) != tfunc.Samples {
		return &ResourceError{Op: "set transfer function", Err: ErrInvalidTransferFunc}
	}
	return r.uploadTransferFunction(table.RGBA, table.PrefixSum)
}

func (r *Renderer) uploadTransferFunction(rgba []byte, prefix []uint32) error {
	desc := compute.ImageDesc{
		Width:  tfunc.Samples,
		Format: compute.ImageFormat{Order: compute.RGBA, Type: compute.UNorm8},
		Access: compute.ReadOnly,
	}

	img, err := r.device.NewImage(desc, rgba)
	if err != nil {
		return &ResourceError{Op: "upload transfer function", Err: err}
	}
	if r.res.tff != nil {
		r.res.tff.Release()
	}
	r.res.tff = img
	r.tfRGBA = append(r.tfRGBA[:0], rgba...)

	if err = r.uploadPrefixSum(prefix); err != nil {
		return err
	}

	r.resetIteration()
	if r.state == DataLoaded {
		return r.buildBricks(r.brickDivisor)
	}
	return nil
}

func (r *Renderer) uploadPrefixSum(values []uint32) error {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}

	desc := compute.ImageDesc{
		Width:  len(values),
		Format: compute.ImageFormat{Order: compute.R, Type: compute.UInt32},
		Access: compute.ReadOnly,
	}
	img, err := r.device.NewImage(desc, data)
	if err != nil {
		return &ResourceError{Op: "upload transfer function prefix sum", Err: err}
	}
	if r.res.tffPrefix != nil {
		r.res.tffPrefix.Release()
	}
	r.res.tffPrefix = img
	r.tfPrefix = append(r.tfPrefix[:0], values...)
	return nil
}
