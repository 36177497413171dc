package renderer

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized       = errors.New("renderer: not initialized")
	ErrNoVolume             = errors.New("renderer: no volume loaded")
	ErrInvalidTransferFunc  = errors.New("renderer: transfer function must hold 1024 RGBA entries")
	ErrInvalidPrefixSum     = errors.New("renderer: prefix sum must hold 1024 entries")
	ErrInvalidOutputSize    = errors.New("renderer: output dimensions must be positive")
	ErrNoOutput             = errors.New("renderer: output image not allocated")
	ErrOutputBufferTooSmall = errors.New("renderer: output buffer too small")
	ErrTimestepOutOfRange   = errors.New("renderer: timestep out of range")
	ErrPayloadTooSmall      = errors.New("renderer: volume payload smaller than declared resolution")
	ErrInvalidBrickDivisor  = errors.New("renderer: invalid brick divisor")
	ErrInvalidFactor        = errors.New("renderer: downsampling factor must be at least 2")
	ErrResolutionTooSmall   = errors.New("renderer: downsampled resolution below 64 voxels")
	ErrInvalidExtinction    = errors.New("renderer: extinction must be positive")
	ErrInvalidSamplingRate  = errors.New("renderer: sampling rate must be positive")
	ErrInvalidIllumination  = errors.New("renderer: unknown illumination mode")
)

// ResourceError reports a failure to create, upload or release a device
// resource. The renderer discards partially uploaded state before returning it.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("renderer: %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// RenderError reports a failed frame. The accumulation state is indeterminate
// until the iteration is reset.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("renderer: render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// BuildError reports a failure while generating the brick acceleration
// structure.
type BuildError struct {
	Timestep int
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("renderer: brick generation failed for timestep %d: %v", e.Timestep, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
