package renderer

import "github.com/achilleasa/voxray/compute"

type InitOptions struct {
	// Request an output image shared with the caller's display context.
	UseSharedDisplayContext bool

	// Open a CPU device instead of a GPU.
	UseCPU bool

	// Device selection.
	Vendor        compute.Vendor
	DeviceName    string
	PlatformIndex int

	// Required when UseSharedDisplayContext is set.
	DisplayContext compute.DisplayContext
}

// The default options select any GPU, falling back to a CPU device.
func DefaultInitOptions() InitOptions {
	return InitOptions{PlatformIndex: -1}
}

// BrickDivisor controls the brick grid granularity: the volume resolution is
// divided by the divisor to obtain the number of voxels per brick.
type BrickDivisor int

// Brick size presets; larger divisors produce finer grids.
const (
	BricksLarge  BrickDivisor = 4
	BricksMedium BrickDivisor = 8
	BricksSmall  BrickDivisor = 12
	BricksTiny   BrickDivisor = 16
)

func (d BrickDivisor) Valid() bool {
	return d > 0
}
