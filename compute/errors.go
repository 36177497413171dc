package compute

import "errors"

var (
	ErrDeviceNotFound       = errors.New("compute: no device matches the selection")
	ErrSharingUnsupported   = errors.New("compute: display context sharing not supported")
	ErrKernelNotFound       = errors.New("compute: kernel not found")
	ErrUnsupportedArg       = errors.New("compute: unsupported kernel argument")
	ErrInvalidWorkGroupSize = errors.New("compute: global work size is not a multiple of the local work size")
	ErrReleased             = errors.New("compute: use of released object")
)
