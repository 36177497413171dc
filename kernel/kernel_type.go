package kernel

import "fmt"

type Type uint8

// The list of kernels implemented by the volume rendering program.
const (
	VolumeRender Type = iota
	GenerateBricks
	Downsampling
	//
	numKernels
)

// Implements Stringer; map kernel type to the kernel name as defined in the CL source files.
func (kt Type) String() string {
	switch kt {
	case VolumeRender:
		return "volumeRender"
	case GenerateBricks:
		return "generateBricks"
	case Downsampling:
		return "downsampling"
	}

	panic(fmt.Sprintf("kernel: unsupported kernel type %d", uint8(kt)))
}

// All returns every kernel type.
func All() []Type {
	out := make([]Type, 0, numKernels)
	for kt := Type(0); kt < numKernels; kt++ {
		out = append(out, kt)
	}
	return out
}

// Names returns the names of all kernels.
func Names() []string {
	all := All()
	out := make([]string, len(all))
	for i, kt := range all {
		out[i] = kt.String()
	}
	return out
}
