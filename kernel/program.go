package kernel

import (
	_ "embed"

	"github.com/achilleasa/voxray/compute"
)

//go:embed CL/volumeraycast.cl
var programSource string

// Program returns the volume rendering program.
func Program() compute.ProgramSource {
	return compute.ProgramSource{
		Source:  programSource,
		Options: "-cl-fast-relaxed-math",
		Kernels: Names(),
	}
}
