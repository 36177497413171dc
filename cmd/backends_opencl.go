//go:build opencl

package cmd

import (
	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/compute/opencl"
)

func init() {
	registerBackend("opencl", func(int) compute.Backend { return opencl.New() })
}
