// Package host implements the compute abstractions on the host CPU. Kernels
// are Go functions executed one work-group per task over a bounded pool of
// goroutines, mirroring the dispatch model of the device program.
package host

import (
	"fmt"
	"runtime"

	"github.com/achilleasa/voxray/compute"
)

const (
	platformName   = "Go host"
	platformVendor = "voxray"
)

// Backend exposes a single platform with a single CPU device.
type Backend struct {
	workers int
}

// Create a host backend. A non-positive worker count selects GOMAXPROCS.
func New(workers int) *Backend {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Backend{workers: workers}
}

func (b *Backend) Name() string {
	return "host"
}

func (b *Backend) deviceInfo() compute.DeviceInfo {
	return compute.DeviceInfo{
		Name:         fmt.Sprintf("Go host CPU (%d workers)", b.workers),
		Type:         compute.CpuDevice,
		ComputeUnits: uint32(b.workers),
	}
}

func (b *Backend) Platforms() ([]compute.PlatformInfo, error) {
	return []compute.PlatformInfo{
		{
			Name:    platformName,
			Vendor:  platformVendor,
			Version: runtime.Version(),
			Devices: []compute.DeviceInfo{b.deviceInfo()},
		},
	}, nil
}

// Open the host device. Display sharing is never available.
func (b *Backend) Open(sel compute.Selection) (compute.Device, error) {
	if sel.Display != nil {
		return nil, compute.ErrSharingUnsupported
	}

	platforms, _ := b.Platforms()
	if !sel.Matches(0, platforms[0], platforms[0].Devices[0]) {
		return nil, compute.ErrDeviceNotFound
	}

	return &Device{
		name:    platforms[0].Devices[0].Name,
		workers: b.workers,
	}, nil
}
