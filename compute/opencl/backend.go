//go:build opencl

// Package opencl implements the compute abstractions on top of the system
// OpenCL runtime.
//
// The github.com/achilleasa/gopencl binding is not published on the module
// proxy, so go.mod does not require it. Building with -tags opencl needs a
// local checkout wired into the module:
//
//	go mod edit -require=github.com/achilleasa/gopencl@v0.0.0
//	go mod edit -replace=github.com/achilleasa/gopencl=/path/to/gopencl
package opencl

import (
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/voxray/compute"
)

const (
	platformBufferSize = 100
	deviceBufferSize   = 100
	dataBufferSize     = 1024
)

// Backend enumerates the OpenCL platforms installed on the system.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return "opencl"
}

type platform struct {
	id      cl.PlatformID
	info    compute.PlatformInfo
	devices []cl.DeviceId
}

func (b *Backend) Platforms() ([]compute.PlatformInfo, error) {
	platforms, err := scanPlatforms()
	if err != nil {
		return nil, err
	}
	out := make([]compute.PlatformInfo, len(platforms))
	for i, p := range platforms {
		out[i] = p.info
	}
	return out, nil
}

// Open the first device matching the selection.
func (b *Backend) Open(sel compute.Selection) (compute.Device, error) {
	if sel.Display != nil {
		// Sharing requires a context created with the GL context/display
		// properties of the caller which the bindings do not expose.
		return nil, compute.ErrSharingUnsupported
	}

	platforms, err := scanPlatforms()
	if err != nil {
		return nil, err
	}
	for pIdx, p := range platforms {
		for dIdx, info := range p.info.Devices {
			if !sel.Matches(pIdx, p.info, info) {
				continue
			}
			dev := &Device{
				name: info.Name,
				id:   p.devices[dIdx],
				typ:  info.Type,
			}
			if err := dev.init(); err != nil {
				return nil, err
			}
			return dev, nil
		}
	}
	return nil, compute.ErrDeviceNotFound
}

func scanPlatforms() ([]platform, error) {
	pids := make([]cl.PlatformID, platformBufferSize)
	data := make([]byte, dataBufferSize)
	dataLen := uint64(0)

	devices := make([]cl.DeviceId, deviceBufferSize)
	deviceCount := uint32(0)

	pidCount := uint32(0)
	cl.GetPlatformIDs(uint32(len(pids)), &pids[0], &pidCount)

	readString := func(query func() cl.ErrorCode) string {
		dataLen = 0
		if query() != cl.SUCCESS || dataLen == 0 {
			return ""
		}
		return string(data[0 : dataLen-1])
	}

	list := make([]platform, int(pidCount))
	for pIdx := 0; pIdx < int(pidCount); pIdx++ {
		pid := pids[pIdx]
		platformString := func(param cl.PlatformInfo) string {
			return readString(func() cl.ErrorCode {
				return cl.GetPlatformInfo(pid, param, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
			})
		}

		list[pIdx].id = pid
		list[pIdx].info = compute.PlatformInfo{
			Name:    platformString(cl.PLATFORM_NAME),
			Vendor:  platformString(cl.PLATFORM_VENDOR),
			Version: platformString(cl.PLATFORM_VERSION),
		}

		for _, kind := range []struct {
			clType cl.DeviceType
			typ    compute.DeviceType
		}{
			{cl.DEVICE_TYPE_CPU, compute.CpuDevice},
			{cl.DEVICE_TYPE_GPU, compute.GpuDevice},
		} {
			deviceCount = 0
			cl.GetDeviceIDs(pid, kind.clType, uint32(deviceBufferSize), &devices[0], &deviceCount)
			for dIdx := 0; dIdx < int(deviceCount); dIdx++ {
				id := devices[dIdx]
				info := compute.DeviceInfo{
					Name: readString(func() cl.ErrorCode {
						return cl.GetDeviceInfo(id, cl.DEVICE_NAME, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
					}),
					Type: kind.typ,
				}
				if err := detectSpeed(id, &info); err != nil {
					return nil, err
				}
				list[pIdx].info.Devices = append(list[pIdx].info.Devices, info)
				list[pIdx].devices = append(list[pIdx].devices, id)
			}
		}
	}

	return list, nil
}

// Query the compute unit count and clock speed of a device.
func detectSpeed(id cl.DeviceId, info *compute.DeviceInfo) error {
	errCode := cl.GetDeviceInfo(id, cl.DEVICE_MAX_COMPUTE_UNITS, 4, unsafe.Pointer(&info.ComputeUnits), nil)
	if errCode != cl.SUCCESS {
		return clError(info.Name, "could not query MAX_COMPUTE_UNITS", errCode)
	}
	errCode = cl.GetDeviceInfo(id, cl.DEVICE_MAX_CLOCK_FREQUENCY, 4, unsafe.Pointer(&info.ClockMHz), nil)
	if errCode != cl.SUCCESS {
		return clError(info.Name, "could not query MAX_CLOCK_FREQUENCY", errCode)
	}
	return nil
}
