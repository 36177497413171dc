// Package compute defines the backend-neutral abstractions used by the
// renderer to drive a compute device: platform discovery, device selection,
// images and kernels.
package compute

import (
	"fmt"
	"strings"
	"time"
)

type DeviceType uint8

// Supported device types.
const (
	CpuDevice   DeviceType = 1 << iota
	GpuDevice              = 1 << iota
	OtherDevice            = 1 << iota
	AllDevices             = 0xFF
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case GpuDevice:
		return "GPU"
	case OtherDevice:
		return "Other"
	case AllDevices:
		return "All"
	}
	return fmt.Sprintf("DeviceType(%d)", uint8(dt))
}

// Vendor filters platforms by their vendor string.
type Vendor uint8

// Known vendors.
const (
	VendorAny Vendor = iota
	VendorNvidia
	VendorAMD
	VendorIntel
)

func (v Vendor) String() string {
	switch v {
	case VendorNvidia:
		return "NVIDIA"
	case VendorAMD:
		return "AMD"
	case VendorIntel:
		return "Intel"
	}
	return "any"
}

// Matches returns true if the platform vendor string belongs to v.
func (v Vendor) Matches(platformVendor string) bool {
	vendor := strings.ToLower(platformVendor)
	switch v {
	case VendorNvidia:
		return strings.Contains(vendor, "nvidia")
	case VendorAMD:
		return strings.Contains(vendor, "amd") || strings.Contains(vendor, "advanced micro devices")
	case VendorIntel:
		return strings.Contains(vendor, "intel")
	}
	return true
}

// Parse a vendor name.
func ParseVendor(name string) (Vendor, error) {
	switch strings.ToLower(name) {
	case "", "any":
		return VendorAny, nil
	case "nvidia":
		return VendorNvidia, nil
	case "amd":
		return VendorAMD, nil
	case "intel":
		return VendorIntel, nil
	}
	return VendorAny, fmt.Errorf("compute: unknown vendor %q", name)
}

// Information about a compute platform and its devices.
type PlatformInfo struct {
	Name    string
	Vendor  string
	Version string
	Devices []DeviceInfo
}

// Information about a single device.
type DeviceInfo struct {
	Name string
	Type DeviceType

	ComputeUnits uint32
	ClockMHz     uint32
}

// DisplayContext is supplied by callers that own a display surface and want
// the output image to live in a texture shared with it.
type DisplayContext interface {
	// Native handles of the display context and its display connection.
	Handles() (context uintptr, display uintptr)
}

// Selection describes the device a backend should open.
type Selection struct {
	Type   DeviceType
	Vendor Vendor

	// Optional substring of the device name.
	Name string

	// Platform index or -1 for any platform.
	PlatformIndex int

	// Non-nil to request display context sharing.
	Display DisplayContext
}

// Matches returns true if the given platform/device pair satisfies the selection.
func (s Selection) Matches(platformIndex int, platform PlatformInfo, dev DeviceInfo) bool {
	if s.PlatformIndex >= 0 && s.PlatformIndex != platformIndex {
		return false
	}
	if !s.Vendor.Matches(platform.Vendor) {
		return false
	}
	if s.Type != 0 && dev.Type&s.Type != dev.Type {
		return false
	}
	if s.Name != "" && !strings.Contains(dev.Name, s.Name) {
		return false
	}
	return true
}

// ProgramSource describes the compute program a device should build.
type ProgramSource struct {
	// Program source for backends that compile kernels at runtime.
	Source string

	// Backend-specific build options.
	Options string

	// The kernels that must be available once the program is built.
	Kernels []string
}

// Backend discovers and opens compute devices.
type Backend interface {
	Name() string
	Platforms() ([]PlatformInfo, error)
	Open(sel Selection) (Device, error)
}

// Device is an opened compute device with a single in-order command queue.
type Device interface {
	Name() string
	Type() DeviceType

	// True if the device was opened with display context sharing.
	SharesDisplay() bool

	Build(program ProgramSource) error
	Kernel(name string) (Kernel, error)

	// Allocate an image; data may be nil. If data is provided it must hold
	// exactly desc.Size() bytes.
	NewImage(desc ImageDesc, data []byte) (Image, error)

	// Wrap a display texture as an output image. Only available on devices
	// that share the display context.
	NewSharedImage(desc ImageDesc, texture uint32) (Image, error)

	WriteImage(img Image, data []byte) error
	ReadImage(img Image, dst []byte) error

	// Block until all enqueued work completes.
	Finish() error

	Close()
}

// Kernel is a compiled entry point of a device program. Arguments are bound
// positionally; the renderer's kernel package defines the order.
type Kernel interface {
	Name() string
	SetArgs(args ...interface{}) error
	Exec2D(globalX, globalY, localX, localY int) (time.Duration, error)
	Exec3D(globalX, globalY, globalZ, localX, localY, localZ int) (time.Duration, error)
	Release()
}
