package host

import (
	"fmt"

	"github.com/achilleasa/voxray/compute"
)

// The Go implementations of the device program, keyed by kernel name.
var registry = map[string]kernelFunc{
	"volumeRender":   volumeRender,
	"generateBricks": generateBricks,
	"downsampling":   downsampling,
}

// Device is the host compute device.
type Device struct {
	name    string
	workers int
	built   bool
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) Type() compute.DeviceType {
	return compute.CpuDevice
}

func (d *Device) SharesDisplay() bool {
	return false
}

// Build checks that every kernel required by the program is implemented.
func (d *Device) Build(program compute.ProgramSource) error {
	for _, name := range program.Kernels {
		if _, ok := registry[name]; !ok {
			return fmt.Errorf("host device (%s): could not build program: %w: %s", d.name, compute.ErrKernelNotFound, name)
		}
	}
	d.built = true
	return nil
}

// Load kernel by name.
func (d *Device) Kernel(name string) (compute.Kernel, error) {
	fn, ok := registry[name]
	if !d.built || !ok {
		return nil, fmt.Errorf("host device (%s): could not load kernel %s: %w", d.name, name, compute.ErrKernelNotFound)
	}
	return &Kernel{
		device: d,
		name:   name,
		fn:     fn,
	}, nil
}

func (d *Device) NewImage(desc compute.ImageDesc, data []byte) (compute.Image, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("host device (%s): %w", d.name, err)
	}
	img := newImage(d, desc)
	if data != nil {
		if err := d.WriteImage(img, data); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (d *Device) NewSharedImage(compute.ImageDesc, uint32) (compute.Image, error) {
	return nil, compute.ErrSharingUnsupported
}

func (d *Device) image(img compute.Image) (*Image, error) {
	hImg, ok := img.(*Image)
	if !ok || hImg.device != d {
		return nil, fmt.Errorf("host device (%s): image does not belong to this device", d.name)
	}
	if hImg.released() {
		return nil, fmt.Errorf("host device (%s): %w", d.name, compute.ErrReleased)
	}
	return hImg, nil
}

func (d *Device) WriteImage(img compute.Image, data []byte) error {
	hImg, err := d.image(img)
	if err != nil {
		return err
	}
	if len(data) != len(hImg.data) {
		return fmt.Errorf("host device (%s): image of %d bytes cannot be written from %d bytes", d.name, len(hImg.data), len(data))
	}
	copy(hImg.data, data)
	return nil
}

func (d *Device) ReadImage(img compute.Image, dst []byte) error {
	hImg, err := d.image(img)
	if err != nil {
		return err
	}
	if len(dst) < len(hImg.data) {
		return fmt.Errorf("host device (%s): insufficient host buffer space (%d) for reading image of %d bytes", d.name, len(dst), len(hImg.data))
	}
	copy(dst, hImg.data)
	return nil
}

// Kernels run synchronously so there is never any pending work.
func (d *Device) Finish() error {
	return nil
}

func (d *Device) Close() {
	d.built = false
}
