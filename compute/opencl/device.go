//go:build opencl

package opencl

import (
	"fmt"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/voxray/compute"
)

// Device wraps an opencl context, command queue and program.
type Device struct {
	name string
	id   cl.DeviceId
	typ  compute.DeviceType

	ctx      *cl.Context
	cmdQueue cl.CommandQueue
	program  cl.Program
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) Type() compute.DeviceType {
	return d.typ
}

func (d *Device) SharesDisplay() bool {
	return false
}

func (d *Device) init() error {
	var errCode cl.ErrorCode

	d.ctx = cl.CreateContext(nil, 1, &d.id, nil, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return clError(d.name, "could not create opencl context", errCode)
	}

	d.cmdQueue = cl.CreateCommandQueue(*d.ctx, d.id, 0, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return clError(d.name, "could not create command queue", errCode)
	}
	return nil
}

// Build the program from source.
func (d *Device) Build(program compute.ProgramSource) error {
	var errCode cl.ErrorCode

	if d.program != nil {
		cl.ReleaseProgram(d.program)
		d.program = nil
	}

	progSrc := cl.Str(program.Source + "\x00")
	d.program = cl.CreateProgramWithSource(*d.ctx, 1, &progSrc, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return clError(d.name, "could not create program", errCode)
	}

	errCode = cl.BuildProgram(d.program, 1, &d.id, cl.Str(program.Options+"\x00"), nil, nil)
	if errCode != cl.SUCCESS {
		var dataLen uint64
		data := make([]byte, 120000)

		cl.GetProgramBuildInfo(d.program, d.id, cl.PROGRAM_BUILD_LOG, uint64(len(data)), unsafe.Pointer(&data[0]), &dataLen)
		buildLog := ""
		if dataLen > 0 {
			buildLog = string(data[0 : dataLen-1])
		}
		return fmt.Errorf("opencl device (%s): could not build program (error: %s; code %d):\n%s", d.name, ErrorName(errCode), errCode, buildLog)
	}

	for _, name := range program.Kernels {
		k, err := d.Kernel(name)
		if err != nil {
			return err
		}
		k.Release()
	}
	return nil
}

// Load kernel by name.
func (d *Device) Kernel(name string) (compute.Kernel, error) {
	if d.program == nil {
		return nil, fmt.Errorf("opencl device (%s): could not load kernel %s: %w", d.name, name, compute.ErrKernelNotFound)
	}

	var errCode cl.ErrorCode
	handle := cl.CreateKernel(d.program, cl.Str(name+"\x00"), (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return nil, fmt.Errorf("opencl device (%s): could not load kernel %s (error: %s; code %d): %w", d.name, name, ErrorName(errCode), errCode, compute.ErrKernelNotFound)
	}

	return &Kernel{
		device:       d,
		kernelHandle: handle,
		name:         name,
	}, nil
}

func (d *Device) NewSharedImage(compute.ImageDesc, uint32) (compute.Image, error) {
	return nil, compute.ErrSharingUnsupported
}

func (d *Device) Finish() error {
	if errCode := cl.Finish(d.cmdQueue); errCode != cl.SUCCESS {
		return clError(d.name, "command queue did not complete", errCode)
	}
	return nil
}

// Shut down the device.
func (d *Device) Close() {
	if d.program != nil {
		cl.ReleaseProgram(d.program)
		d.program = nil
	}

	if d.cmdQueue != nil {
		cl.ReleaseCommandQueue(d.cmdQueue)
		d.cmdQueue = nil
	}

	if d.ctx != nil {
		cl.ReleaseContext(d.ctx)
		d.ctx = nil
	}
}
