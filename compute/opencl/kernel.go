//go:build opencl

package opencl

import (
	"fmt"
	"reflect"
	"time"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/types"
)

// A wrapper around opencl kernel handles.
type Kernel struct {
	device       *Device
	kernelHandle cl.Kernel
	name         string

	// Parameter blocks are uploaded into constant buffers.
	blocks []cl.Mem

	globalWorkSizes [3]uint64
	localWorkSizes  [3]uint64
}

func (k *Kernel) Name() string {
	return k.name
}

// Free any allocated resources used by this kernel.
func (k *Kernel) Release() {
	k.releaseBlocks()
	if k.kernelHandle != nil {
		cl.ReleaseKernel(k.kernelHandle)
		k.kernelHandle = nil
	}
}

func (k *Kernel) releaseBlocks() {
	for _, b := range k.blocks {
		cl.ReleaseMemObject(b)
	}
	k.blocks = k.blocks[:0]
}

// Upload a parameter block into a read-only buffer.
func (k *Kernel) block(data []byte) (cl.Mem, error) {
	var errCode cl.ErrorCode
	handle := cl.CreateBuffer(
		*k.device.ctx,
		cl.MEM_READ_ONLY|cl.MEM_COPY_HOST_PTR,
		cl.MemFlags(len(data)),
		unsafe.Pointer(&data[0]),
		(*int32)(&errCode),
	)
	if errCode != cl.SUCCESS {
		return nil, clError(k.device.name, fmt.Sprintf("could not allocate parameter block of size %d", len(data)), errCode)
	}
	k.blocks = append(k.blocks, handle)
	return handle, nil
}

// Bind arguments to kernel.
func (k *Kernel) SetArgs(args ...interface{}) error {
	var errCode cl.ErrorCode
	k.releaseBlocks()
	for argIndex, arg := range args {
		switch v := arg.(type) {
		case compute.Image:
			img, err := k.device.image(v)
			if err != nil {
				return fmt.Errorf("opencl device (%s): could not set arg %d for kernel %s: %w", k.device.name, argIndex, k.name, err)
			}
			handle := img.handle
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 8, unsafe.Pointer(&handle))
		case []byte:
			handle, err := k.block(v)
			if err != nil {
				return err
			}
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 8, unsafe.Pointer(&handle))
		case int32:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case uint32:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case float32:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case types.Vec3:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 12, unsafe.Pointer(&v[0]))
		case types.Vec4:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 16, unsafe.Pointer(&v[0]))
		default:
			return fmt.Errorf(
				"opencl device (%s): could not set arg %d for kernel %s; %w: %s",
				k.device.name,
				argIndex,
				k.name,
				compute.ErrUnsupportedArg,
				reflect.TypeOf(arg),
			)
		}

		if errCode != cl.SUCCESS {
			return clError(k.device.name, fmt.Sprintf("could not set arg %d for kernel %s", argIndex, k.name), errCode)
		}
	}

	return nil
}

// Execute 2D kernel.
func (k *Kernel) Exec2D(globalX, globalY, localX, localY int) (time.Duration, error) {
	return k.exec(2, [3]int{globalX, globalY, 1}, [3]int{localX, localY, 1})
}

// Execute 3D kernel.
func (k *Kernel) Exec3D(globalX, globalY, globalZ, localX, localY, localZ int) (time.Duration, error) {
	return k.exec(3, [3]int{globalX, globalY, globalZ}, [3]int{localX, localY, localZ})
}

func (k *Kernel) exec(dims uint32, global, local [3]int) (time.Duration, error) {
	for i := 0; i < int(dims); i++ {
		if local[i] <= 0 || global[i] <= 0 || global[i]%local[i] != 0 {
			return 0, fmt.Errorf("opencl device (%s): unable to execute kernel %s: %w (global %v, local %v)", k.device.name, k.name, compute.ErrInvalidWorkGroupSize, global, local)
		}
		k.globalWorkSizes[i] = uint64(global[i])
		k.localWorkSizes[i] = uint64(local[i])
	}

	tick := time.Now()
	errCode := cl.EnqueueNDRangeKernel(
		k.device.cmdQueue,
		k.kernelHandle,
		dims,
		nil,
		(*uint64)(unsafe.Pointer(&k.globalWorkSizes[0])),
		(*uint64)(unsafe.Pointer(&k.localWorkSizes[0])),
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return 0, clError(k.device.name, "unable to execute kernel "+k.name, errCode)
	}

	// Wait for the kernel to complete
	errCode = cl.Finish(k.device.cmdQueue)
	if errCode != cl.SUCCESS {
		return 0, clError(k.device.name, "kernel "+k.name+" did not complete successfully", errCode)
	}

	return time.Since(tick), nil
}
