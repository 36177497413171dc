//go:build opencl

package opencl

import (
	"fmt"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/voxray/compute"
)

// cl_channel_order, cl_channel_type and cl_mem_object_type values.
const (
	clR    = 0x10B0
	clRG   = 0x10B2
	clRGBA = 0x10B5

	clUNormInt8     = 0x10D2
	clUNormInt16    = 0x10D3
	clUnsignedInt8  = 0x10DA
	clUnsignedInt32 = 0x10DC
	clFloat         = 0x10DE

	clMemObjectImage2D = 0x10F1
	clMemObjectImage3D = 0x10F2
	clMemObjectImage1D = 0x10F4
)

// Image wraps an opencl image object.
type Image struct {
	device *Device
	handle cl.Mem
	desc   compute.ImageDesc
}

func (img *Image) Desc() compute.ImageDesc {
	return img.desc
}

// Release the image memory.
func (img *Image) Release() {
	if img.handle != nil {
		cl.ReleaseMemObject(img.handle)
		img.handle = nil
	}
}

func imageFormat(f compute.ImageFormat) cl.ImageFormat {
	var order, typ uint32
	switch f.Order {
	case compute.R:
		order = clR
	case compute.RG:
		order = clRG
	default:
		order = clRGBA
	}
	switch f.Type {
	case compute.UNorm8:
		typ = clUNormInt8
	case compute.UNorm16:
		typ = clUNormInt16
	case compute.UInt8:
		typ = clUnsignedInt8
	case compute.UInt32:
		typ = clUnsignedInt32
	default:
		typ = clFloat
	}
	return cl.ImageFormat{
		ImageChannelOrder:    cl.ChannelOrder(order),
		ImageChannelDataType: cl.ChannelType(typ),
	}
}

func memFlags(access compute.Access) cl.MemFlags {
	switch access {
	case compute.ReadOnly:
		return cl.MEM_READ_ONLY
	case compute.WriteOnly:
		return cl.MEM_WRITE_ONLY
	}
	return cl.MEM_READ_WRITE
}

// The origin and region arguments of image transfers.
func imageRegion(desc compute.ImageDesc) (origin, region [3]uint64) {
	region = [3]uint64{uint64(desc.Width), 1, 1}
	if desc.Height > 0 {
		region[1] = uint64(desc.Height)
	}
	if desc.Depth > 0 {
		region[2] = uint64(desc.Depth)
	}
	return origin, region
}

func (d *Device) NewImage(desc compute.ImageDesc, data []byte) (compute.Image, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("opencl device (%s): %w", d.name, err)
	}

	clDesc := cl.ImageDesc{
		ImageWidth:  uint64(desc.Width),
		ImageHeight: uint64(desc.Height),
		ImageDepth:  uint64(desc.Depth),
	}
	switch desc.Dims() {
	case 1:
		clDesc.ImageType = cl.MemObjectType(clMemObjectImage1D)
	case 2:
		clDesc.ImageType = cl.MemObjectType(clMemObjectImage2D)
	default:
		clDesc.ImageType = cl.MemObjectType(clMemObjectImage3D)
	}

	format := imageFormat(desc.Format)
	var errCode cl.ErrorCode
	handle := cl.CreateImage(*d.ctx, memFlags(desc.Access), &format, &clDesc, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return nil, clError(d.name, fmt.Sprintf("could not allocate %dD image (%s) of %d bytes", desc.Dims(), desc.Format, desc.Size()), errCode)
	}

	img := &Image{device: d, handle: handle, desc: desc}
	if data != nil {
		if err := d.WriteImage(img, data); err != nil {
			img.Release()
			return nil, err
		}
	}
	return img, nil
}

func (d *Device) image(img compute.Image) (*Image, error) {
	clImg, ok := img.(*Image)
	if !ok || clImg.device != d {
		return nil, fmt.Errorf("opencl device (%s): image does not belong to this device", d.name)
	}
	if clImg.handle == nil {
		return nil, fmt.Errorf("opencl device (%s): %w", d.name, compute.ErrReleased)
	}
	return clImg, nil
}

func (d *Device) WriteImage(img compute.Image, data []byte) error {
	clImg, err := d.image(img)
	if err != nil {
		return err
	}
	if len(data) != clImg.desc.Size() {
		return fmt.Errorf("opencl device (%s): image of %d bytes cannot be written from %d bytes", d.name, clImg.desc.Size(), len(data))
	}

	origin, region := imageRegion(clImg.desc)
	errCode := cl.EnqueueWriteImage(
		d.cmdQueue,
		clImg.handle,
		cl.TRUE,
		&origin[0],
		&region[0],
		0,
		0,
		unsafe.Pointer(&data[0]),
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return clError(d.name, "error copying host data to device image", errCode)
	}
	return nil
}

func (d *Device) ReadImage(img compute.Image, dst []byte) error {
	clImg, err := d.image(img)
	if err != nil {
		return err
	}
	if len(dst) < clImg.desc.Size() {
		return fmt.Errorf("opencl device (%s): insufficient host buffer space (%d) for reading image of %d bytes", d.name, len(dst), clImg.desc.Size())
	}

	origin, region := imageRegion(clImg.desc)
	errCode := cl.EnqueueReadImage(
		d.cmdQueue,
		clImg.handle,
		cl.TRUE,
		&origin[0],
		&region[0],
		0,
		0,
		unsafe.Pointer(&dst[0]),
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return clError(d.name, "error copying device image to host buffer", errCode)
	}
	return nil
}
