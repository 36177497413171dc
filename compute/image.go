package compute

import "fmt"

type ChannelOrder uint8

// Image channel orders.
const (
	R ChannelOrder = iota
	RG
	RGBA
)

// Channels returns the number of channels per texel.
func (o ChannelOrder) Channels() int {
	switch o {
	case RG:
		return 2
	case RGBA:
		return 4
	}
	return 1
}

func (o ChannelOrder) String() string {
	switch o {
	case RG:
		return "RG"
	case RGBA:
		return "RGBA"
	}
	return "R"
}

type ChannelType uint8

// Image channel data types.
const (
	UNorm8 ChannelType = iota
	UNorm16
	Float32
	UInt8
	UInt32
)

// Size returns the byte size of a single channel.
func (t ChannelType) Size() int {
	switch t {
	case UNorm16:
		return 2
	case Float32, UInt32:
		return 4
	}
	return 1
}

func (t ChannelType) String() string {
	switch t {
	case UNorm8:
		return "UNORM_INT8"
	case UNorm16:
		return "UNORM_INT16"
	case Float32:
		return "FLOAT"
	case UInt8:
		return "UNSIGNED_INT8"
	case UInt32:
		return "UNSIGNED_INT32"
	}
	return fmt.Sprintf("ChannelType(%d)", uint8(t))
}

type ImageFormat struct {
	Order ChannelOrder
	Type  ChannelType
}

// TexelSize returns the size of a texel in bytes.
func (f ImageFormat) TexelSize() int {
	return f.Order.Channels() * f.Type.Size()
}

func (f ImageFormat) String() string {
	return fmt.Sprintf("%s/%s", f.Order, f.Type)
}

type Access uint8

// Device-side access modes.
const (
	ReadWrite Access = iota
	ReadOnly
	WriteOnly
)

// ImageDesc describes a 1D, 2D or 3D image. Unused dimensions are 0.
type ImageDesc struct {
	Width, Height, Depth int
	Format               ImageFormat
	Access               Access
}

// Dims returns the number of image dimensions.
func (d ImageDesc) Dims() int {
	switch {
	case d.Depth > 0:
		return 3
	case d.Height > 0:
		return 2
	}
	return 1
}

// Texels returns the number of texels.
func (d ImageDesc) Texels() int {
	n := d.Width
	if d.Height > 0 {
		n *= d.Height
	}
	if d.Depth > 0 {
		n *= d.Depth
	}
	return n
}

// Size returns the image size in bytes.
func (d ImageDesc) Size() int {
	return d.Texels() * d.Format.TexelSize()
}

// Validate checks that all used dimensions are positive.
func (d ImageDesc) Validate() error {
	if d.Width <= 0 || d.Height < 0 || d.Depth < 0 || (d.Depth > 0 && d.Height == 0) {
		return fmt.Errorf("compute: invalid image dimensions %dx%dx%d", d.Width, d.Height, d.Depth)
	}
	return nil
}

// Image is a device memory object.
type Image interface {
	Desc() ImageDesc
	Release()
}
