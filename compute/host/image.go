package host

import (
	"encoding/binary"
	"math"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/types"
)

// Image is a host memory image with OpenCL-like addressing: integer reads
// clamp to the edge and normalized reads follow the CLK_FILTER_* semantics.
type Image struct {
	device *Device
	desc   compute.ImageDesc
	data   []byte

	// Cached sizes for addressing.
	w, h, d   int
	texelSize int
	chanSize  int
}

func newImage(device *Device, desc compute.ImageDesc) *Image {
	img := &Image{
		device:    device,
		desc:      desc,
		data:      make([]byte, desc.Size()),
		w:         desc.Width,
		h:         max(desc.Height, 1),
		d:         max(desc.Depth, 1),
		texelSize: desc.Format.TexelSize(),
		chanSize:  desc.Format.Type.Size(),
	}
	return img
}

func (img *Image) Desc() compute.ImageDesc {
	return img.desc
}

// Release the image memory.
func (img *Image) Release() {
	img.data = nil
}

func (img *Image) released() bool {
	return img.data == nil
}

func (img *Image) offset(x, y, z int) int {
	x = clampInt(x, 0, img.w-1)
	y = clampInt(y, 0, img.h-1)
	z = clampInt(z, 0, img.d-1)
	return ((z*img.h+y)*img.w + x) * img.texelSize
}

func (img *Image) readChannel(off int) float32 {
	switch img.desc.Format.Type {
	case compute.UNorm8:
		return float32(img.data[off]) / 255
	case compute.UNorm16:
		return float32(binary.LittleEndian.Uint16(img.data[off:])) / 65535
	case compute.Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(img.data[off:]))
	case compute.UInt8:
		return float32(img.data[off])
	case compute.UInt32:
		return float32(binary.LittleEndian.Uint32(img.data[off:]))
	}
	return 0
}

func (img *Image) writeChannel(off int, v float32) {
	switch img.desc.Format.Type {
	case compute.UNorm8:
		img.data[off] = byte(math.Round(float64(clampF(v, 0, 1) * 255)))
	case compute.UNorm16:
		binary.LittleEndian.PutUint16(img.data[off:], uint16(math.Round(float64(clampF(v, 0, 1)*65535))))
	case compute.Float32:
		binary.LittleEndian.PutUint32(img.data[off:], math.Float32bits(v))
	case compute.UInt8:
		img.data[off] = byte(v)
	case compute.UInt32:
		binary.LittleEndian.PutUint32(img.data[off:], uint32(v))
	}
}

// Read a texel; missing channels read as (0, 0, 0, 1).
func (img *Image) Fetch(x, y, z int) types.Vec4 {
	out := types.Vec4{0, 0, 0, 1}
	off := img.offset(x, y, z)
	for c := 0; c < img.desc.Format.Order.Channels(); c++ {
		out[c] = img.readChannel(off + c*img.chanSize)
	}
	return out
}

// Read the first channel of a texel.
func (img *Image) FetchR(x, y, z int) float32 {
	return img.readChannel(img.offset(x, y, z))
}

// Read the first channel of an unsigned integer texel.
func (img *Image) FetchUint(x, y, z int) uint32 {
	off := img.offset(x, y, z)
	switch img.desc.Format.Type {
	case compute.UInt8, compute.UNorm8:
		return uint32(img.data[off])
	case compute.UNorm16:
		return uint32(binary.LittleEndian.Uint16(img.data[off:]))
	case compute.UInt32:
		return binary.LittleEndian.Uint32(img.data[off:])
	}
	return uint32(img.readChannel(off))
}

// Write a texel. Writes outside the image are discarded.
func (img *Image) Store(x, y, z int, v types.Vec4) {
	if x < 0 || y < 0 || z < 0 || x >= img.w || y >= img.h || z >= img.d {
		return
	}
	off := img.offset(x, y, z)
	for c := 0; c < img.desc.Format.Order.Channels(); c++ {
		img.writeChannel(off+c*img.chanSize, v[c])
	}
}

// Write an unsigned integer to the first channel of a texel.
func (img *Image) StoreUint(x, y, z int, v uint32) {
	if x < 0 || y < 0 || z < 0 || x >= img.w || y >= img.h || z >= img.d {
		return
	}
	off := img.offset(x, y, z)
	switch img.desc.Format.Type {
	case compute.UInt8, compute.UNorm8:
		img.data[off] = byte(v)
	case compute.UNorm16:
		binary.LittleEndian.PutUint16(img.data[off:], uint16(v))
	case compute.UInt32:
		binary.LittleEndian.PutUint32(img.data[off:], v)
	default:
		img.writeChannel(off, float32(v))
	}
}

// Sample the first channel at normalized coordinates using nearest filtering.
func (img *Image) SampleNearest(tc types.Vec3) float32 {
	return img.FetchR(
		int(floorF(tc[0]*float32(img.w))),
		int(floorF(tc[1]*float32(img.h))),
		int(floorF(tc[2]*float32(img.d))),
	)
}

// Sample the first channel at normalized coordinates using trilinear filtering.
func (img *Image) SampleLinear(tc types.Vec3) float32 {
	u := tc[0]*float32(img.w) - 0.5
	v := tc[1]*float32(img.h) - 0.5
	w := tc[2]*float32(img.d) - 0.5
	x0, y0, z0 := floorF(u), floorF(v), floorF(w)
	fx, fy, fz := u-x0, v-y0, w-z0
	ix, iy, iz := int(x0), int(y0), int(z0)

	c000 := img.FetchR(ix, iy, iz)
	c100 := img.FetchR(ix+1, iy, iz)
	c010 := img.FetchR(ix, iy+1, iz)
	c110 := img.FetchR(ix+1, iy+1, iz)
	c001 := img.FetchR(ix, iy, iz+1)
	c101 := img.FetchR(ix+1, iy, iz+1)
	c011 := img.FetchR(ix, iy+1, iz+1)
	c111 := img.FetchR(ix+1, iy+1, iz+1)

	c00 := lerp(c000, c100, fx)
	c10 := lerp(c010, c110, fx)
	c01 := lerp(c001, c101, fx)
	c11 := lerp(c011, c111, fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

// Sample a 1D image at normalized coordinate u using linear filtering.
func (img *Image) Sample1D(u float32) types.Vec4 {
	x := u*float32(img.w) - 0.5
	x0 := floorF(x)
	f := x - x0
	return img.Fetch(int(x0), 0, 0).Lerp(img.Fetch(int(x0)+1, 0, 0), f)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func floorF(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
