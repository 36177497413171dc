package volume

import "fmt"

// Histogram holds a 256-bin intensity histogram of a single timestep.
type Histogram [256]uint64

// Sum returns the total number of samples accounted for by the histogram.
func (h *Histogram) Sum() uint64 {
	var total uint64
	for _, v := range h {
		total += v
	}
	return total
}

// Timestep is one normalized little-endian voxel buffer and its histogram.
// Timesteps are never modified after a successful read.
type Timestep struct {
	Data      []byte
	Histogram Histogram
}

// Properties describes a loaded dataset.
type Properties struct {
	DatFileName  string
	RawFileNames []string

	// Size of the first raw payload in bytes.
	RawFileSize int64

	// Spatial resolution (x, y, z) and timestep count.
	Resolution [4]int

	SliceThickness [3]float64
	Format         ScalarFormat
	ChannelOrder   ChannelOrder
	ByteOrder      ByteOrder
	NodeFileName   string

	// Observed value range of the raw (non-normalized) samples.
	MinValue float32
	MaxValue float32
}

// VoxelCount returns x*y*z.
func (p Properties) VoxelCount() int {
	return p.Resolution[0] * p.Resolution[1] * p.Resolution[2]
}

// Timesteps returns the number of timesteps.
func (p Properties) Timesteps() int {
	if p.Resolution[3] < 1 {
		return 1
	}
	return p.Resolution[3]
}

// TimestepSize returns the expected size in bytes of a single timestep payload.
func (p Properties) TimestepSize() int {
	return p.VoxelCount() * p.Format.BytesPerSample() * p.ChannelOrder.Channels()
}

// Validate checks the invariants of a loaded dataset.
func (p Properties) Validate() error {
	for axis := 0; axis < 3; axis++ {
		if p.Resolution[axis] <= 0 {
			return fmt.Errorf("%w: %v", ErrInvalidResolution, p.Resolution)
		}
	}
	if p.Format == UnknownFormat {
		return ErrUnknownFormat
	}
	return nil
}

// The file the dataset was described by.
func (p Properties) source() string {
	if p.DatFileName != "" || len(p.RawFileNames) == 0 {
		return p.DatFileName
	}
	return p.RawFileNames[0]
}
