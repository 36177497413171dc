package volume

import (
	"fmt"
	"math"
)

// Integer cube root; the largest r such that r*r*r <= n.
func icbrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	r := int64(math.Cbrt(float64(n)))
	for r*r*r > n {
		r--
	}
	for (r+1)*(r+1)*(r+1) <= n {
		r++
	}
	return r
}

// Derive a cubic resolution from the payload size. An unknown format is
// assumed to be UCHAR.
func (r *Reader) inferResolution(props *Properties, payloadSize int64) error {
	r.logger.Warningf("missing resolution declaration in %s; inferring cubic resolution from data size", props.source())
	if props.Format == UnknownFormat {
		r.logger.Warning("format could not be determined; assuming UCHAR")
		props.Format = UChar
	}

	sampleSize := int64(props.Format.BytesPerSample() * props.ChannelOrder.Channels())
	edge := icbrt(payloadSize / sampleSize)
	if edge == 0 {
		return fmt.Errorf("%w from %d bytes", ErrUnresolvableResolution, payloadSize)
	}
	props.Resolution[0], props.Resolution[1], props.Resolution[2] = int(edge), int(edge), int(edge)
	return nil
}

// Derive the scalar format from the payload size and a known resolution.
func (r *Reader) inferFormat(props *Properties, payloadSize int64) error {
	r.logger.Warningf("missing format declaration in %s; inferring format from data size and resolution", props.source())

	voxels := int64(props.VoxelCount() * props.ChannelOrder.Channels())
	format, err := formatForSampleSize(int(payloadSize / voxels))
	if err != nil {
		return err
	}
	props.Format = format
	r.logger.Infof("format determined as %s", format)
	return nil
}
