package volume

import (
	"context"
	"encoding/binary"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Number of samples processed by a single ingestion task.
const chunkSamples = 1 << 18

// sampleCodec converts between on-disk samples of one scalar format and the
// normalized little-endian representation uploaded to the device.
type sampleCodec struct {
	decode    func(b []byte, order binary.ByteOrder) float64
	normalize func(v, max float64) float64
	encode    func(b []byte, v float64)
	bin       func(v float64) int
}

var codecs = map[ScalarFormat]sampleCodec{
	UChar: {
		decode:    func(b []byte, _ binary.ByteOrder) float64 { return float64(b[0]) },
		normalize: func(v, _ float64) float64 { return v },
		encode:    func(b []byte, v float64) { b[0] = byte(v) },
		bin:       func(v float64) int { return clampBin(int(v)) },
	},
	UShort: {
		decode: func(b []byte, order binary.ByteOrder) float64 { return float64(order.Uint16(b)) },
		normalize: func(v, max float64) float64 {
			if max <= 0 {
				return v
			}
			return math.Min(math.Round(v*(math.MaxUint16/max)), math.MaxUint16)
		},
		encode: func(b []byte, v float64) { binary.LittleEndian.PutUint16(b, uint16(v)) },
		bin:    func(v float64) int { return clampBin(int(v / 256)) },
	},
	Float: {
		decode: func(b []byte, order binary.ByteOrder) float64 {
			return float64(math.Float32frombits(order.Uint32(b)))
		},
		normalize: func(v, max float64) float64 {
			if max <= 0 {
				return v
			}
			return v / max
		},
		encode: func(b []byte, v float64) { binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v))) },
		bin: func(v float64) int {
			switch {
			case math.IsNaN(v), math.IsInf(v, -1):
				return 0
			case math.IsInf(v, 1):
				return 255
			}
			return clampBin(int(math.Round(v * 255)))
		},
	},
}

func clampBin(bin int) int {
	if bin < 0 {
		return 0
	}
	if bin > 255 {
		return 255
	}
	return bin
}

type sampleRange struct {
	min, max float64
}

// Convert a raw payload into its normalized representation, computing the
// histogram of the first channel and the observed raw value range. The work
// is split into independent chunks whose partial results are reduced once
// all chunks complete; the returned timestep is only built on success.
func normalizeTimestep(ctx context.Context, raw []byte, props Properties) (Timestep, sampleRange, error) {
	codec, ok := codecs[props.Format]
	if !ok {
		return Timestep{}, sampleRange{}, ErrUnknownFormat
	}

	bps := props.Format.BytesPerSample()
	channels := props.ChannelOrder.Channels()
	samples := props.VoxelCount() * channels
	order := props.ByteOrder.binary()
	if props.Format == UChar {
		order = binary.LittleEndian
	}

	numChunks := (samples + chunkSamples - 1) / chunkSamples
	chunkRange := func(c int) (int, int) {
		from := c * chunkSamples
		to := from + chunkSamples
		if to > samples {
			to = samples
		}
		return from, to
	}

	// Pass 1: observed range.
	ranges := make([]sampleRange, numChunks)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for c := 0; c < numChunks; c++ {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			from, to := chunkRange(c)
			r := sampleRange{min: math.Inf(1), max: math.Inf(-1)}
			for i := from; i < to; i++ {
				v := codec.decode(raw[i*bps:], order)
				// Non-finite samples do not contribute to the range.
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}
				r.min = math.Min(r.min, v)
				r.max = math.Max(r.max, v)
			}
			ranges[c] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Timestep{}, sampleRange{}, err
	}

	total := sampleRange{min: math.Inf(1), max: math.Inf(-1)}
	for _, r := range ranges {
		total.min = math.Min(total.min, r.min)
		total.max = math.Max(total.max, r.max)
	}
	if samples == 0 || total.min > total.max {
		total = sampleRange{}
	}

	// Pass 2: normalize and bin.
	out := make([]byte, samples*bps)
	histograms := make([]Histogram, numChunks)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for c := 0; c < numChunks; c++ {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			from, to := chunkRange(c)
			hist := &histograms[c]
			for i := from; i < to; i++ {
				v := codec.normalize(codec.decode(raw[i*bps:], order), total.max)
				codec.encode(out[i*bps:], v)
				if i%channels == 0 {
					hist[codec.bin(v)]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Timestep{}, sampleRange{}, err
	}

	ts := Timestep{Data: out}
	for c := range histograms {
		for bin, count := range histograms[c] {
			ts.Histogram[bin] += count
		}
	}
	return ts, total, nil
}
