// Package tfunc samples transfer functions (scalar intensity to RGBA) into
// the fixed-size tables consumed by the rendering kernels.
package tfunc

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// Number of entries in a sampled transfer function.
	Samples = 1024

	// Sampling positions are quantized to this many steps.
	granularity = 8192.0

	// Subtracted from every sampled channel to compensate for interpolation
	// overshoot; sampled tables must stay byte-compatible with existing ones.
	channelBias = 3
)

var ErrNoControlPoints = errors.New("tfunc: no control points")

// ControlPoint anchors an RGBA colour at a normalized intensity position.
type ControlPoint struct {
	Position float64
	Color    [4]uint8
}

// Table is a sampled transfer function.
type Table struct {
	// Samples*4 bytes of RGBA data.
	RGBA []byte

	// Running sum of the alpha channel.
	PrefixSum []uint32
}

// The default transfer function: a ramp from transparent black to opaque white.
func DefaultRamp() []ControlPoint {
	return []ControlPoint{
		{Position: 0, Color: [4]uint8{0, 0, 0, 0}},
		{Position: 1, Color: [4]uint8{255, 255, 255, 255}},
	}
}

// Sample the curve defined by points at Samples fixed positions. The curve is
// evaluated the way a key-framed animation would be: the easing curve is
// applied to the overall progress and the colour is then linearly
// interpolated between the enclosing control points.
func Sample(points []ControlPoint, mode Interpolation) (*Table, error) {
	keys, err := normalizeControlPoints(points)
	if err != nil {
		return nil, err
	}

	table := &Table{
		RGBA: make([]byte, Samples*4),
	}
	for i := 0; i < Samples; i++ {
		progress := math.Round(float64(i)/Samples*granularity) / granularity
		color := evaluate(keys, mode.ease(progress))
		for c := 0; c < 4; c++ {
			v := color[c] - channelBias
			if v < 0 {
				v = 0
			}
			table.RGBA[i*4+c] = byte(v)
		}
	}
	table.PrefixSum = PrefixSum(table.RGBA)

	return table, nil
}

// PrefixSum computes the running sum of the alpha channel of an RGBA table.
func PrefixSum(rgba []byte) []uint32 {
	out := make([]uint32, len(rgba)/4)
	var sum uint32
	for i := range out {
		sum += uint32(rgba[i*4+3])
		out[i] = sum
	}
	return out
}

// Sort control points by position. Points sharing a position are collapsed,
// keeping the last one.
func normalizeControlPoints(points []ControlPoint) ([]ControlPoint, error) {
	if len(points) == 0 {
		return nil, ErrNoControlPoints
	}

	keys := make([]ControlPoint, 0, len(points))
	for _, p := range points {
		if p.Position < 0 || p.Position > 1 || math.IsNaN(p.Position) {
			return nil, fmt.Errorf("tfunc: control point position %f outside [0, 1]", p.Position)
		}
		keys = append(keys, p)
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Position < keys[j].Position })

	out := keys[:1]
	for _, k := range keys[1:] {
		if k.Position == out[len(out)-1].Position {
			out[len(out)-1] = k
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// Evaluate the key-framed colour at progress p. Channels are truncated to
// integers as they would be for an 8-bit colour type.
func evaluate(keys []ControlPoint, p float64) [4]int {
	from, to := keys[0], keys[len(keys)-1]
	if p <= from.Position || len(keys) == 1 {
		return toInts(from.Color)
	}
	if p >= to.Position {
		return toInts(to.Color)
	}

	for i := 1; i < len(keys); i++ {
		if p < keys[i].Position {
			from, to = keys[i-1], keys[i]
			break
		}
	}

	local := (p - from.Position) / (to.Position - from.Position)
	var out [4]int
	for c := 0; c < 4; c++ {
		a, b := float64(from.Color[c]), float64(to.Color[c])
		out[c] = int(a + (b-a)*local)
	}
	return out
}

func toInts(c [4]uint8) [4]int {
	return [4]int{int(c[0]), int(c[1]), int(c[2]), int(c[3])}
}
