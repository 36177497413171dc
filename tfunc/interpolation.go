package tfunc

import (
	"fmt"
	"strings"
)

// Interpolation selects the easing curve applied to the sampling progress.
type Interpolation uint8

// Supported interpolation modes.
const (
	Linear Interpolation = iota
	EaseInOutQuad
	EaseInOutCubic
)

func (i Interpolation) String() string {
	switch i {
	case EaseInOutQuad:
		return "quad"
	case EaseInOutCubic:
		return "cubic"
	}
	return "linear"
}

// Parse an interpolation mode name.
func ParseInterpolation(name string) (Interpolation, error) {
	switch strings.ToLower(name) {
	case "", "linear":
		return Linear, nil
	case "quad", "inoutquad", "easeinoutquad":
		return EaseInOutQuad, nil
	case "cubic", "inoutcubic", "easeinoutcubic":
		return EaseInOutCubic, nil
	}
	return Linear, fmt.Errorf("tfunc: unknown interpolation mode %q", name)
}

// Apply the easing curve to a progress value in [0, 1].
func (i Interpolation) ease(t float64) float64 {
	switch i {
	case EaseInOutQuad:
		t *= 2
		if t < 1 {
			return t * t / 2
		}
		t--
		return -0.5 * (t*(t-2) - 1)
	case EaseInOutCubic:
		t *= 2
		if t < 1 {
			return 0.5 * t * t * t
		}
		t -= 2
		return 0.5 * (t*t*t + 2)
	}
	return t
}
