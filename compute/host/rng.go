package host

// The per work item random number generator. The device program uses the
// same hash so both backends draw identical sequences for a given seed,
// pixel and iteration.
type rng struct {
	state uint32
}

func wangHash(seed uint32) uint32 {
	seed = (seed ^ 61) ^ (seed >> 16)
	seed *= 9
	seed = seed ^ (seed >> 4)
	seed *= 0x27d4eb2d
	seed = seed ^ (seed >> 15)
	return seed
}

func newRNG(seed uint32, x, y int, iteration uint32) rng {
	s := wangHash(seed ^ wangHash(uint32(x)*1973+uint32(y)*9277+iteration*26699))
	if s == 0 {
		s = 1
	}
	return rng{state: s}
}

// xorshift32
func (r *rng) next() uint32 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return r.state
}

// Uniform float in [0, 1).
func (r *rng) float() float32 {
	return float32(r.next()>>8) / (1 << 24)
}
