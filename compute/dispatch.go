package compute

// RoundUp returns the smallest multiple of local that is >= global.
func RoundUp(global, local int) int {
	if local <= 0 {
		return global
	}
	if rem := global % local; rem != 0 {
		return global + local - rem
	}
	return global
}
