package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MaxForBits returns the largest value representable in bits (1..32).
func MaxForBits(bits uint8) uint32 {
	bits = Clamp(bits, 1, 32)
	return uint32(uint64(1)<<bits - 1)
}

// Ratio returns part/whole as a float, 0 when whole is zero.
func Ratio[T constraints.Integer | constraints.Float](part, whole T) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
