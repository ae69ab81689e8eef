package common

import "math"

func NextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func Ilog2(v uint32) uint32 {
	getBool := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}
	var r uint32
	var shift uint32
	r = getBool(v > 0xffff) << 4
	v >>= r
	shift = getBool(v > 0xff) << 3
	v >>= shift
	r |= shift
	shift = getBool(v > 0xf) << 2
	v >>= shift
	r |= shift
	shift = getBool(v > 0x3) << 1
	v >>= shift
	r |= shift
	r |= v >> 1
	return r
}

func ComputeTileHash(x, y, mask int32) int32 {
	h1 := uint32(0x8da6b343) // Large multiplicative constants;
	h2 := uint32(0xd8163841) // here arbitrarily chosen primes
	n := h1*uint32(x) + h2*uint32(y)
	return int32(n & uint32(mask))
}

// Floor32 rounds toward negative infinity.
func Floor32(v float32) int32 {
	return int32(math.Floor(float64(v)))
}
