package mathx

// RoundDiv returns floor((a + b/2)/b), classic rounding for positives.
func RoundDiv[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// ScaleRound maps v in [0, inMax] onto [0, outMax] with rounding.
// v above inMax saturates at outMax. 64-bit intermediates.
func ScaleRound(v, inMax, outMax uint32) uint32 {
	if inMax == 0 {
		return 0
	}
	v = Min(v, inMax)
	return uint32(RoundDiv(uint64(v)*uint64(outMax), uint64(inMax)))
}
