package mathx

// MapU16 maps x from [inMin,inMax] onto [outMin,outMax], rounding to the
// nearest step. x outside the input range saturates; an empty input range
// yields outMin.
func MapU16(x, inMin, inMax, outMin, outMax uint16) uint16 {
	if inMax <= inMin || outMax < outMin {
		return outMin
	}
	x = Clamp(x, inMin, inMax)
	span := ScaleRound(uint32(x-inMin), uint32(inMax-inMin), uint32(outMax-outMin))
	return outMin + uint16(span)
}
