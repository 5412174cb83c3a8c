package conv

// Utoa writes n in base 10 at the end of buf and returns the used tail.
// 20 bytes hold any uint64. No allocations; no fmt/strconv dependency.
func Utoa(buf []byte, n uint64) []byte {
	i := len(buf)
	for i > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			return buf[i:]
		}
	}
	return buf[:0]
}

// Itoa is Utoa with a leading '-' for negative n.
func Itoa(buf []byte, n int64) []byte {
	if n >= 0 {
		return Utoa(buf, uint64(n))
	}
	if len(buf) < 2 {
		return buf[:0]
	}
	d := Utoa(buf[1:], uint64(-n))
	if len(d) == 0 {
		return buf[:0]
	}
	start := len(buf) - len(d) - 1
	buf[start] = '-'
	return buf[start:]
}

// Istr formats n in base 10 (topic tokens, stage numbers, percentages).
func Istr(n int) string {
	var b [20]byte
	return string(Itoa(b[:], int64(n)))
}
