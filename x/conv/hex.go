package conv

const hexd = "0123456789abcdef"

// U8Hex writes "0x" followed by two lowercase hex digits.
// buf must be at least 4 bytes.
func U8Hex(buf []byte, n uint8) []byte {
	if len(buf) < 4 {
		return buf[:0]
	}
	buf[0], buf[1] = '0', 'x'
	buf[2] = hexd[n>>4]
	buf[3] = hexd[n&0xF]
	return buf[:4]
}

// AddrString formats a 7-bit bus address as "0x20".
func AddrString(addr uint16) string {
	var b [4]byte
	return string(U8Hex(b[:], uint8(addr)))
}
