package pcf85063

import "time"

// BCD helpers. Inputs are clamped to the field mask by the caller.

func fromBCD(b byte) int { return int(b>>4)*10 + int(b&0x0F) }

func toBCD(v int) byte {
	if v < 0 {
		v = 0
	}
	v %= 100
	return byte(v/10)<<4 | byte(v%10)
}

// decodeTime parses seconds..years (7 bytes starting at regSeconds).
func decodeTime(r []byte) Time {
	return Time{
		Second:            fromBCD(r[0] & 0x7F),
		OscillatorStopped: r[0]&flagOS != 0,
		Minute:            fromBCD(r[1] & 0x7F),
		Hour:              fromBCD(r[2] & 0x3F),
		Day:               fromBCD(r[3] & 0x3F),
		Weekday:           time.Weekday(r[4] & 0x07),
		Month:             time.Month(fromBCD(r[5] & 0x1F)),
		Year:              2000 + fromBCD(r[6]),
	}
}

// encodeTime fills seconds..years; bit 7 of seconds (OS) is written as 0.
func encodeTime(w []byte, t time.Time) {
	w[0] = toBCD(t.Second())
	w[1] = toBCD(t.Minute())
	w[2] = toBCD(t.Hour())
	w[3] = toBCD(t.Day())
	w[4] = byte(t.Weekday())
	w[5] = toBCD(int(t.Month()))
	w[6] = toBCD(t.Year() - 2000)
}
