package oled

import (
	"strconv"

	"github.com/itohio/gofreq/pkg/meter"
)

const fieldWidth = 5

// FormatFrame returns the two text lines Refresh draws for s.
func FormatFrame(s meter.Snapshot) [2]string {
	return [2]string{
		string(truncate(appendDerived(nil, s.Derived))),
		string(truncate(appendFrequency(nil, s.Frequency))),
	}
}

func appendDerived(dst []byte, v uint32) []byte {
	dst = append(dst, "R: "...)
	dst = appendPadded(dst, v, fieldWidth)
	return append(dst, " Ohms"...)
}

func appendFrequency(dst []byte, v uint32) []byte {
	dst = append(dst, "F: "...)
	dst = appendPadded(dst, v, fieldWidth)
	return append(dst, " Hz"...)
}

// appendPadded right aligns v in width columns, like %5d.
func appendPadded(dst []byte, v uint32, width int) []byte {
	var digits [10]byte
	d := strconv.AppendUint(digits[:0], uint64(v), 10)
	for n := len(d); n < width; n++ {
		dst = append(dst, ' ')
	}
	return append(dst, d...)
}

func truncate(b []byte) []byte {
	if len(b) > MaxLineChars {
		return b[:MaxLineChars]
	}
	return b
}
