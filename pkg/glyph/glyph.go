// Package glyph holds the fixed 8x8 character set used by the panel.
package glyph

const (
	// Width is the number of column bytes per character cell.
	Width = 8
	// Count is the number of addressable character codes (7-bit ASCII).
	Count = 128
)

// Glyph is one character cell, one byte per display column.
type Glyph [Width]byte

// Lookup returns the glyph for character code c.
// Codes outside the table render as a blank cell.
func Lookup(c byte) Glyph {
	if int(c) >= Count {
		return table[' ']
	}
	return table[c]
}

// Columns returns the column bytes of c as a slice backed by the table.
// Callers must not modify it.
func Columns(c byte) []byte {
	if int(c) >= Count {
		c = ' '
	}
	return table[c][:]
}
