// Package oled drives the 128x64 monochrome panel of the meter. Every byte
// is framed individually: chip select high, data/command level, chip select
// low, transmit, chip select high.
package oled

const (
	// PageSelect is the page address command; the page number is added.
	PageSelect = 0xB0
	// ColumnLow and ColumnHigh set the column address nibbles. Text starts
	// at column 2, which is the first visible column of the controller RAM.
	ColumnLow  = 0x02
	ColumnHigh = 0x10

	Pages        = 8
	Columns      = 128
	MaxLineChars = 16
)

// InitSequence is replayed as commands after the reset pulse.
var InitSequence = [...]byte{
	0xAE,       // display off
	0x20, 0x00, // memory addressing mode
	0x40,       // start line 0
	0xA1,       // segment remap
	0xA8, 0x3F, // multiplex ratio 64
	0xC8,       // COM scan direction
	0xD3, 0x00, // display offset
	0xDA, 0x32, // COM pins
	0xD5, 0x80, // clock divide
	0xD9, 0x22, // precharge
	0xDB, 0x30, // VCOM deselect
	0x81, 0xFF, // contrast
	0xA4,       // resume to RAM content
	0xA6,       // normal, not inverted
	0xAD, 0x30, // DC-DC control
	0x8D, 0x10, // charge pump
	0xAF,       // display on
	0xC0,
	0xA0,
}

// Pin is a push-pull output.
type Pin interface {
	High()
	Low()
}

// Transmitter shifts one byte out to the panel.
type Transmitter interface {
	Transmit(b byte) error
}
