package oled

import (
	"image"
	"image/color"
	"sync"

	"github.com/itohio/gofreq/pkg/glyph"
)

// RAMColumns is the width of the controller display RAM. The visible
// window starts at ColumnLow.
const RAMColumns = 132

// commandArgs lists commands followed by one argument byte.
var commandArgs = map[byte]bool{
	0x20: true, 0x81: true, 0x8D: true, 0xA8: true, 0xAD: true,
	0xD3: true, 0xD5: true, 0xD9: true, 0xDA: true, 0xDB: true,
}

// Panel emulates the panel controller. It observes the chip select,
// data/command and reset lines and decodes transmitted bytes into display
// RAM. Bytes sent with chip select high are counted and dropped.
type Panel struct {
	mu sync.Mutex

	ram    [Pages][RAMColumns]byte
	page   int
	column int
	on     bool

	cs, dc bool
	argFor byte
	rst    bool

	commands int
	data     int
	dropped  int
}

// NewPanel returns a panel with reset released and chip select high.
func NewPanel() *Panel {
	return &Panel{cs: true, rst: true}
}

type panelPin struct {
	p   *Panel
	set func(p *Panel, level bool)
}

func (pp panelPin) High() {
	pp.p.mu.Lock()
	pp.set(pp.p, true)
	pp.p.mu.Unlock()
}

func (pp panelPin) Low() {
	pp.p.mu.Lock()
	pp.set(pp.p, false)
	pp.p.mu.Unlock()
}

// CS returns the chip select input.
func (p *Panel) CS() Pin {
	return panelPin{p, func(p *Panel, v bool) { p.cs = v }}
}

// DC returns the data/command input. High selects data.
func (p *Panel) DC() Pin {
	return panelPin{p, func(p *Panel, v bool) { p.dc = v }}
}

// RST returns the active low reset input.
func (p *Panel) RST() Pin {
	return panelPin{p, func(p *Panel, v bool) {
		if !v && p.rst {
			p.page, p.column, p.on, p.argFor = 0, 0, false, 0
		}
		p.rst = v
	}}
}

// Transmit implements Transmitter.
func (p *Panel) Transmit(b byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cs || !p.rst {
		p.dropped++
		return nil
	}
	if p.dc {
		p.data++
		if p.column < RAMColumns {
			p.ram[p.page][p.column] = b
			p.column++
		}
		return nil
	}
	p.commands++
	p.command(b)
	return nil
}

func (p *Panel) command(b byte) {
	if p.argFor != 0 {
		p.argFor = 0
		return
	}
	switch {
	case commandArgs[b]:
		p.argFor = b
	case b >= PageSelect && b < PageSelect+Pages:
		p.page = int(b - PageSelect)
	case b <= 0x0F:
		p.column = p.column&0xF0 | int(b)
	case b >= 0x10 && b <= 0x1F:
		p.column = p.column&0x0F | int(b&0x0F)<<4
	case b == 0xAE:
		p.on = false
	case b == 0xAF:
		p.on = true
	}
}

// On reports whether the display was switched on.
func (p *Panel) On() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

// Counts returns the number of command, data and dropped bytes seen.
func (p *Panel) Counts() (commands, data, dropped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commands, p.data, p.dropped
}

// Column returns the RAM byte of page at visible column x.
func (p *Panel) Column(page, x int) byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ram[page][x+ColumnLow]
}

// Text decodes the glyphs drawn on page. Cells that match no printable
// glyph read as '?'. Trailing blanks are kept.
func (p *Panel) Text(page int) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, 0, MaxLineChars)
	for i := range MaxLineChars {
		var g glyph.Glyph
		copy(g[:], p.ram[page][ColumnLow+i*glyph.Width:])
		c, ok := reverse()[g]
		if !ok {
			c = '?'
		}
		out = append(out, c)
	}
	return string(out)
}

// Image renders the visible window. Lit pixels are white. Bit 0 of each RAM
// byte is the top row of its page.
func (p *Panel) Image() *image.Gray {
	p.mu.Lock()
	defer p.mu.Unlock()

	img := image.NewGray(image.Rect(0, 0, Columns, Pages*8))
	for page := range Pages {
		for x := range Columns {
			b := p.ram[page][x+ColumnLow]
			for bit := range 8 {
				if b&(1<<bit) != 0 {
					img.SetGray(x, page*8+bit, color.Gray{Y: 0xFF})
				}
			}
		}
	}
	return img
}

var (
	reverseOnce  sync.Once
	reverseTable map[glyph.Glyph]byte
)

func reverse() map[glyph.Glyph]byte {
	reverseOnce.Do(func() {
		reverseTable = make(map[glyph.Glyph]byte, glyph.Count)
		for c := byte(' '); c < glyph.Count; c++ {
			g := glyph.Lookup(c)
			if _, ok := reverseTable[g]; !ok {
				reverseTable[g] = c
			}
		}
	})
	return reverseTable
}
