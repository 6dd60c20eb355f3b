package oled

import (
	"time"

	"github.com/itohio/gofreq/pkg/glyph"
	"github.com/itohio/gofreq/pkg/meter"
)

// Config holds the collaborators of a Display.
type Config struct {
	Port Transmitter
	CS   Pin
	DC   Pin
	RST  Pin // may be nil when the reset line is hard wired

	// ResetPulse is how long RST is held low. Defaults to 10ms.
	ResetPulse time.Duration
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Display renders the measurement frame on the panel.
type Display struct {
	cfg Config
	buf [MaxLineChars + 8]byte
}

// New creates a Display. Chip select is released.
func New(cfg Config) *Display {
	if cfg.ResetPulse == 0 {
		cfg.ResetPulse = 10 * time.Millisecond
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	cfg.CS.High()
	return &Display{cfg: cfg}
}

// Configure pulses reset, replays InitSequence and clears every page.
func (d *Display) Configure() error {
	if d.cfg.RST != nil {
		d.cfg.RST.High()
		d.cfg.Sleep(d.cfg.ResetPulse)
		d.cfg.RST.Low()
		d.cfg.Sleep(d.cfg.ResetPulse)
		d.cfg.RST.High()
		d.cfg.Sleep(d.cfg.ResetPulse)
	}
	for _, c := range InitSequence {
		if err := d.Command(c); err != nil {
			return err
		}
	}
	return d.Clear()
}

// Clear zeroes all pages from column 0.
func (d *Display) Clear() error {
	for p := range byte(Pages) {
		if err := d.address(p, 0x00); err != nil {
			return err
		}
		for range Columns {
			if err := d.Data(0); err != nil {
				return err
			}
		}
	}
	return nil
}

// Command sends one command byte.
func (d *Display) Command(b byte) error {
	return d.send(false, b)
}

// Data sends one display RAM byte.
func (d *Display) Data(b byte) error {
	return d.send(true, b)
}

func (d *Display) send(data bool, b byte) error {
	d.cfg.CS.High()
	if data {
		d.cfg.DC.High()
	} else {
		d.cfg.DC.Low()
	}
	d.cfg.CS.Low()
	err := d.cfg.Port.Transmit(b)
	d.cfg.CS.High()
	return err
}

func (d *Display) address(page, low byte) error {
	if err := d.Command(PageSelect + page); err != nil {
		return err
	}
	if err := d.Command(low); err != nil {
		return err
	}
	return d.Command(ColumnHigh)
}

// WriteLine draws text on page starting at the first visible column. Text
// longer than MaxLineChars is truncated.
func (d *Display) WriteLine(page byte, text []byte) error {
	if len(text) > MaxLineChars {
		text = text[:MaxLineChars]
	}
	if err := d.address(page%Pages, ColumnLow); err != nil {
		return err
	}
	for _, c := range text {
		for _, col := range glyph.Columns(c) {
			if err := d.Data(col); err != nil {
				return err
			}
		}
	}
	return nil
}

// Refresh draws the derived value on page 0 and the frequency on page 1.
func (d *Display) Refresh(s meter.Snapshot) error {
	if err := d.WriteLine(0, appendDerived(d.buf[:0], s.Derived)); err != nil {
		return err
	}
	return d.WriteLine(1, appendFrequency(d.buf[:0], s.Frequency))
}
