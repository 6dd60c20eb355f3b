package oled

import (
	"fmt"

	"github.com/itohio/gofreq/pkg/meter"
	"tinygo.org/x/drivers"
)

// DefaultMaxPolls bounds each busy-wait of SPIPort.
const DefaultMaxPolls = 10000

// BusStatus reports whether the SPI peripheral is still shifting.
type BusStatus interface {
	Busy() bool
}

// SPIPort transmits bytes over an SPI bus and waits, with a bound, for the
// peripheral to go idle before and after every byte.
type SPIPort struct {
	Bus      drivers.SPI
	Status   BusStatus // nil skips the busy-wait
	MaxPolls int       // zero uses DefaultMaxPolls
}

// Transmit sends b. A peripheral that stays busy past MaxPolls returns an
// error wrapping meter.ErrBusTimeout.
func (p *SPIPort) Transmit(b byte) error {
	if err := p.wait(); err != nil {
		return err
	}
	if _, err := p.Bus.Transfer(b); err != nil {
		return fmt.Errorf("oled: transfer 0x%02X: %w", b, err)
	}
	return p.wait()
}

func (p *SPIPort) wait() error {
	if p.Status == nil {
		return nil
	}
	n := p.MaxPolls
	if n <= 0 {
		n = DefaultMaxPolls
	}
	for range n {
		if !p.Status.Busy() {
			return nil
		}
	}
	return fmt.Errorf("oled: %w", meter.ErrBusTimeout)
}
