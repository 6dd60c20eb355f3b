package link

import (
	"math"
	"sync/atomic"

	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/oled"
)

// simCounter is the board stopwatch. It is touched by the capture engine
// under the meter lock and advanced by the signal simulation.
type simCounter struct {
	count    atomic.Uint32
	running  atomic.Bool
	overflow atomic.Bool
}

func (c *simCounter) Reset() {
	c.count.Store(0)
	c.overflow.Store(false)
}
func (c *simCounter) Start()           { c.running.Store(true) }
func (c *simCounter) Stop()            { c.running.Store(false) }
func (c *simCounter) Count() uint32    { return c.count.Load() }
func (c *simCounter) Overflowed() bool { return c.overflow.Load() }

func (c *simCounter) advance(ticks float64) {
	if !c.running.Load() {
		return
	}
	total := float64(c.count.Load()) + ticks
	if total > math.MaxUint32 {
		c.overflow.Store(true)
		total = math.Mod(total, math.MaxUint32+1)
	}
	c.count.Store(uint32(total))
}

// simEXTI holds the interrupt mask register of the external lines.
type simEXTI struct {
	imr atomic.Uint32
}

func (e *simEXTI) Mask(l arbiter.Line) {
	for {
		v := e.imr.Load()
		if e.imr.CompareAndSwap(v, v&^(1<<l)) {
			return
		}
	}
}

func (e *simEXTI) Unmask(l arbiter.Line) {
	for {
		v := e.imr.Load()
		if e.imr.CompareAndSwap(v, v|1<<l) {
			return
		}
	}
}

func (e *simEXTI) enabled(l arbiter.Line) bool {
	return e.imr.Load()&(1<<l) != 0
}

// simADC converts instantly.
type simADC struct {
	value atomic.Uint32
}

func (a *simADC) StartConversion() {}
func (a *simADC) Done() bool       { return true }
func (a *simADC) Value() uint16    { return uint16(a.value.Load()) }

type simDAC struct {
	value atomic.Uint32
}

func (d *simDAC) Set(v uint16) { d.value.Store(uint32(v)) }

// simSPI shifts bytes straight into the panel. A stuck bus reports busy
// forever.
type simSPI struct {
	panel *oled.Panel
	stuck atomic.Bool
}

func (s *simSPI) Transfer(b byte) (byte, error) {
	return 0, s.panel.Transmit(b)
}

func (s *simSPI) Tx(w, r []byte) error {
	for i, b := range w {
		v, err := s.Transfer(b)
		if err != nil {
			return err
		}
		if i < len(r) {
			r[i] = v
		}
	}
	return nil
}

func (s *simSPI) Busy() bool { return s.stuck.Load() }

// triangle sweeps 0..peak and back once per unit of phase.
func triangle(phase float64, peak float64) float64 {
	phase -= math.Floor(phase)
	if phase < 0.5 {
		return 2 * phase * peak
	}
	return 2 * (1 - phase) * peak
}
