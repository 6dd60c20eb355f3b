// Package meter owns the measurement state of the frequency meter and the
// interrupt entry points that mutate it.
package meter

import (
	"sync"
	"sync/atomic"

	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/capture"
)

const (
	// FullScaleCount is the largest 12-bit right-aligned ADC reading.
	FullScaleCount = 4095
	// ScaleFactor maps a full scale reading to 5000 ohms on the
	// potentiometer divider.
	ScaleFactor = 5000
)

// DerivedValue converts an ADC reading to the derived value with integer
// truncation. Readings above full scale are clamped.
func DerivedValue(adc uint16) uint32 {
	v := uint32(adc)
	if v > FullScaleCount {
		v = FullScaleCount
	}
	return v * ScaleFactor / FullScaleCount
}

// Meter ties the capture engine and source arbiter to the shared state.
//
// HandleButton and HandleEdge are called from interrupt handlers. Poll,
// ObserveADC, ReportFault and Snapshot are called from the main loop.
// Every mutation runs under lock; on the board lock disables interrupts.
type Meter struct {
	engine *capture.Engine
	arb    *arbiter.Arbiter
	lock   sync.Locker

	state State
	adc   atomic.Uint32
}

// New creates a Meter. A nil lock uses a sync.Mutex.
func New(engine *capture.Engine, arb *arbiter.Arbiter, lock sync.Locker) *Meter {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	m := &Meter{
		engine: engine,
		arb:    arb,
		lock:   lock,
	}
	m.state.source.Store(uint32(arb.Active()))
	return m
}

// HandleButton toggles the live source. A half-finished capture session
// belongs to the old line and is dropped.
func (m *Meter) HandleButton() {
	m.lock.Lock()
	defer m.lock.Unlock()

	src, ok := m.arb.Press()
	if !ok {
		return
	}
	m.engine.Abort()
	m.state.setSource(src)
}

// HandleEdge feeds a rising edge of line into the capture engine. Edges of
// the masked line are ignored.
func (m *Meter) HandleEdge(line arbiter.Line) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if line != m.arb.ActiveLine() {
		return
	}
	res, done, err := m.engine.Edge()
	if err != nil {
		m.state.discard(FaultOf(err))
		return
	}
	if !done {
		return
	}

	var derived uint32
	if m.arb.Active() == arbiter.SourceB {
		derived = DerivedValue(uint16(m.adc.Load()))
	}
	m.state.publish(res.Frequency, derived, res.Ticks)
}

// ObserveADC records the latest ADC reading for derived value computation.
func (m *Meter) ObserveADC(v uint16) {
	m.adc.Store(uint32(v))
}

// Poll expires a capture session that waited too long for its second edge.
func (m *Meter) Poll() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.engine.Expire(); err != nil {
		m.state.discard(FaultOf(err))
	}
}

// ReportFault latches the fault for err. A nil error is ignored.
func (m *Meter) ReportFault(err error) {
	if err == nil {
		return
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.state.setFault(FaultOf(err))
}

// ClearFault resets the latched fault.
func (m *Meter) ClearFault() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.state.setFault(FaultNone)
}

// Source returns the live source.
func (m *Meter) Source() arbiter.Source {
	return m.Snapshot().Source
}

// Snapshot returns a consistent copy of the measurement state.
func (m *Meter) Snapshot() Snapshot {
	return m.state.Snapshot()
}
