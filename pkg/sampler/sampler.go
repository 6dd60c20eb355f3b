// Package sampler implements the main loop of the meter: one ADC
// conversion, a display refresh and a DAC passthrough per iteration.
package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/itohio/gofreq/pkg/meter"
)

// DefaultMaxPolls bounds the wait for end of conversion.
const DefaultMaxPolls = 10000

// ADC is a single channel 12-bit right-aligned converter.
type ADC interface {
	StartConversion()
	Done() bool
	Value() uint16
}

// DAC is a 12-bit right-aligned output.
type DAC interface {
	Set(v uint16)
}

// Refresher draws a snapshot.
type Refresher interface {
	Refresh(s meter.Snapshot) error
}

// Iteration describes one completed loop step.
type Iteration struct {
	N        uint32
	ADC      uint16
	Snapshot meter.Snapshot
}

// Config parameterizes a Loop.
type Config struct {
	// MaxPolls bounds the end of conversion wait. Zero uses DefaultMaxPolls.
	MaxPolls int
	// Interval paces Run. Zero runs back to back, as the board does.
	Interval time.Duration
	// Observer, if set, is called after every step, including failed ones.
	Observer func(Iteration)
}

// Loop is the main sampling loop.
type Loop struct {
	meter   *meter.Meter
	adc     ADC
	dac     DAC
	display Refresher
	cfg     Config
	n       uint32
}

// New creates a Loop.
func New(m *meter.Meter, adc ADC, dac DAC, display Refresher, cfg Config) *Loop {
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	return &Loop{
		meter:   m,
		adc:     adc,
		dac:     dac,
		display: display,
		cfg:     cfg,
	}
}

// Iterations returns the number of steps run so far.
func (l *Loop) Iterations() uint32 {
	return l.n
}

// Step runs one iteration. A conversion that never completes skips the
// refresh and the DAC write. A failed refresh still writes the DAC. Errors
// are latched as faults in the meter before being returned.
func (l *Loop) Step() error {
	l.n++

	v, err := l.convert()
	if err != nil {
		l.meter.ReportFault(err)
		l.notify(0)
		return err
	}
	l.meter.ObserveADC(v)
	l.meter.Poll()

	if err = l.display.Refresh(l.meter.Snapshot()); err != nil {
		err = fmt.Errorf("sampler: refresh: %w", err)
		l.meter.ReportFault(err)
	}
	l.dac.Set(v)
	l.notify(v)
	return err
}

func (l *Loop) convert() (uint16, error) {
	l.adc.StartConversion()
	for range l.cfg.MaxPolls {
		if l.adc.Done() {
			return l.adc.Value(), nil
		}
	}
	return 0, fmt.Errorf("sampler: %w", meter.ErrADCTimeout)
}

func (l *Loop) notify(v uint16) {
	if l.cfg.Observer == nil {
		return
	}
	l.cfg.Observer(Iteration{
		N:        l.n,
		ADC:      v,
		Snapshot: l.meter.Snapshot(),
	})
}

// Run steps until ctx is done. Step errors are already latched as faults
// and do not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if l.cfg.Interval > 0 {
		t := time.NewTicker(l.cfg.Interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = l.Step()

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
}
