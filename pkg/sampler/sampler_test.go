package sampler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/capture"
	"github.com/itohio/gofreq/pkg/meter"
	"github.com/itohio/gofreq/pkg/oled"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeADC struct {
	value   uint16
	latency int // polls before Done
	polls   int
	starts  int
}

func (a *fakeADC) StartConversion() { a.starts++; a.polls = 0 }
func (a *fakeADC) Done() bool {
	a.polls++
	return a.polls > a.latency
}
func (a *fakeADC) Value() uint16 { return a.value }

type fakeDAC struct{ writes []uint16 }

func (d *fakeDAC) Set(v uint16) { d.writes = append(d.writes, v) }

type fakeDisplay struct {
	frames []meter.Snapshot
	err    error
}

func (d *fakeDisplay) Refresh(s meter.Snapshot) error {
	d.frames = append(d.frames, s)
	return d.err
}

type nopCounter struct{}

func (nopCounter) Reset()           {}
func (nopCounter) Start()           {}
func (nopCounter) Stop()            {}
func (nopCounter) Count() uint32    { return 0 }
func (nopCounter) Overflowed() bool { return false }

type nopMask struct{}

func (nopMask) Mask(arbiter.Line)   {}
func (nopMask) Unmask(arbiter.Line) {}

func newMeter() *meter.Meter {
	e := capture.New(nopCounter{}, capture.Config{ClockHz: 48_000_000})
	a := arbiter.New(nopMask{}, arbiter.Config{LineA: 2, LineB: 1})
	return meter.New(e, a, nil)
}

func TestStep(t *testing.T) {
	m := newMeter()
	adc := &fakeADC{value: 2048, latency: 3}
	dac := &fakeDAC{}
	display := &fakeDisplay{}

	var seen []Iteration
	l := New(m, adc, dac, display, Config{Observer: func(it Iteration) { seen = append(seen, it) }})

	require.NoError(t, l.Step())
	assert.Equal(t, 1, adc.starts)
	assert.Equal(t, []uint16{2048}, dac.writes)
	require.Len(t, display.frames, 1)
	require.Len(t, seen, 1)
	assert.Equal(t, uint32(1), seen[0].N)
	assert.Equal(t, uint16(2048), seen[0].ADC)
	assert.Equal(t, uint32(1), l.Iterations())
}

func TestStep_DACPassthrough(t *testing.T) {
	m := newMeter()
	adc := &fakeADC{}
	dac := &fakeDAC{}
	l := New(m, adc, dac, &fakeDisplay{}, Config{})

	for _, v := range []uint16{0, 1, 2048, 4095} {
		adc.value = v
		require.NoError(t, l.Step())
	}
	assert.Equal(t, []uint16{0, 1, 2048, 4095}, dac.writes)
}

func TestStep_ADCTimeout(t *testing.T) {
	m := newMeter()
	adc := &fakeADC{value: 1, latency: 100}
	dac := &fakeDAC{}
	display := &fakeDisplay{}
	l := New(m, adc, dac, display, Config{MaxPolls: 10})

	err := l.Step()
	require.Error(t, err)
	assert.ErrorIs(t, err, meter.ErrADCTimeout)
	assert.Equal(t, 10, adc.polls)
	assert.Empty(t, dac.writes)
	assert.Empty(t, display.frames)
	assert.Equal(t, meter.FaultADCTimeout, m.Snapshot().Fault)
}

func TestStep_RefreshError(t *testing.T) {
	m := newMeter()
	dac := &fakeDAC{}
	display := &fakeDisplay{err: fmt.Errorf("oled: %w", meter.ErrBusTimeout)}
	l := New(m, &fakeADC{value: 7}, dac, display, Config{})

	err := l.Step()
	assert.ErrorIs(t, err, meter.ErrBusTimeout)
	assert.Equal(t, []uint16{7}, dac.writes)
	assert.Equal(t, meter.FaultBusTimeout, m.Snapshot().Fault)
}

func TestStep_RefreshesPanel(t *testing.T) {
	m := newMeter()
	m.HandleButton()

	p := oled.NewPanel()
	d := oled.New(oled.Config{Port: p, CS: p.CS(), DC: p.DC(), RST: p.RST(), Sleep: func(time.Duration) {}})
	require.NoError(t, d.Configure())

	l := New(m, &fakeADC{value: 4095}, &fakeDAC{}, d, Config{})
	require.NoError(t, l.Step())

	assert.Equal(t, "R:     0 Ohms   ", p.Text(0), "no capture yet")
	assert.Equal(t, "F:     0 Hz     ", p.Text(1))
}

func TestRun_StopsOnCancel(t *testing.T) {
	m := newMeter()
	ctx, cancel := context.WithCancel(context.Background())

	steps := 0
	l := New(m, &fakeADC{}, &fakeDAC{}, &fakeDisplay{err: errors.New("bus")}, Config{
		Observer: func(it Iteration) {
			steps++
			if it.N == 5 {
				cancel()
			}
		},
	})

	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, steps, "refresh errors do not stop the loop")
}

func TestRun_Interval(t *testing.T) {
	m := newMeter()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	l := New(m, &fakeADC{}, &fakeDAC{}, &fakeDisplay{}, Config{Interval: 20 * time.Millisecond})
	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, l.Iterations(), uint32(1))
	assert.LessOrEqual(t, l.Iterations(), uint32(4))
}
