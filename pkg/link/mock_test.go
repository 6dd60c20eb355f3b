package link

import (
	"testing"
	"time"

	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/config"
	"github.com/itohio/gofreq/pkg/meter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Sampler.TelemetryEvery = 1
	cfg.Mock.SampleRate = time.Millisecond
	cfg.Mock.ADCPeriod = 0 // hold the potentiometer at mid scale
	cfg.Mock.Noise = 0
	return cfg
}

// waitFor reads samples until pred matches or the timeout expires.
func waitFor(t *testing.T, ch <-chan RawSample, pred func(RawSample) bool) RawSample {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			require.True(t, ok, "samples channel closed")
			if pred(s) {
				return s
			}
		case <-timeout:
			t.Fatal("no matching sample")
			return RawSample{}
		}
	}
}

func TestMock_SourceA(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	s := waitFor(t, m.Samples(), func(s RawSample) bool { return s.Frequency != 0 })
	assert.Equal(t, uint32(1000), s.Frequency)
	assert.Equal(t, uint32(48000), s.Ticks)
	assert.Equal(t, uint32(0), s.Derived)
	assert.Equal(t, arbiter.SourceA, s.Source)
	assert.Equal(t, meter.FaultNone, s.Fault)
	assert.Equal(t, uint16(2048), s.ADC)
}

func TestMock_ToggleSource(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	waitFor(t, m.Samples(), func(s RawSample) bool { return s.Frequency == 1000 })
	require.NoError(t, m.ToggleSource())

	s := waitFor(t, m.Samples(), func(s RawSample) bool {
		return s.Source == arbiter.SourceB && s.Derived != 0
	})
	assert.InDelta(t, 440, float64(s.Frequency), 1)
	assert.Equal(t, uint32(2500), s.Derived)

	require.NoError(t, m.ToggleSource())
	s = waitFor(t, m.Samples(), func(s RawSample) bool {
		return s.Source == arbiter.SourceA && s.Derived == 0
	})
	assert.Equal(t, uint32(1000), s.Frequency)
	assert.Equal(t, uint32(2), m.Snapshot().Switches)
}

func TestMock_PanelMirrorsMeasurement(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	waitFor(t, m.Samples(), func(s RawSample) bool { return s.Frequency == 1000 })
	// The frame drawn by the next step carries the measurement.
	waitFor(t, m.Samples(), func(RawSample) bool { return true })

	p := m.Panel()
	require.NotNil(t, p)
	assert.True(t, p.On())
	assert.Equal(t, "R:     0 Ohms   ", p.Text(0))
	assert.Equal(t, "F:  1000 Hz     ", p.Text(1))
}

func TestMock_ClearFault(t *testing.T) {
	cfg := mockConfig()
	cfg.Mock.FrequencyA = 0.001 // one period overflows the counter

	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	waitFor(t, m.Samples(), func(s RawSample) bool { return s.Fault == meter.FaultOverflow })

	require.NoError(t, m.ToggleSource())
	require.NoError(t, m.ClearFault())

	s := waitFor(t, m.Samples(), func(s RawSample) bool {
		return s.Source == arbiter.SourceB && s.Fault == meter.FaultNone && s.Frequency != 0
	})
	assert.InDelta(t, 440, float64(s.Frequency), 1)
	assert.NotZero(t, m.Snapshot().Discarded)
}

func TestMock_BusTimeout(t *testing.T) {
	cfg := mockConfig()
	cfg.Sampler.BusMaxPolls = 50

	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	waitFor(t, m.Samples(), func(s RawSample) bool { return s.Frequency != 0 })

	m.bus.stuck.Store(true)
	s := waitFor(t, m.Samples(), func(s RawSample) bool { return s.Fault == meter.FaultBusTimeout })
	// Captures keep running while the display is stuck
	assert.Equal(t, uint32(1000), s.Frequency)

	m.bus.stuck.Store(false)
	require.NoError(t, m.ClearFault())
	waitFor(t, m.Samples(), func(s RawSample) bool { return s.Fault == meter.FaultNone })
}

func TestMock_ClearFaultWithButtonMasked(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	m.meter.ReportFault(meter.ErrADCTimeout)
	waitFor(t, m.Samples(), func(s RawSample) bool { return s.Fault == meter.FaultADCTimeout })

	m.exti.Mask(LineButton)

	require.NoError(t, m.ClearFault())
	waitFor(t, m.Samples(), func(s RawSample) bool { return s.Fault == meter.FaultNone })

	// The button line is masked, so the toggle is ignored
	require.NoError(t, m.ToggleSource())
	for range 5 {
		s := waitFor(t, m.Samples(), func(RawSample) bool { return true })
		assert.Equal(t, arbiter.SourceA, s.Source)
	}
	assert.Zero(t, m.Snapshot().Switches)
}

func TestMock_Reconnect(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	first := m.Samples()
	waitFor(t, first, func(s RawSample) bool { return s.Frequency != 0 })
	require.NoError(t, m.Close())

	for range first {
	}

	require.NoError(t, m.Connect())
	defer m.Close()
	assert.True(t, m.IsConnected())

	s := waitFor(t, m.Samples(), func(s RawSample) bool { return s.Frequency != 0 })
	assert.Equal(t, uint32(1000), s.Frequency)
}

func TestMock_NotConnected(t *testing.T) {
	m := NewMock(nil)
	assert.False(t, m.IsConnected())
	assert.Error(t, m.ToggleSource())
	assert.Error(t, m.ClearFault())
	assert.Nil(t, m.Panel())
	assert.Equal(t, meter.Snapshot{}, m.Snapshot())
	assert.NoError(t, m.Close())
}

func TestMock_ConnectTwice(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()
	assert.Error(t, m.Connect())
}

// TestMock_GracefulShutdown tests that Mock device closes samples channel
// when Close() is called.
func TestMock_GracefulShutdown(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())

	samples := m.Samples()

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range samples {
			received++
			if received == 3 {
				go m.Close()
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Samples channel did not close within timeout")
	}

	assert.GreaterOrEqual(t, received, 3)
	assert.False(t, m.IsConnected())
}
