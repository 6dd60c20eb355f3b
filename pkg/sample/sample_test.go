package sample

import (
	"testing"
	"time"

	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/config"
	"github.com/itohio/gofreq/pkg/link"
	"github.com/itohio/gofreq/pkg/meter"
	"github.com/itohio/gofreq/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestADCToVoltage(t *testing.T) {
	tests := []struct {
		name string
		adc  uint16
		vref float32
		want float32
	}{
		{"zero ADC", 0, 3.3, 0.0},
		{"max ADC", 4095, 3.3, 3.3},
		{"above full scale", 5000, 3.3, 3.3},
		{"half ADC", 2047, 3.3, 1.65},
		{"quarter ADC", 1024, 3.3, 0.825},
		{"different VRef", 2047, 5.0, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adcToVoltage(tt.adc, tt.vref)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestConvertSample(t *testing.T) {
	cfg := config.Default()
	now := time.Now()

	raw := link.RawSample{
		Timestamp: now,
		Record: telemetry.Record{
			ADC:       4095,
			Frequency: 48000,
			Derived:   5000,
			Ticks:     1000,
			Source:    arbiter.SourceB,
			Fault:     meter.FaultStale,
		},
	}

	s := convertSample(raw, cfg)
	assert.Equal(t, now, s.Timestamp)
	assert.Equal(t, 48000.0, s.Frequency)
	assert.Equal(t, 20833*time.Nanosecond, s.Period)
	assert.Equal(t, float32(5000), s.Resistance)
	assert.InDelta(t, 3.3, s.Voltage, 1e-6)
	assert.Equal(t, arbiter.SourceB, s.Source)
	assert.Equal(t, meter.FaultStale, s.Fault)
}

func TestConvertSample_NoCapture(t *testing.T) {
	s := convertSample(link.RawSample{}, config.Default())
	assert.Zero(t, s.Frequency)
	assert.Zero(t, s.Period)
}

func TestNewConverter(t *testing.T) {
	cfg := config.Default()
	converter := NewConverter(cfg, 10)

	in := make(chan link.RawSample, 3)
	out := converter(in)

	for i := range 3 {
		in <- link.RawSample{Record: telemetry.Record{Frequency: uint32(1000 * (i + 1)), Ticks: 48000}}
	}
	close(in)

	var got []float64
	for s := range out {
		got = append(got, s.Frequency)
	}
	assert.Equal(t, []float64{1000, 2000, 3000}, got)
}

// TestConverter_GracefulShutdown tests that converter closes output channel
// when input channel is closed.
func TestConverter_GracefulShutdown(t *testing.T) {
	converter := NewConverter(config.Default(), 0)
	input := make(chan link.RawSample)
	output := converter(input)

	close(input)

	select {
	case _, ok := <-output:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}
}
