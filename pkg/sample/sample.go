package sample

import (
	"log"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/capture"
	"github.com/itohio/gofreq/pkg/config"
	"github.com/itohio/gofreq/pkg/link"
	"github.com/itohio/gofreq/pkg/meter"
)

// Sample represents a processed measurement sample with physical values.
type Sample struct {
	Timestamp  time.Time
	Frequency  float64        // Hz
	Period     time.Duration  // Period of the captured signal
	Resistance float32        // Potentiometer resistance (ohms), 0 for source A
	Voltage    float32        // Potentiometer wiper voltage (V)
	Source     arbiter.Source // Source the capture was taken from
	Fault      meter.Fault    // Fault latched on the board
}

// Converter is a function type that converts RawSample channel to Sample channel.
type Converter func(in <-chan link.RawSample) <-chan Sample

// NewConverter creates a converter function that transforms RawSample to Sample.
func NewConverter(cfg *config.Config, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan link.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				select {
				case out <- convertSample(raw, cfg):
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// convertSample converts a RawSample to Sample using configuration.
func convertSample(raw link.RawSample, cfg *config.Config) Sample {
	return Sample{
		Timestamp:  raw.Timestamp,
		Frequency:  float64(raw.Frequency),
		Period:     time.Duration(capture.PeriodNanos(cfg.Capture.CoreClockHz, raw.Ticks)),
		Resistance: float32(raw.Derived),
		Voltage:    adcToVoltage(raw.ADC, float32(cfg.Measurement.VRef)),
		Source:     raw.Source,
		Fault:      raw.Fault,
	}
}

// adcToVoltage converts a 12-bit ADC reading to voltage. Readings above
// full scale are clamped.
func adcToVoltage(adc uint16, vref float32) float32 {
	v := math32.Min(float32(adc), meter.FullScaleCount)
	return v / meter.FullScaleCount * vref
}
