package sample

import (
	"log"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/gofreq/pkg/config"
	"github.com/itohio/gofreq/pkg/link"
)

// NewAveragingConverter creates a converter that averages N consecutive RawSamples
// and converts them to Samples. The window restarts when the source changes,
// so captures of the two inputs are never mixed.
func NewAveragingConverter(cfg *config.Config, windowSize int, bufSize int) Converter {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan link.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []link.RawSample
			ticker := time.NewTicker(100 * time.Millisecond) // Output rate
			defer ticker.Stop()

			for {
				select {
				case raw, ok := <-in:
					if !ok {
						// Input closed, output any remaining samples
						if len(buffer) > 0 {
							select {
							case out <- averageAndConvertSamples(buffer, cfg):
							default:
							}
						}
						return
					}

					if len(buffer) > 0 && buffer[len(buffer)-1].Source != raw.Source {
						buffer = buffer[:0]
					}
					buffer = append(buffer, raw)
					if len(buffer) > windowSize {
						buffer = buffer[1:] // Remove oldest
					}

				case <-ticker.C:
					if len(buffer) > 0 {
						select {
						case out <- averageAndConvertSamples(buffer, cfg):
						default:
							log.Printf("Averaging converter output channel full")
						}
					}
				}
			}
		}()

		return out
	}
}

// averageAndConvertSamples averages a slice of RawSamples and converts to Sample.
// Uses the most recent sample's timestamp, source and fault.
func averageAndConvertSamples(samples []link.RawSample, cfg *config.Config) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumADC, sumFreq, sumDerived, sumTicks uint64
	avgRaw := samples[len(samples)-1]

	for _, s := range samples {
		sumADC += uint64(s.ADC)
		sumFreq += uint64(s.Frequency)
		sumDerived += uint64(s.Derived)
		sumTicks += uint64(s.Ticks)
	}

	n := uint64(len(samples))
	avgRaw.ADC = uint16((sumADC + n/2) / n) // Round to nearest
	avgRaw.Ticks = uint32((sumTicks + n/2) / n)
	avgRaw.Derived = uint32((sumDerived + n/2) / n)

	s := convertSample(avgRaw, cfg)
	s.Frequency = float64(sumFreq) / float64(n)
	return s
}

// NewAveragingConverterForSamples creates an averaging converter that works on already-converted Samples.
// This is useful when you want to average after conversion.
func NewAveragingConverterForSamples(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []Sample
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()

			for {
				select {
				case sample, ok := <-in:
					if !ok {
						if len(buffer) > 0 {
							select {
							case out <- averageConvertedSamples(buffer):
							default:
							}
						}
						return
					}

					if len(buffer) > 0 && buffer[len(buffer)-1].Source != sample.Source {
						buffer = buffer[:0]
					}
					buffer = append(buffer, sample)
					if len(buffer) > windowSize {
						buffer = buffer[1:]
					}

				case <-ticker.C:
					if len(buffer) > 0 {
						select {
						case out <- averageConvertedSamples(buffer):
						default:
							log.Printf("Averaging converter output channel full")
						}
					}
				}
			}
		}()

		return out
	}
}

// averageConvertedSamples averages a slice of converted Samples.
func averageConvertedSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var (
		sumFreq               float64
		sumPeriod             time.Duration
		sumResistance, sumVol float32
	)
	avg := samples[len(samples)-1]

	for _, s := range samples {
		sumFreq += s.Frequency
		sumPeriod += s.Period
		sumResistance += s.Resistance
		sumVol += s.Voltage
	}

	n := len(samples)
	avg.Frequency = sumFreq / float64(n)
	avg.Period = sumPeriod / time.Duration(n)
	avg.Resistance = math32.Round(sumResistance / float32(n))
	avg.Voltage = sumVol / float32(n)
	return avg
}
