package sample

import "github.com/itohio/gofreq/pkg/meter"

// DownsampleSamples decimates samples to about maxPoints for display.
// Samples where the source switches or a new fault is latched are always
// kept, so the result may be slightly longer than maxPoints.
// dst is reused when it has enough capacity.
func DownsampleSamples(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if maxPoints <= 0 || len(samples) <= maxPoints {
		if cap(dst) < len(samples) {
			dst = make([]Sample, 0, len(samples))
		}
		return append(dst[:0], samples...)
	}

	if cap(dst) < maxPoints {
		dst = make([]Sample, 0, maxPoints)
	}
	dst = dst[:0]

	// Decimation picks int(k*step) for k in [0, maxPoints).
	step := float64(len(samples)) / float64(maxPoints)
	k := 0
	for i := range samples {
		pick := k < maxPoints && i == int(float64(k)*step)
		if pick {
			k++
		}
		if pick || isMarker(samples, i) {
			dst = append(dst, samples[i])
		}
	}
	return dst
}

// isMarker reports whether samples[i] starts a new source or a new fault.
func isMarker(samples []Sample, i int) bool {
	if i == 0 {
		return false
	}
	prev, cur := samples[i-1], samples[i]
	if cur.Source != prev.Source {
		return true
	}
	return cur.Fault != meter.FaultNone && cur.Fault != prev.Fault
}
