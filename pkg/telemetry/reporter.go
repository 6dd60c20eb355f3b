package telemetry

import (
	"io"

	"github.com/itohio/gofreq/pkg/sampler"
)

// Reporter writes one line every Every loop iterations. It is meant to be
// used as a sampler observer.
type Reporter struct {
	w      io.Writer
	every  uint32
	micros func() uint64
	buf    []byte

	// Err holds the last write error.
	Err error
}

// NewReporter creates a Reporter. every below 1 reports every iteration.
// micros provides the timestamp of each line.
func NewReporter(w io.Writer, every uint32, micros func() uint64) *Reporter {
	if every < 1 {
		every = 1
	}
	return &Reporter{
		w:      w,
		every:  every,
		micros: micros,
		buf:    make([]byte, 0, 64),
	}
}

// Observe writes a line for it when its iteration number is due.
func (r *Reporter) Observe(it sampler.Iteration) {
	if it.N%r.every != 0 {
		return
	}
	r.buf = AppendLine(r.buf[:0], FromSnapshot(r.micros(), it.ADC, it.Snapshot))
	if _, err := r.w.Write(r.buf); err != nil {
		r.Err = err
	}
}
