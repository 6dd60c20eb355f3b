// Package capture times the interval between two consecutive rising edges
// of a capture line with a free-running hardware counter.
package capture

import "errors"

var (
	// ErrZeroInterval is returned when the second edge arrives before the
	// counter advanced. The session is discarded.
	ErrZeroInterval = errors.New("capture: zero-length interval")
	// ErrOverflow is returned when the counter wrapped before the second edge.
	ErrOverflow = errors.New("capture: counter overflow")
	// ErrStale is returned by Expire when an armed session outlived its timeout.
	ErrStale = errors.New("capture: second edge timed out")
)

// Counter is the hardware stopwatch. Count must be readable while stopped.
type Counter interface {
	Reset()
	Start()
	Stop()
	Count() uint32
	// Overflowed reports whether the counter ran past its maximum since the
	// last Reset.
	Overflowed() bool
}

// Phase is the capture state.
type Phase uint8

const (
	// WaitingForFirstEdge means no session is armed.
	WaitingForFirstEdge Phase = iota
	// WaitingForSecondEdge means the counter runs since the first edge.
	WaitingForSecondEdge
)

func (p Phase) String() string {
	switch p {
	case WaitingForFirstEdge:
		return "waiting-first-edge"
	case WaitingForSecondEdge:
		return "waiting-second-edge"
	default:
		return "unknown"
	}
}

// Result is one completed measurement.
type Result struct {
	Ticks     uint32 // elapsed counter ticks between the two edges
	Frequency uint32 // clockHz / Ticks, truncated
	Period    uint64 // interval in nanoseconds
}

// Frequency converts an elapsed tick count to Hz using integer division.
func Frequency(clockHz, ticks uint32) (uint32, error) {
	if ticks == 0 {
		return 0, ErrZeroInterval
	}
	return clockHz / ticks, nil
}

// PeriodNanos converts an elapsed tick count to nanoseconds.
func PeriodNanos(clockHz, ticks uint32) uint64 {
	if clockHz == 0 {
		return 0
	}
	return uint64(ticks) * 1_000_000_000 / uint64(clockHz)
}
