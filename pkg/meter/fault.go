package meter

import (
	"errors"

	"github.com/itohio/gofreq/pkg/capture"
)

// Fault is the latched failure code surfaced to the display, telemetry and
// the fault LED.
type Fault uint32

const (
	FaultNone Fault = iota
	FaultZeroInterval
	FaultOverflow
	FaultStale
	FaultBusTimeout
	FaultADCTimeout
	FaultUnknown
)

// Errors reported by the main loop. The packages that detect them wrap these.
var (
	ErrBusTimeout = errors.New("display bus timeout")
	ErrADCTimeout = errors.New("adc conversion timeout")
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "ok"
	case FaultZeroInterval:
		return "zero interval"
	case FaultOverflow:
		return "counter overflow"
	case FaultStale:
		return "capture timeout"
	case FaultBusTimeout:
		return "bus timeout"
	case FaultADCTimeout:
		return "adc timeout"
	default:
		return "unknown"
	}
}

// FaultOf maps an error to its fault code. A nil error maps to FaultNone.
func FaultOf(err error) Fault {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, capture.ErrZeroInterval):
		return FaultZeroInterval
	case errors.Is(err, capture.ErrOverflow):
		return FaultOverflow
	case errors.Is(err, capture.ErrStale):
		return FaultStale
	case errors.Is(err, ErrBusTimeout):
		return FaultBusTimeout
	case errors.Is(err, ErrADCTimeout):
		return FaultADCTimeout
	default:
		return FaultUnknown
	}
}
