// Package telemetry defines the line the board writes to its UART and the
// single byte commands it accepts.
//
// Line format: "micros,adc,frequency,derived,ticks,source,fault\n"
// Example:     "1532001,2048,48000,2500,1000,B,0\n"
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/meter"
)

// Host commands. Any other byte is ignored, as are CR and LF.
const (
	CmdToggle     byte = 't'
	CmdClearFault byte = 'c'
)

const fields = 7

// ErrFormat reports a malformed telemetry line.
var ErrFormat = errors.New("telemetry: malformed line")

// Record is one telemetry line.
type Record struct {
	Micros    uint64
	ADC       uint16
	Frequency uint32
	Derived   uint32
	Ticks     uint32
	Source    arbiter.Source
	Fault     meter.Fault
}

// FromSnapshot builds a record from a meter snapshot.
func FromSnapshot(micros uint64, adc uint16, s meter.Snapshot) Record {
	return Record{
		Micros:    micros,
		ADC:       adc,
		Frequency: s.Frequency,
		Derived:   s.Derived,
		Ticks:     s.Ticks,
		Source:    s.Source,
		Fault:     s.Fault,
	}
}

// AppendLine appends the line for r, including the trailing newline.
func AppendLine(dst []byte, r Record) []byte {
	dst = strconv.AppendUint(dst, r.Micros, 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.ADC), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Frequency), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Derived), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Ticks), 10)
	dst = append(dst, ',')
	dst = append(dst, r.Source.String()...)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Fault), 10)
	return append(dst, '\n')
}

// ParseLine parses one line. Surrounding whitespace is ignored.
func ParseLine(line string) (Record, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Record{}, fmt.Errorf("%w: empty", ErrFormat)
	}

	parts := strings.Split(line, ",")
	if len(parts) != fields {
		return Record{}, fmt.Errorf("%w: expected %d fields, got %d", ErrFormat, fields, len(parts))
	}

	var (
		r   Record
		err error
	)
	if r.Micros, err = strconv.ParseUint(parts[0], 10, 64); err != nil {
		return Record{}, fmt.Errorf("%w: micros: %v", ErrFormat, err)
	}
	adc, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Record{}, fmt.Errorf("%w: adc: %v", ErrFormat, err)
	}
	r.ADC = uint16(adc)

	for i, dst := range []*uint32{&r.Frequency, &r.Derived, &r.Ticks} {
		v, err := strconv.ParseUint(parts[2+i], 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("%w: field %d: %v", ErrFormat, 2+i, err)
		}
		*dst = uint32(v)
	}

	switch parts[5] {
	case "A":
		r.Source = arbiter.SourceA
	case "B":
		r.Source = arbiter.SourceB
	default:
		return Record{}, fmt.Errorf("%w: source %q", ErrFormat, parts[5])
	}

	fault, err := strconv.ParseUint(parts[6], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("%w: fault: %v", ErrFormat, err)
	}
	r.Fault = meter.Fault(fault)
	return r, nil
}

// Dispatch applies a host command to m. It reports whether cmd was known.
func Dispatch(m *meter.Meter, cmd byte) bool {
	switch cmd {
	case CmdToggle:
		m.HandleButton()
	case CmdClearFault:
		m.ClearFault()
	default:
		return false
	}
	return true
}
