package meter

import (
	"runtime"
	"sync/atomic"

	"github.com/itohio/gofreq/pkg/arbiter"
)

// Snapshot is a consistent copy of the measurement state.
type Snapshot struct {
	Frequency uint32         // Hz
	Derived   uint32         // derived value (ohms) of the last capture
	Ticks     uint32         // elapsed ticks of the last capture
	Source    arbiter.Source // live source
	Fault     Fault          // latched fault, FaultNone if healthy
	Captures  uint32         // completed captures since boot
	Discarded uint32         // discarded or expired sessions since boot
	Switches  uint32         // accepted source switches since boot
}

// State is the shared measurement record. Writers run one at a time (from
// interrupt context on the board) and bracket their stores with the sequence
// counter. Readers retry until they observe an unchanged even sequence, so a
// half-written update is never returned.
type State struct {
	seq atomic.Uint32

	frequency atomic.Uint32
	derived   atomic.Uint32
	ticks     atomic.Uint32
	source    atomic.Uint32
	fault     atomic.Uint32
	captures  atomic.Uint32
	discarded atomic.Uint32
	switches  atomic.Uint32
}

func (s *State) begin() { s.seq.Add(1) }
func (s *State) end()   { s.seq.Add(1) }

// Snapshot returns a consistent copy.
func (s *State) Snapshot() Snapshot {
	for {
		v := s.seq.Load()
		if v&1 != 0 {
			runtime.Gosched()
			continue
		}
		snap := Snapshot{
			Frequency: s.frequency.Load(),
			Derived:   s.derived.Load(),
			Ticks:     s.ticks.Load(),
			Source:    arbiter.Source(s.source.Load()),
			Fault:     Fault(s.fault.Load()),
			Captures:  s.captures.Load(),
			Discarded: s.discarded.Load(),
			Switches:  s.switches.Load(),
		}
		if s.seq.Load() == v {
			return snap
		}
	}
}

func (s *State) publish(frequency, derived, ticks uint32) {
	s.begin()
	s.frequency.Store(frequency)
	s.derived.Store(derived)
	s.ticks.Store(ticks)
	s.captures.Add(1)
	s.end()
}

func (s *State) discard(f Fault) {
	s.begin()
	s.discarded.Add(1)
	s.fault.Store(uint32(f))
	s.end()
}

func (s *State) setSource(src arbiter.Source) {
	s.begin()
	s.source.Store(uint32(src))
	s.switches.Add(1)
	s.end()
}

func (s *State) setFault(f Fault) {
	s.begin()
	s.fault.Store(uint32(f))
	s.end()
}
