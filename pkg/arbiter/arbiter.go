// Package arbiter decides which of two external interrupt lines feeds the
// capture engine. A mode button toggles between them.
package arbiter

import "time"

// Line is an external interrupt line number.
type Line uint8

// Source is one of the two measurement inputs.
type Source uint8

const (
	// SourceA is live at boot. Its captures carry no derived value.
	SourceA Source = iota
	// SourceB captures also sample the derived value from the ADC.
	SourceB
)

func (s Source) String() string {
	switch s {
	case SourceA:
		return "A"
	case SourceB:
		return "B"
	default:
		return "?"
	}
}

// Other returns the opposite source.
func (s Source) Other() Source {
	if s == SourceA {
		return SourceB
	}
	return SourceA
}

// LineMask controls interrupt delivery of individual lines.
type LineMask interface {
	Mask(line Line)
	Unmask(line Line)
}

// Config selects the lines and the optional debounce holdoff.
type Config struct {
	LineA Line
	LineB Line
	// Holdoff ignores presses closer than this to the last accepted one.
	// Zero accepts every edge.
	Holdoff time.Duration
	// Now is the clock used for Holdoff. Defaults to time.Now.
	Now func() time.Time
}

// Arbiter is the two-state source selector. Press must run in the button
// handler with the capture handlers unable to preempt it.
type Arbiter struct {
	mask   LineMask
	cfg    Config
	active Source
	last   time.Time
}

// New creates an Arbiter with SourceA live and SourceB masked.
func New(mask LineMask, cfg Config) *Arbiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &Arbiter{
		mask:   mask,
		cfg:    cfg,
		active: SourceA,
	}
	mask.Mask(cfg.LineB)
	mask.Unmask(cfg.LineA)
	return a
}

// Active returns the live source.
func (a *Arbiter) Active() Source {
	return a.active
}

// ActiveLine returns the line of the live source.
func (a *Arbiter) ActiveLine() Line {
	return a.Line(a.active)
}

// Line returns the interrupt line of s.
func (a *Arbiter) Line(s Source) Line {
	if s == SourceB {
		return a.cfg.LineB
	}
	return a.cfg.LineA
}

// Press handles a button edge. It returns the live source and whether the
// press was accepted. The old line is masked before the new one is unmasked.
func (a *Arbiter) Press() (Source, bool) {
	if a.cfg.Holdoff > 0 {
		now := a.cfg.Now()
		if !a.last.IsZero() && now.Sub(a.last) < a.cfg.Holdoff {
			return a.active, false
		}
		a.last = now
	}

	next := a.active.Other()
	a.mask.Mask(a.Line(a.active))
	a.mask.Unmask(a.Line(next))
	a.active = next
	return next, true
}
