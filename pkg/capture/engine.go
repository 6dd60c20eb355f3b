package capture

// Config parameterizes an Engine.
type Config struct {
	// ClockHz is the counter tick rate, normally the core clock.
	ClockHz uint32
	// Timeout is the number of ticks an armed session may run before Expire
	// aborts it. Zero disables the timeout; counter overflow still expires.
	Timeout uint32
}

// Engine is the two-state capture machine. Edge must only be called from the
// handler of the active capture line; Expire and Abort must be called with
// that handler masked.
type Engine struct {
	counter Counter
	cfg     Config
	phase   Phase
}

// New creates an Engine waiting for its first edge. The counter is stopped.
func New(counter Counter, cfg Config) *Engine {
	counter.Stop()
	return &Engine{
		counter: counter,
		cfg:     cfg,
		phase:   WaitingForFirstEdge,
	}
}

// Phase returns the current state.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Edge advances the machine on a detected edge. done is true when a
// measurement completed. A degenerate interval returns an error and the
// session is discarded; the next edge arms a new one.
func (e *Engine) Edge() (res Result, done bool, err error) {
	switch e.phase {
	case WaitingForFirstEdge:
		e.counter.Reset()
		e.counter.Start()
		e.phase = WaitingForSecondEdge
		return Result{}, false, nil

	case WaitingForSecondEdge:
		e.counter.Stop()
		e.phase = WaitingForFirstEdge

		if e.counter.Overflowed() {
			return Result{}, false, ErrOverflow
		}
		ticks := e.counter.Count()
		freq, err := Frequency(e.cfg.ClockHz, ticks)
		if err != nil {
			return Result{}, false, err
		}
		return Result{
			Ticks:     ticks,
			Frequency: freq,
			Period:    PeriodNanos(e.cfg.ClockHz, ticks),
		}, true, nil
	}

	e.Abort()
	return Result{}, false, nil
}

// Expire aborts an armed session that ran past the timeout or overflowed
// and returns ErrStale. It is a no-op otherwise.
func (e *Engine) Expire() error {
	if e.phase != WaitingForSecondEdge {
		return nil
	}
	stale := e.counter.Overflowed()
	if !stale && e.cfg.Timeout > 0 && e.counter.Count() >= e.cfg.Timeout {
		stale = true
	}
	if !stale {
		return nil
	}
	e.Abort()
	return ErrStale
}

// Abort stops the counter and drops any armed session.
func (e *Engine) Abort() {
	e.counter.Stop()
	e.phase = WaitingForFirstEdge
}
