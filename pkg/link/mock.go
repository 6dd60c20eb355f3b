package link

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/capture"
	"github.com/itohio/gofreq/pkg/config"
	"github.com/itohio/gofreq/pkg/meter"
	"github.com/itohio/gofreq/pkg/oled"
	"github.com/itohio/gofreq/pkg/sampler"
	"github.com/itohio/gofreq/pkg/telemetry"
)

// External lines of the simulated board.
const (
	LineButton    arbiter.Line = 0
	Line555       arbiter.Line = 1
	LineGenerator arbiter.Line = 2
)

// Mock simulates the meter board. It runs the real meter, capture engine,
// arbiter, sampling loop and panel against simulated signal sources, and
// reports through the same telemetry lines the board writes.
type Mock struct {
	cfg *config.Config

	samples   chan RawSample
	mu        sync.RWMutex
	done      chan struct{}
	stopped   chan struct{}
	connected bool

	counter *simCounter
	exti    *simEXTI
	adc     *simADC
	dac     *simDAC
	meter   *meter.Meter
	panel   *oled.Panel
	bus     *simSPI
	loop    *sampler.Loop

	startTime time.Time
	rng       *rand.Rand
	pipe      *io.PipeWriter
}

// NewMock creates a new simulated board. A nil cfg uses config.Default().
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Mock{
		cfg:     cfg,
		samples: make(chan RawSample, DefaultBufferSize),
	}
}

// Connect powers up the simulated board.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.counter = &simCounter{}
	m.exti = &simEXTI{}
	m.adc = &simADC{}
	m.dac = &simDAC{}
	m.rng = rand.New(rand.NewSource(1))

	engine := capture.New(m.counter, capture.Config{
		ClockHz: m.cfg.Capture.CoreClockHz,
		Timeout: m.cfg.Capture.TimeoutTicks,
	})
	arb := arbiter.New(m.exti, arbiter.Config{
		LineA:   LineGenerator,
		LineB:   Line555,
		Holdoff: m.cfg.Arbiter.Holdoff,
	})
	m.exti.Unmask(LineButton)
	m.meter = meter.New(engine, arb, nil)

	m.panel = oled.NewPanel()
	m.bus = &simSPI{panel: m.panel}
	display := oled.New(oled.Config{
		Port: &oled.SPIPort{
			Bus:      m.bus,
			Status:   m.bus,
			MaxPolls: m.cfg.Sampler.BusMaxPolls,
		},
		CS:    m.panel.CS(),
		DC:    m.panel.DC(),
		RST:   m.panel.RST(),
		Sleep: func(time.Duration) {},
	})
	if err := display.Configure(); err != nil {
		return fmt.Errorf("failed to configure display: %w", err)
	}

	m.startTime = time.Now()
	r, w := io.Pipe()
	m.pipe = w
	reporter := telemetry.NewReporter(w, m.cfg.Sampler.TelemetryEvery, func() uint64 {
		return uint64(time.Since(m.startTime).Microseconds())
	})
	m.loop = sampler.New(m.meter, m.adc, m.dac, display, sampler.Config{
		MaxPolls: m.cfg.Sampler.ADCMaxPolls,
		Observer: func(it sampler.Iteration) {
			m.simulateEdges()
			reporter.Observe(it)
		},
	})

	m.samples = make(chan RawSample, DefaultBufferSize)
	m.done = make(chan struct{})
	m.stopped = make(chan struct{})
	m.connected = true

	go m.readLines(r)
	go m.run()

	return nil
}

// Close stops the simulated board.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.connected = false
	close(m.done)
	m.mu.Unlock()

	<-m.stopped
	m.pipe.Close()

	m.mu.Lock()
	close(m.samples)
	m.mu.Unlock()
	return nil
}

// Samples returns the channel for reading samples.
// Each Connect opens a new channel.
func (m *Mock) Samples() <-chan RawSample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}

// ToggleSource presses the mode button.
func (m *Mock) ToggleSource() error {
	return m.command(telemetry.CmdToggle)
}

// ClearFault clears the latched fault.
func (m *Mock) ClearFault() error {
	return m.command(telemetry.CmdClearFault)
}

func (m *Mock) command(cmd byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}
	// The toggle command stands in for the button and obeys its line mask
	if cmd == telemetry.CmdToggle && !m.exti.enabled(LineButton) {
		return nil
	}
	telemetry.Dispatch(m.meter, cmd)
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Panel returns the emulated display of the board. It is nil before Connect.
func (m *Mock) Panel() *oled.Panel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.panel
}

// Snapshot returns the measurement state of the board.
func (m *Mock) Snapshot() meter.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.meter == nil {
		return meter.Snapshot{}
	}
	return m.meter.Snapshot()
}

func (m *Mock) run() {
	defer close(m.stopped)

	ticker := time.NewTicker(m.cfg.Mock.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweepADC()
			_ = m.loop.Step()
		}
	}
}

// sweepADC moves the potentiometer along a triangle over Mock.ADCPeriod.
func (m *Mock) sweepADC() {
	phase := 0.25 // mid scale
	if m.cfg.Mock.ADCPeriod > 0 {
		phase = time.Since(m.startTime).Seconds() / m.cfg.Mock.ADCPeriod.Seconds()
	}
	m.adc.value.Store(uint32(triangle(phase, meter.FullScaleCount) + 0.5))
}

// simulateEdges delivers one period of every unmasked capture line.
func (m *Mock) simulateEdges() {
	for _, line := range []arbiter.Line{LineGenerator, Line555} {
		if !m.exti.enabled(line) {
			continue
		}
		m.meter.HandleEdge(line)
		m.counter.advance(m.periodTicks(line))
		m.meter.HandleEdge(line)
	}
}

// periodTicks returns the period of line in counter ticks. The 555 timer
// runs at Mock.FrequencyB with the potentiometer at mid scale and slows
// down as its resistance grows.
func (m *Mock) periodTicks(line arbiter.Line) float64 {
	f := m.cfg.Mock.FrequencyA
	if line == Line555 {
		pos := float64(m.adc.Value()) / meter.FullScaleCount
		f = m.cfg.Mock.FrequencyB * 2 / (1 + 2*pos)
	}
	if f <= 0 {
		return 0
	}
	ticks := float64(m.cfg.Capture.CoreClockHz) / f
	if m.cfg.Mock.Noise > 0 {
		ticks *= 1 + m.cfg.Mock.Noise*(2*m.rng.Float64()-1)
	}
	return ticks
}

// readLines parses the telemetry stream written by the loop.
func (m *Mock) readLines(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		sample, err := parseLine(scanner.Text(), time.Now())
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", scanner.Text(), err)
			continue
		}

		m.mu.RLock()
		if !m.connected {
			m.mu.RUnlock()
			continue
		}
		select {
		case m.samples <- sample:
		default:
			// Channel full, skip
		}
		m.mu.RUnlock()
	}
}
