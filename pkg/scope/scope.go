package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gofreq/pkg/config"
	"github.com/itohio/gofreq/pkg/meter"
	"github.com/itohio/gofreq/pkg/sample"
)

// ScopeWidget is a custom Fyne widget that plots frequency and resistance history.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu      sync.RWMutex
	samples []sample.Sample

	// Display buffers (reused for downsampling)
	displaySamples []sample.Sample
	switches       []int // indices into displaySamples where the source changed
	faults         []int // indices into displaySamples carrying a new fault

	// Auto-scaling
	fMin, fMax float64 // frequency axis (Hz)
	rMax       float64 // resistance axis (ohms), starts at zero
	xMin, xMax time.Time

	// Display settings
	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		displaySamples:   make([]sample.Sample, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	s.ExtendBaseWidget(s)
	s.updateAutoScale()
	s.Refresh()
	return s
}

// UpdateData updates the widget with new history.
// This should be called from the UI goroutine using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample) {
	s.mu.Lock()

	s.displaySamples = sample.DownsampleSamples(s.displaySamples, samples, s.maxDisplayPoints)
	s.samples = samples
	s.switches = sourceSwitches(s.switches[:0], s.displaySamples)
	s.faults = faultOnsets(s.faults[:0], s.displaySamples)
	s.updateAutoScale()

	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// Latest returns the most recent sample and whether there is one.
func (s *ScopeWidget) Latest() (sample.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.samples) == 0 {
		return sample.Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// updateAutoScale calculates axis ranges from current data.
func (s *ScopeWidget) updateAutoScale() {
	window := time.Duration(s.cfg.Measurement.WindowSeconds * float64(time.Second))
	s.fMin, s.fMax, s.rMax = autoScale(s.displaySamples)

	if len(s.displaySamples) == 0 {
		s.xMin = time.Now()
		s.xMax = s.xMin.Add(window)
		return
	}

	s.xMin = s.displaySamples[0].Timestamp
	s.xMax = s.displaySamples[len(s.displaySamples)-1].Timestamp
	// Ensure minimum window
	if s.xMax.Sub(s.xMin) < window {
		s.xMax = s.xMin.Add(window)
	}
}

// autoScale returns the frequency range with a 10% margin and the top of the
// resistance axis.
func autoScale(samples []sample.Sample) (fMin, fMax, rMax float64) {
	if len(samples) == 0 {
		return 0, 1, float64(meter.ScaleFactor)
	}

	fMin, fMax = samples[0].Frequency, samples[0].Frequency
	for _, s := range samples {
		fMin = min(fMin, s.Frequency)
		fMax = max(fMax, s.Frequency)
		rMax = max(rMax, float64(s.Resistance))
	}

	span := fMax - fMin
	if span == 0 {
		span = max(fMax, 1)
	}
	margin := span * 0.1
	fMin = max(fMin-margin, 0)
	fMax += margin

	if rMax == 0 {
		rMax = float64(meter.ScaleFactor)
	}
	return fMin, fMax, rMax * 1.1
}

// sourceSwitches appends the indices where the source differs from the
// previous sample.
func sourceSwitches(dst []int, samples []sample.Sample) []int {
	for i := 1; i < len(samples); i++ {
		if samples[i].Source != samples[i-1].Source {
			dst = append(dst, i)
		}
	}
	return dst
}

// faultOnsets appends the indices where a fault is latched that the
// previous sample did not carry.
func faultOnsets(dst []int, samples []sample.Sample) []int {
	for i, s := range samples {
		if s.Fault == meter.FaultNone {
			continue
		}
		if i == 0 || samples[i-1].Fault != s.Fault {
			dst = append(dst, i)
		}
	}
	return dst
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
