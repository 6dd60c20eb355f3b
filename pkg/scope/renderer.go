package scope

import (
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/gofreq/pkg/sample"
)

var (
	colorFrequency  = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	colorResistance = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	colorSwitch     = color.RGBA{R: 0, G: 100, B: 200, A: 255}   // Dark blue
	colorFault      = color.RGBA{R: 220, G: 40, B: 40, A: 255}   // Red
	colorGrid       = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	colorLabel      = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plot maps data coordinates to widget coordinates.
type plot struct {
	x, y, w, h float32
	xMin, xMax time.Time
}

func (p plot) px(t time.Time) float32 {
	span := p.xMax.Sub(p.xMin).Seconds()
	if span <= 0 {
		return p.x
	}
	return p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.w
}

func (p plot) py(v, lo, hi float64) float32 {
	if hi <= lo {
		return p.y + p.h
	}
	return p.y + p.h - float32((v-lo)/(hi-lo))*p.h
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	switches := r.scope.switches
	faults := r.scope.faults
	fMin, fMax, rMax := r.scope.fMin, r.scope.fMax, r.scope.rMax
	xMin, xMax := r.scope.xMin, r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	// Margins leave room for a frequency axis on the left and a
	// resistance axis on the right.
	const (
		marginLeft   = float32(70)
		marginRight  = float32(60)
		marginTop    = float32(20)
		marginBottom = float32(40)
	)
	p := plot{
		x:    marginLeft,
		y:    marginTop,
		w:    size.Width - marginLeft - marginRight,
		h:    size.Height - marginTop - marginBottom,
		xMin: xMin,
		xMax: xMax,
	}

	r.drawGrid(p, fMin, fMax, rMax)
	r.drawMarkers(p, samples, switches, colorSwitch)
	r.drawMarkers(p, samples, faults, colorFault)
	r.drawTrace(p, samples, func(s sample.Sample) float64 { return s.Frequency }, fMin, fMax, colorFrequency, 1.5)
	r.drawTrace(p, samples, func(s sample.Sample) float64 { return float64(s.Resistance) }, 0, rMax, colorResistance, 2.5)
	r.drawLegend(p, samples)
}

func (r *scopeRenderer) line(c color.Color, x1, y1, x2, y2, width float32) {
	l := canvas.NewLine(c)
	l.Position1 = fyne.NewPos(x1, y1)
	l.Position2 = fyne.NewPos(x2, y2)
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

// drawGrid draws the oscilloscope-style grid with both value axes.
func (r *scopeRenderer) drawGrid(p plot, fMin, fMax, rMax float64) {
	const numHLines = 8
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/numHLines
		r.line(colorGrid, p.x, y, p.x+p.w, y, 1)

		f := fMax - float64(i)*(fMax-fMin)/numHLines
		r.text(formatHz(f), colorFrequency, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))

		ohms := rMax - float64(i)*rMax/numHLines
		r.text(formatOhms(ohms), colorResistance, 10, fyne.TextAlignLeading, fyne.NewPos(p.x+p.w+5, y-6))
	}

	const numVLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.line(colorGrid, x, p.y, x, p.y+p.h, 1)

		offset := span * time.Duration(i) / numVLines
		r.text(formatTime(offset), colorLabel, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}
}

// drawTrace draws one value of the samples as connected segments.
func (r *scopeRenderer) drawTrace(p plot, samples []sample.Sample, value func(sample.Sample) float64, lo, hi float64, c color.Color, width float32) {
	if len(samples) < 2 {
		return
	}

	prevX, prevY := p.px(samples[0].Timestamp), p.py(value(samples[0]), lo, hi)
	for _, s := range samples[1:] {
		x, y := p.px(s.Timestamp), p.py(value(s), lo, hi)
		r.line(c, prevX, prevY, x, y, width)
		prevX, prevY = x, y
	}
}

// drawMarkers draws vertical lines at the given sample indices.
func (r *scopeRenderer) drawMarkers(p plot, samples []sample.Sample, indices []int, c color.Color) {
	for _, i := range indices {
		if i < 0 || i >= len(samples) {
			continue
		}
		x := p.px(samples[i].Timestamp)
		r.line(c, x, p.y, x, p.y+p.h, 1)
	}
}

// drawLegend prints the latest reading in the top left corner.
func (r *scopeRenderer) drawLegend(p plot, samples []sample.Sample) {
	if len(samples) == 0 {
		return
	}
	s := samples[len(samples)-1]
	label := "Source " + s.Source.String() + "  " + formatHz(s.Frequency) + "  " + formatOhms(float64(s.Resistance))
	r.text(label, color.RGBA{R: 200, G: 200, B: 200, A: 255}, 11, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+10))
	if s.Fault != 0 {
		r.text("fault: "+s.Fault.String(), colorFault, 11, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+26))
	}
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

// Helper functions for formatting

func formatHz(f float64) string {
	switch {
	case f >= 1e6:
		return strconv.FormatFloat(f/1e6, 'f', 3, 64) + " MHz"
	case f >= 1e3:
		return strconv.FormatFloat(f/1e3, 'f', 3, 64) + " kHz"
	default:
		return strconv.FormatFloat(f, 'f', 1, 64) + " Hz"
	}
}

func formatOhms(r float64) string {
	if r >= 1e3 {
		return strconv.FormatFloat(r/1e3, 'f', 2, 64) + " kΩ"
	}
	return strconv.FormatFloat(r, 'f', 0, 64) + " Ω"
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}
