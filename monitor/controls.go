package main

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/itohio/gofreq/pkg/link"
	"github.com/itohio/gofreq/pkg/meter"
	"github.com/itohio/gofreq/pkg/oled"
)

// mirror redraws the board display from received telemetry.
type mirror struct {
	mu      sync.Mutex
	panel   *oled.Panel
	display *oled.Display
	err     error
}

func newMirror() *mirror {
	panel := oled.NewPanel()
	display := oled.New(oled.Config{
		Port:  panel,
		CS:    panel.CS(),
		DC:    panel.DC(),
		RST:   panel.RST(),
		Sleep: func(_ time.Duration) {},
	})
	m := &mirror{panel: panel, display: display}
	m.err = display.Configure()
	return m
}

// snapshotOf rebuilds the part of the board state carried by a record.
func snapshotOf(raw link.RawSample) meter.Snapshot {
	return meter.Snapshot{
		Frequency: raw.Frequency,
		Derived:   raw.Derived,
		Ticks:     raw.Ticks,
		Source:    raw.Source,
		Fault:     raw.Fault,
	}
}

// render redraws the frame for raw and returns the panel content.
func (m *mirror) render(raw link.RawSample) (*image.Gray, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if err := m.display.Refresh(snapshotOf(raw)); err != nil {
		return nil, err
	}
	return m.panel.Image(), nil
}

// updateStatusFromSample mirrors the board display and updates the status line.
func updateStatusFromSample(state *appState, raw link.RawSample) {
	img, err := state.mirror.render(raw)
	if err != nil {
		log.Printf("Display mirror: %v", err)
	}

	frame := oled.FormatFrame(snapshotOf(raw))
	status := fmt.Sprintf("Source %s  %s  %s  %d ticks", raw.Source, frame[1], frame[0], raw.Ticks)
	if raw.Fault != meter.FaultNone {
		status += "  fault: " + raw.Fault.String()
	}

	fyne.Do(func() {
		if img != nil {
			state.panelView.Update(img)
		}
		state.statusLabel.SetText(status)
	})
}

func handleToggleSource(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	if err := state.device.ToggleSource(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to toggle source: %w", err), state.window)
	}
}

func handleClearFault(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	if err := state.device.ClearFault(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to clear fault: %w", err), state.window)
	}
}
