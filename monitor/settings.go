package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gofreq/pkg/link"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createBoardTab(state),
		createMeasurementTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := link.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.Baud))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			selectedPort := state.cfg.Serial.Port
			if portSelect.Selected != "" {
				selectedPort = portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
			}
			baud := state.cfg.Serial.Baud
			if b, err := strconv.Atoi(baudEntry.Text); err == nil && b > 0 {
				baud = b
			}

			changed := state.cfg.Serial.Port != selectedPort || state.cfg.Serial.Baud != baud
			wasConnected := state.device != nil && state.device.IsConnected()

			state.cfg.Serial.Port = selectedPort
			state.cfg.Serial.Baud = baud
			saveConfig(state)

			// Reopen the link with the new parameters
			if changed && wasConnected && !state.useMock {
				disconnect(state)
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createBoardTab creates the tab describing the board: counter clock,
// capture timeout, source switch holdoff and loop bounds.
func createBoardTab(state *appState) *container.TabItem {
	clockEntry := widget.NewEntry()
	clockEntry.SetText(strconv.FormatUint(uint64(state.cfg.Capture.CoreClockHz), 10))

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(strconv.FormatUint(uint64(state.cfg.Capture.TimeoutTicks), 10))

	holdoffEntry := widget.NewEntry()
	holdoffEntry.SetText(state.cfg.Arbiter.Holdoff.String())

	adcPollsEntry := widget.NewEntry()
	adcPollsEntry.SetText(strconv.Itoa(state.cfg.Sampler.ADCMaxPolls))

	busPollsEntry := widget.NewEntry()
	busPollsEntry.SetText(strconv.Itoa(state.cfg.Sampler.BusMaxPolls))

	telemetryEntry := widget.NewEntry()
	telemetryEntry.SetText(strconv.FormatUint(uint64(state.cfg.Sampler.TelemetryEvery), 10))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Counter Clock (Hz)", Widget: clockEntry},
			{Text: "Capture Timeout (ticks, 0=overflow)", Widget: timeoutEntry},
			{Text: "Button Holdoff", Widget: holdoffEntry},
			{Text: "ADC Max Polls", Widget: adcPollsEntry},
			{Text: "Bus Max Polls", Widget: busPollsEntry},
			{Text: "Telemetry Every (iterations)", Widget: telemetryEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseUint(clockEntry.Text, 10, 32); err == nil && v > 0 {
				state.cfg.Capture.CoreClockHz = uint32(v)
			}
			if v, err := strconv.ParseUint(timeoutEntry.Text, 10, 32); err == nil {
				state.cfg.Capture.TimeoutTicks = uint32(v)
			}
			if d, err := time.ParseDuration(holdoffEntry.Text); err == nil && d >= 0 {
				state.cfg.Arbiter.Holdoff = d
			}
			if v, err := strconv.Atoi(adcPollsEntry.Text); err == nil && v > 0 {
				state.cfg.Sampler.ADCMaxPolls = v
			}
			if v, err := strconv.Atoi(busPollsEntry.Text); err == nil && v > 0 {
				state.cfg.Sampler.BusMaxPolls = v
			}
			if v, err := strconv.ParseUint(telemetryEntry.Text, 10, 32); err == nil && v > 0 {
				state.cfg.Sampler.TelemetryEvery = uint32(v)
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Board", form)
}

// createMeasurementTab creates the Measurement configuration tab.
func createMeasurementTab(state *appState) *container.TabItem {
	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Measurement.WindowSeconds))

	averageSamplesEntry := widget.NewEntry()
	averageSamplesEntry.SetText(fmt.Sprintf("%d", state.cfg.Measurement.AverageSamples))

	vrefEntry := widget.NewEntry()
	vrefEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Measurement.VRef))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowSecondsEntry},
			{Text: "Average Samples (0=disabled)", Widget: averageSamplesEntry},
			{Text: "VRef (V)", Widget: vrefEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowSecondsEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Measurement.WindowSeconds = ws
				state.history.SetWindow(windowDuration(state.cfg))
			}
			if avg, err := strconv.Atoi(averageSamplesEntry.Text); err == nil && avg >= 0 {
				state.cfg.Measurement.AverageSamples = avg
			}
			if vref, err := strconv.ParseFloat(vrefEntry.Text, 64); err == nil && vref > 0 {
				state.cfg.Measurement.VRef = vref
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Measurement", form)
}

// createMockTab creates the simulated board configuration tab.
func createMockTab(state *appState) *container.TabItem {
	freqAEntry := widget.NewEntry()
	freqAEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.FrequencyA))

	freqBEntry := widget.NewEntry()
	freqBEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.FrequencyB))

	adcPeriodEntry := widget.NewEntry()
	adcPeriodEntry.SetText(state.cfg.Mock.ADCPeriod.String())

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(state.cfg.Mock.SampleRate.String())

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Mock.Noise))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Generator Frequency (Hz)", Widget: freqAEntry},
			{Text: "555 Frequency at mid scale (Hz)", Widget: freqBEntry},
			{Text: "Potentiometer Sweep (0=fixed)", Widget: adcPeriodEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
			{Text: "Period Jitter (0..1)", Widget: noiseEntry},
		},
		OnSubmit: func() {
			if f, err := strconv.ParseFloat(freqAEntry.Text, 64); err == nil && f > 0 {
				state.cfg.Mock.FrequencyA = f
			}
			if f, err := strconv.ParseFloat(freqBEntry.Text, 64); err == nil && f > 0 {
				state.cfg.Mock.FrequencyB = f
			}
			if d, err := time.ParseDuration(adcPeriodEntry.Text); err == nil && d >= 0 {
				state.cfg.Mock.ADCPeriod = d
			}
			if d, err := time.ParseDuration(sampleRateEntry.Text); err == nil && d > 0 {
				state.cfg.Mock.SampleRate = d
			}
			if n, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil && n >= 0 && n <= 1 {
				state.cfg.Mock.Noise = n
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
