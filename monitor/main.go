package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gofreq/pkg/config"
	"github.com/itohio/gofreq/pkg/link"
	"github.com/itohio/gofreq/pkg/sample"
	"github.com/itohio/gofreq/pkg/scope"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use simulated board instead of serial port")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Measurement.AverageSamples = *averageSamplesFlag
	}

	application := app.NewWithID("com.itohio.gofreq")

	window := application.NewWindow("Frequency Meter")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		history:    sample.NewHistory(windowDuration(cfg)),
		mirror:     newMirror(),
		window:     window,
		useMock:    *mockFlag,
	}

	toolbar := createToolbar(state)

	state.scopeWidget = scope.New(cfg)
	state.panelView = scope.NewPanelView(2)
	state.statusLabel = widget.NewLabel("Disconnected")

	side := container.NewVBox(
		widget.NewLabelWithStyle("Board display", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		state.panelView,
		state.statusLabel,
	)

	window.SetContent(container.NewBorder(toolbar, nil, nil, side, state.scopeWidget))
	window.SetOnClosed(func() {
		closeMeasurementChain(state.chain)
	})
	window.ShowAndRun()
}

func windowDuration(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second))
}

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device        link.Device
	statusDone    chan struct{} // Closed when the status goroutine exits
	historyDone   chan struct{} // Closed when the history goroutine exits
	samplesStream <-chan sample.Sample
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	device      link.Device
	history     *sample.History
	mirror      *mirror
	scopeWidget *scope.ScopeWidget
	panelView   *scope.PanelView
	statusLabel *widget.Label
	window      fyne.Window
	connectBtn  *widget.Button
	toggleBtn   *widget.Button
	clearBtn    *widget.Button
	useMock     bool
	chain       *measurementChain // Current measurement chain (nil if not connected)

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the application toolbar with Connect, Settings, Toggle source and Clear fault buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	toggleBtn := widget.NewButtonWithIcon("Source", theme.ViewRefreshIcon(), func() {
		handleToggleSource(state)
	})
	toggleBtn.Disable()
	state.toggleBtn = toggleBtn

	clearBtn := widget.NewButtonWithIcon("Fault", theme.ContentClearIcon(), func() {
		handleClearFault(state)
	})
	clearBtn.Disable()
	state.clearBtn = clearBtn

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn), // left
		container.NewHBox(toggleBtn, clearBtn),     // right
		nil,                                        // center (spacer)
	)
}

// closeMeasurementChain gracefully closes the measurement chain.
// Waits for all goroutines to finish and channels to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	// Close device - this will close the raw samples channel
	if chain.device != nil {
		if err := chain.device.Close(); err != nil {
			log.Printf("Error closing device: %v", err)
		}
	}

	if chain.statusDone != nil {
		<-chain.statusDone
	}
	// The history goroutine exits when the converters finish draining
	if chain.historyDone != nil {
		<-chain.historyDone
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		disconnect(state)
		return
	}

	var device link.Device
	if state.useMock {
		device = link.NewMock(state.cfg)
		log.Printf("Using simulated board")
	} else {
		device = link.New(state.cfg.Serial.Port, state.cfg.Serial.Baud, link.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to start simulated board: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	state.device = device
	if !state.useMock {
		log.Printf("Connected to serial port: %s", state.cfg.Serial.Port)
	}

	state.toggleBtn.Enable()
	state.clearBtn.Enable()

	state.history.Reset()
	state.history.OnUpdate(func(samples []sample.Sample) {
		// Throttle updates to ~60 FPS
		const updateInterval = 16 * time.Millisecond
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples)
		})
	})

	// One branch mirrors the board display, the other feeds the converters.
	rawForStatus, rawForConverter := teeChannel(device.Samples())

	statusDone := make(chan struct{})
	historyDone := make(chan struct{})

	go func() {
		defer close(statusDone)
		for raw := range rawForStatus {
			updateStatusFromSample(state, raw)
		}
	}()

	// Base converter always used, averaging converter when enabled
	baseStream := sample.NewConverter(state.cfg, 500)(rawForConverter)

	var samplesStream <-chan sample.Sample
	if state.cfg.Measurement.AverageSamples > 0 {
		samplesStream = sample.NewAveragingConverterForSamples(state.cfg.Measurement.AverageSamples, 500)(baseStream)
	} else {
		samplesStream = baseStream
	}

	go func() {
		defer close(historyDone)
		state.history.Process(samplesStream)
	}()

	state.chain = &measurementChain{
		device:        device,
		statusDone:    statusDone,
		historyDone:   historyDone,
		samplesStream: samplesStream,
	}
}

func disconnect(state *appState) {
	closeMeasurementChain(state.chain)
	state.chain = nil
	state.device = nil
	state.history = sample.NewHistory(windowDuration(state.cfg))
	state.toggleBtn.Disable()
	state.clearBtn.Disable()
	state.statusLabel.SetText("Disconnected")
	log.Printf("Disconnected")
}

// teeChannel copies every value of in to both returned channels. Both
// outputs are closed when in is closed.
func teeChannel(in <-chan link.RawSample) (<-chan link.RawSample, <-chan link.RawSample) {
	a := make(chan link.RawSample, 100)
	b := make(chan link.RawSample, 100)

	go func() {
		defer close(a)
		defer close(b)
		for s := range in {
			select {
			case a <- s:
			default:
				// Status branch is best effort
			}
			b <- s
		}
	}()

	return a, b
}
