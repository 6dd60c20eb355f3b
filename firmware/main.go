//go:build tinygo

package main

import (
	"device/stm32"
	"runtime/interrupt"

	"github.com/itohio/gofreq/pkg/arbiter"
	"github.com/itohio/gofreq/pkg/capture"
	"github.com/itohio/gofreq/pkg/meter"
	"github.com/itohio/gofreq/pkg/oled"
	"github.com/itohio/gofreq/pkg/sampler"
	"github.com/itohio/gofreq/pkg/telemetry"
)

var (
	freq      *meter.Meter
	faultLED  gpioPin
	lastFault meter.Fault
	serial    uart
)

func main() {
	initClock()
	enablePeripherals()
	initMicros()

	serial = initUART()
	println("gofreq: core clock", CORE_CLOCK_HZ, "Hz")

	faultLED = newOutput(stm32.GPIOC, PIN_FAULT_LED)
	faultLED.Low()

	engine := capture.New(initStopwatch(), capture.Config{
		ClockHz: CORE_CLOCK_HZ,
		Timeout: CAPTURE_TIMEOUT_TICKS,
	})
	mask := initEXTI()
	arb := arbiter.New(mask, arbiter.Config{
		LineA:   LINE_GENERATOR,
		LineB:   LINE_555,
		Holdoff: BUTTON_HOLDOFF,
		Now:     now,
	})
	freq = meter.New(engine, arb, &irqLock{})

	display := oled.New(oled.Config{
		Port: &oled.SPIPort{
			Bus:      initSPI(),
			Status:   spiStatus{},
			MaxPolls: SPI_MAX_POLLS,
		},
		CS:    newOutput(stm32.GPIOB, PIN_OLED_CS),
		DC:    newOutput(stm32.GPIOB, PIN_OLED_DC),
		RST:   newOutput(stm32.GPIOB, PIN_OLED_RES),
		Sleep: sleep,
	})
	if err := display.Configure(); err != nil {
		println("gofreq: display:", err.Error())
		freq.ReportFault(err)
	}

	reporter := telemetry.NewReporter(serial, TELEMETRY_EVERY, micros)
	loop := sampler.New(freq, initADC(), initDAC(), display, sampler.Config{
		MaxPolls: ADC_MAX_POLLS,
		Observer: reporter.Observe,
	})

	// The button must not be preempted by the capture lines.
	irqButton := interrupt.New(stm32.IRQ_EXTI0_1, handleEXTI0_1)
	irqButton.SetPriority(0x00)
	irqButton.Enable()
	irqCapture := interrupt.New(stm32.IRQ_EXTI2_3, handleEXTI2_3)
	irqCapture.SetPriority(0x40)
	irqCapture.Enable()
	mask.Unmask(LINE_BUTTON)

	println("gofreq: measuring source", freq.Source().String())

	for {
		processSerial()
		loop.Step()
		updateFault(freq.Snapshot().Fault)
	}
}

// handleEXTI0_1 serves the button and the 555 line, which share a vector.
func handleEXTI0_1(interrupt.Interrupt) {
	if pending(LINE_BUTTON) {
		freq.HandleButton()
	}
	if pending(LINE_555) {
		freq.HandleEdge(LINE_555)
	}
}

func handleEXTI2_3(interrupt.Interrupt) {
	if pending(LINE_GENERATOR) {
		freq.HandleEdge(LINE_GENERATOR)
	}
}

// processSerial applies every host command received since the last call.
func processSerial() {
	for {
		b, ok := serial.readByte()
		if !ok {
			return
		}
		if b == '\n' || b == '\r' {
			continue
		}
		if !telemetry.Dispatch(freq, b) {
			println("gofreq: unknown command", b)
		}
	}
}

func updateFault(f meter.Fault) {
	faultLED.Set(f != meter.FaultNone)
	if f == lastFault {
		return
	}
	lastFault = f
	if f != meter.FaultNone {
		println("gofreq: fault", f.String())
	} else {
		println("gofreq: fault cleared")
	}
}
