//go:build tinygo

package main

import "time"

const (
	// Clock configuration
	CORE_CLOCK_HZ = 48_000_000 // HSI/2 * 12 through the PLL

	// Capture configuration
	CAPTURE_TIMEOUT_TICKS = CORE_CLOCK_HZ // abort an armed session after one second
	BUTTON_HOLDOFF        = 200 * time.Millisecond

	// Busy-wait bounds
	ADC_MAX_POLLS = 10000
	SPI_MAX_POLLS = 10000

	// External interrupt lines, all on port A
	LINE_BUTTON    = 0 // PA0, user button
	LINE_555       = 1 // PA1, 555 timer output
	LINE_GENERATOR = 2 // PA2, function generator output

	// Analog pins on port A
	PIN_DAC     = 4 // PA4, DAC_OUT1
	PIN_ADC     = 5 // PA5, ADC_IN5
	ADC_CHANNEL = 5

	// Display pins on port B. SCK and MOSI run on AF0.
	PIN_SPI_SCK  = 3
	PIN_SPI_MOSI = 5
	PIN_OLED_RES = 4
	PIN_OLED_CS  = 6
	PIN_OLED_DC  = 7

	// Fault LED on port C (blue LED of the discovery board)
	PIN_FAULT_LED = 8

	// Serial configuration, USART1 on PA9/PA10 AF1.
	// Telemetry line: "4294967295999,4095,4294967295,5000,4294967295,B,5\n" is ~50 bytes.
	// At 115200 baud (11,520 bytes/sec) one line every 10 loop iterations keeps
	// the transmit time well below the display refresh time.
	PIN_UART_TX     = 9
	PIN_UART_RX     = 10
	UART_BAUD_RATE  = 115200
	TELEMETRY_EVERY = 10
)
