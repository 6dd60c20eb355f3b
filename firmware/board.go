//go:build tinygo

package main

import (
	"device/stm32"
	"errors"
	"runtime/interrupt"
	"runtime/volatile"
	"time"
	"unsafe"

	"github.com/itohio/gofreq/pkg/arbiter"
)

var errSPITimeout = errors.New("spi: transmit buffer stuck full")

// initClock switches SYSCLK to the PLL running from HSI/2 * 12.
func initClock() {
	stm32.FLASH.ACR.Set(stm32.FLASH_ACR_PRFTBE | 1<<stm32.FLASH_ACR_LATENCY_Pos)

	stm32.RCC.CR.ClearBits(stm32.RCC_CR_PLLON)
	for stm32.RCC.CR.HasBits(stm32.RCC_CR_PLLRDY) {
	}

	stm32.RCC.CFGR.ClearBits(stm32.RCC_CFGR_PLLMUL_Msk | stm32.RCC_CFGR_PLLSRC_Msk)
	stm32.RCC.CFGR.SetBits(10 << stm32.RCC_CFGR_PLLMUL_Pos) // x12

	stm32.RCC.CR.SetBits(stm32.RCC_CR_PLLON)
	for !stm32.RCC.CR.HasBits(stm32.RCC_CR_PLLRDY) {
	}

	stm32.RCC.CFGR.ReplaceBits(stm32.RCC_CFGR_SW_PLL, stm32.RCC_CFGR_SW_Msk, 0)
	for stm32.RCC.CFGR.Get()&stm32.RCC_CFGR_SWS_Msk != stm32.RCC_CFGR_SWS_PLL<<stm32.RCC_CFGR_SWS_Pos {
	}
}

// enablePeripherals turns on the clocks of everything the board touches.
func enablePeripherals() {
	stm32.RCC.AHBENR.SetBits(stm32.RCC_AHBENR_IOPAEN | stm32.RCC_AHBENR_IOPBEN | stm32.RCC_AHBENR_IOPCEN)
	stm32.RCC.APB1ENR.SetBits(stm32.RCC_APB1ENR_TIM2EN | stm32.RCC_APB1ENR_TIM3EN | stm32.RCC_APB1ENR_DACEN)
	stm32.RCC.APB2ENR.SetBits(stm32.RCC_APB2ENR_SYSCFGEN | stm32.RCC_APB2ENR_ADCEN |
		stm32.RCC_APB2ENR_SPI1EN | stm32.RCC_APB2ENR_USART1EN)
}

// -- GPIO ---------------------------------------------------------------------

const (
	modeInput     = 0b00
	modeOutput    = 0b01
	modeAlternate = 0b10
	modeAnalog    = 0b11
)

func setMode(port *stm32.GPIO_Type, pin uint8, mode uint32) {
	port.MODER.ReplaceBits(mode, 0b11, pin*2)
	port.PUPDR.ReplaceBits(0, 0b11, pin*2)
}

func setAlternate(port *stm32.GPIO_Type, pin uint8, af uint32) {
	setMode(port, pin, modeAlternate)
	if pin < 8 {
		port.AFRL.ReplaceBits(af, 0xF, pin*4)
	} else {
		port.AFRH.ReplaceBits(af, 0xF, (pin-8)*4)
	}
}

// gpioPin is a push-pull output.
type gpioPin struct {
	port *stm32.GPIO_Type
	pin  uint8
}

func newOutput(port *stm32.GPIO_Type, pin uint8) gpioPin {
	setMode(port, pin, modeOutput)
	return gpioPin{port: port, pin: pin}
}

func (p gpioPin) High() { p.port.BSRR.Set(1 << p.pin) }
func (p gpioPin) Low()  { p.port.BSRR.Set(1 << (p.pin + 16)) }

func (p gpioPin) Set(on bool) {
	if on {
		p.High()
	} else {
		p.Low()
	}
}

// -- TIM2 stopwatch -----------------------------------------------------------

// stopwatch is TIM2 counting core clock ticks. It runs in one pulse mode so
// it stops at overflow with the update flag set.
type stopwatch struct{}

func initStopwatch() stopwatch {
	stm32.TIM2.CR1.Set(stm32.TIM_CR1_ARPE | stm32.TIM_CR1_OPM | stm32.TIM_CR1_URS)
	stm32.TIM2.PSC.Set(0)
	stm32.TIM2.ARR.Set(0xFFFFFFFF)
	stm32.TIM2.EGR.Set(stm32.TIM_EGR_UG)
	return stopwatch{}
}

func (stopwatch) Reset() {
	stm32.TIM2.CNT.Set(0)
	stm32.TIM2.SR.ClearBits(stm32.TIM_SR_UIF)
}

func (stopwatch) Start()           { stm32.TIM2.CR1.SetBits(stm32.TIM_CR1_CEN) }
func (stopwatch) Stop()            { stm32.TIM2.CR1.ClearBits(stm32.TIM_CR1_CEN) }
func (stopwatch) Count() uint32    { return stm32.TIM2.CNT.Get() }
func (stopwatch) Overflowed() bool { return stm32.TIM2.SR.HasBits(stm32.TIM_SR_UIF) }

// -- TIM3 microsecond clock ---------------------------------------------------

var (
	clockHigh uint64
	clockLast uint32
)

func initMicros() {
	stm32.TIM3.PSC.Set(CORE_CLOCK_HZ/1_000_000 - 1)
	stm32.TIM3.ARR.Set(0xFFFF)
	stm32.TIM3.EGR.Set(stm32.TIM_EGR_UG)
	stm32.TIM3.CR1.SetBits(stm32.TIM_CR1_CEN)
}

// micros extends the 16 bit TIM3 count. It must be called at least once per
// wrap, which the main loop does.
func micros() uint64 {
	state := interrupt.Disable()
	now := stm32.TIM3.CNT.Get() & 0xFFFF
	if now < clockLast {
		clockHigh += 0x10000
	}
	clockLast = now
	t := clockHigh + uint64(now)
	interrupt.Restore(state)
	return t
}

func sleep(d time.Duration) {
	start := micros()
	for micros()-start < uint64(d/time.Microsecond) {
	}
}

func now() time.Time {
	return time.Time{}.Add(time.Duration(micros()) * time.Microsecond)
}

// -- EXTI ---------------------------------------------------------------------

// extiMask gates the external interrupt lines.
type extiMask struct{}

func initEXTI() extiMask {
	stm32.SYSCFG.EXTICR1.Set(0) // lines 0..3 on port A
	for _, line := range []uint8{LINE_BUTTON, LINE_555, LINE_GENERATOR} {
		setMode(stm32.GPIOA, line, modeInput)
		stm32.EXTI.RTSR.SetBits(1 << line)
	}
	stm32.EXTI.IMR.ClearBits(1<<LINE_BUTTON | 1<<LINE_555 | 1<<LINE_GENERATOR)
	return extiMask{}
}

func (extiMask) Mask(l arbiter.Line) {
	stm32.EXTI.IMR.ClearBits(1 << l)
}

// Unmask drops an edge latched while the line was masked before enabling it.
func (extiMask) Unmask(l arbiter.Line) {
	stm32.EXTI.PR.Set(1 << l)
	stm32.EXTI.IMR.SetBits(1 << l)
}

// pending acknowledges line and reports whether it was pending.
func pending(l arbiter.Line) bool {
	if !stm32.EXTI.PR.HasBits(1 << l) {
		return false
	}
	stm32.EXTI.PR.Set(1 << l)
	return true
}

// -- ADC and DAC --------------------------------------------------------------

type adc struct{}

// initADC configures single 12 bit right aligned conversions of ADC_CHANNEL.
func initADC() adc {
	setMode(stm32.GPIOA, PIN_ADC, modeAnalog)
	stm32.ADC.CFGR1.Set(stm32.ADC_CFGR1_OVRMOD)
	stm32.ADC.CHSELR.Set(1 << ADC_CHANNEL)
	stm32.ADC.SMPR.Set(0b111)
	stm32.ADC.CR.SetBits(stm32.ADC_CR_ADEN)
	for range ADC_MAX_POLLS {
		if stm32.ADC.ISR.HasBits(stm32.ADC_ISR_ADRDY) {
			break
		}
	}
	return adc{}
}

func (adc) StartConversion() { stm32.ADC.CR.SetBits(stm32.ADC_CR_ADSTART) }
func (adc) Done() bool       { return stm32.ADC.ISR.HasBits(stm32.ADC_ISR_EOC) }
func (adc) Value() uint16    { return uint16(stm32.ADC.DR.Get()) }

type dac struct{}

func initDAC() dac {
	setMode(stm32.GPIOA, PIN_DAC, modeAnalog)
	stm32.DAC.CR.ClearBits(stm32.DAC_CR_BOFF1 | stm32.DAC_CR_TEN1)
	stm32.DAC.CR.SetBits(stm32.DAC_CR_EN1)
	return dac{}
}

func (dac) Set(v uint16) { stm32.DAC.DHR12R1.Set(uint32(v) & 0xFFF) }

// -- SPI1 ---------------------------------------------------------------------

// spiBus drives SPI1 as an 8 bit transmit master.
type spiBus struct{}

func initSPI() spiBus {
	setAlternate(stm32.GPIOB, PIN_SPI_SCK, 0)
	setAlternate(stm32.GPIOB, PIN_SPI_MOSI, 0)

	stm32.SPI1.CR1.Set(0)
	stm32.SPI1.CR2.Set(7<<stm32.SPI_CR2_DS_Pos | stm32.SPI_CR2_FRXTH)
	stm32.SPI1.CR1.Set(stm32.SPI_CR1_MSTR | stm32.SPI_CR1_SSM | stm32.SPI_CR1_SSI |
		2<<stm32.SPI_CR1_BR_Pos) // 6 MHz
	stm32.SPI1.CR1.SetBits(stm32.SPI_CR1_SPE)
	return spiBus{}
}

// dr8 is the data register accessed as a byte so a single frame is sent.
func dr8() *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(&stm32.SPI1.DR))
}

func (spiBus) Transfer(b byte) (byte, error) {
	sent := false
	for range SPI_MAX_POLLS {
		if stm32.SPI1.SR.HasBits(stm32.SPI_SR_TXE) {
			dr8().Set(b)
			sent = true
			break
		}
	}
	if !sent {
		return 0, errSPITimeout
	}
	for range SPI_MAX_POLLS {
		if stm32.SPI1.SR.HasBits(stm32.SPI_SR_RXNE) {
			return dr8().Get(), nil
		}
	}
	return 0, errSPITimeout
}

func (s spiBus) Tx(w, r []byte) error {
	for i, b := range w {
		v, err := s.Transfer(b)
		if err != nil {
			return err
		}
		if i < len(r) {
			r[i] = v
		}
	}
	return nil
}

type spiStatus struct{}

func (spiStatus) Busy() bool { return stm32.SPI1.SR.HasBits(stm32.SPI_SR_BSY) }

// -- USART1 -------------------------------------------------------------------

type uart struct{}

func initUART() uart {
	setAlternate(stm32.GPIOA, PIN_UART_TX, 1)
	setAlternate(stm32.GPIOA, PIN_UART_RX, 1)
	stm32.USART1.BRR.Set(CORE_CLOCK_HZ / UART_BAUD_RATE)
	stm32.USART1.CR1.Set(stm32.USART_CR1_TE | stm32.USART_CR1_RE | stm32.USART_CR1_UE)
	return uart{}
}

func (uart) Write(p []byte) (int, error) {
	for _, b := range p {
		for !stm32.USART1.ISR.HasBits(stm32.USART_ISR_TXE) {
		}
		stm32.USART1.TDR.Set(uint32(b))
	}
	return len(p), nil
}

// readByte returns the next received byte without blocking.
func (uart) readByte() (byte, bool) {
	if stm32.USART1.ISR.HasBits(stm32.USART_ISR_ORE) {
		stm32.USART1.ICR.Set(stm32.USART_ICR_ORECF)
	}
	if !stm32.USART1.ISR.HasBits(stm32.USART_ISR_RXNE) {
		return 0, false
	}
	return byte(stm32.USART1.RDR.Get()), true
}

// -- critical section ---------------------------------------------------------

// irqLock masks all interrupts while held.
type irqLock struct {
	state interrupt.State
}

func (l *irqLock) Lock()   { l.state = interrupt.Disable() }
func (l *irqLock) Unlock() { interrupt.Restore(l.state) }
