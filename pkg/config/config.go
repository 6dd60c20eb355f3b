package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the monitor configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Capture     CaptureConfig     `yaml:"capture"`
	Arbiter     ArbiterConfig     `yaml:"arbiter"`
	Sampler     SamplerConfig     `yaml:"sampler"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// CaptureConfig describes the stopwatch counter of the board.
type CaptureConfig struct {
	CoreClockHz  uint32 `yaml:"core_clock_hz"`
	TimeoutTicks uint32 `yaml:"timeout_ticks"` // 0 = expire on counter overflow only
}

// ArbiterConfig contains source switching parameters.
type ArbiterConfig struct {
	Holdoff time.Duration `yaml:"holdoff"` // Ignore button presses closer than this (0 = accept all)
}

// SamplerConfig bounds the busy-waits of the main loop.
type SamplerConfig struct {
	ADCMaxPolls    int    `yaml:"adc_max_polls"`
	BusMaxPolls    int    `yaml:"bus_max_polls"`
	TelemetryEvery uint32 `yaml:"telemetry_every"` // Loop iterations per telemetry line
}

// MeasurementConfig contains host side processing parameters.
type MeasurementConfig struct {
	WindowSeconds  float64 `yaml:"window_seconds"`
	AverageSamples int     `yaml:"average_samples"` // Number of samples to average (0 = disabled, default)
	VRef           float64 `yaml:"vref"`            // ADC reference voltage (V)
}

// MockConfig contains simulated board configuration.
type MockConfig struct {
	FrequencyA float64       `yaml:"frequency_a"` // Function generator output (Hz)
	FrequencyB float64       `yaml:"frequency_b"` // 555 timer output at mid scale (Hz)
	ADCPeriod  time.Duration `yaml:"adc_period"`  // Potentiometer sweep period
	SampleRate time.Duration `yaml:"sample_rate"` // Loop interval
	Noise      float64       `yaml:"noise"`       // Relative period jitter (0..1)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			Baud: 115200,
		},
		Capture: CaptureConfig{
			CoreClockHz:  48_000_000,
			TimeoutTicks: 48_000_000, // one second
		},
		Arbiter: ArbiterConfig{
			Holdoff: 0,
		},
		Sampler: SamplerConfig{
			ADCMaxPolls:    10000,
			BusMaxPolls:    10000,
			TelemetryEvery: 10,
		},
		Measurement: MeasurementConfig{
			WindowSeconds:  10,
			AverageSamples: 0, // No averaging by default
			VRef:           3.3,
		},
		Mock: MockConfig{
			FrequencyA: 1000,
			FrequencyB: 440,
			ADCPeriod:  10 * time.Second,
			SampleRate: 20 * time.Millisecond, // 50 loop iterations per second
			Noise:      0.001,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Capture.CoreClockHz == 0 {
		c.Capture.CoreClockHz = def.Capture.CoreClockHz
	}

	if c.Sampler.ADCMaxPolls <= 0 {
		c.Sampler.ADCMaxPolls = def.Sampler.ADCMaxPolls
	}
	if c.Sampler.BusMaxPolls <= 0 {
		c.Sampler.BusMaxPolls = def.Sampler.BusMaxPolls
	}
	if c.Sampler.TelemetryEvery == 0 {
		c.Sampler.TelemetryEvery = def.Sampler.TelemetryEvery
	}

	if c.Measurement.WindowSeconds == 0 {
		c.Measurement.WindowSeconds = def.Measurement.WindowSeconds
	}
	if c.Measurement.VRef == 0 {
		c.Measurement.VRef = def.Measurement.VRef
	}

	if c.Mock.FrequencyA == 0 {
		c.Mock.FrequencyA = def.Mock.FrequencyA
	}
	if c.Mock.FrequencyB == 0 {
		c.Mock.FrequencyB = def.Mock.FrequencyB
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
}
