package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, uint32(48_000_000), cfg.Capture.CoreClockHz)
	assert.Equal(t, uint32(48_000_000), cfg.Capture.TimeoutTicks)
	assert.Zero(t, cfg.Arbiter.Holdoff)
	assert.Equal(t, 10000, cfg.Sampler.ADCMaxPolls)
	assert.Equal(t, 10000, cfg.Sampler.BusMaxPolls)
	assert.Equal(t, uint32(10), cfg.Sampler.TelemetryEvery)
	assert.Equal(t, float64(10), cfg.Measurement.WindowSeconds)
	assert.Equal(t, float64(3.3), cfg.Measurement.VRef)
	assert.Equal(t, float64(1000), cfg.Mock.FrequencyA)
	assert.Equal(t, 20*time.Millisecond, cfg.Mock.SampleRate)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
  baud: 57600

capture:
  core_clock_hz: 8000000
  timeout_ticks: 0

arbiter:
  holdoff: 50ms

sampler:
  adc_max_polls: 100
  bus_max_polls: 200
  telemetry_every: 5

measurement:
  window_seconds: 5
  average_samples: 4
  vref: 3.0

mock:
  frequency_a: 2000
  frequency_b: 100
  adc_period: 2s
  sample_rate: 10ms
  noise: 0.01
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, uint32(8_000_000), cfg.Capture.CoreClockHz)
	assert.Zero(t, cfg.Capture.TimeoutTicks)
	assert.Equal(t, 50*time.Millisecond, cfg.Arbiter.Holdoff)
	assert.Equal(t, 100, cfg.Sampler.ADCMaxPolls)
	assert.Equal(t, 200, cfg.Sampler.BusMaxPolls)
	assert.Equal(t, uint32(5), cfg.Sampler.TelemetryEvery)
	assert.Equal(t, float64(5), cfg.Measurement.WindowSeconds)
	assert.Equal(t, 4, cfg.Measurement.AverageSamples)
	assert.Equal(t, float64(3.0), cfg.Measurement.VRef)
	assert.Equal(t, float64(2000), cfg.Mock.FrequencyA)
	assert.Equal(t, float64(100), cfg.Mock.FrequencyB)
	assert.Equal(t, 2*time.Second, cfg.Mock.ADCPeriod)
	assert.Equal(t, 10*time.Millisecond, cfg.Mock.SampleRate)
	assert.Equal(t, 0.01, cfg.Mock.Noise)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
sampler:
  telemetry_every: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, uint32(10), cfg.Sampler.TelemetryEvery)
	assert.Equal(t, uint32(48_000_000), cfg.Capture.CoreClockHz)
	assert.Equal(t, float64(10), cfg.Measurement.WindowSeconds)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Arbiter.Holdoff = 30 * time.Millisecond
	cfg.Measurement.WindowSeconds = 15

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 30*time.Millisecond, loaded.Arbiter.Holdoff)
	assert.Equal(t, float64(15), loaded.Measurement.WindowSeconds)
}

func TestSave_FixedPotentiometer(t *testing.T) {
	cfg := Default()
	cfg.Mock.ADCPeriod = 0

	tmpfile, err := os.CreateTemp("", "test_save_fixed_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())
	require.NoError(t, tmpfile.Close())

	require.NoError(t, cfg.Save(tmpfile.Name()))

	// Zero holds the potentiometer at mid scale and must survive a reload
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Zero(t, loaded.Mock.ADCPeriod)
}

func TestLoad_MissingADCPeriodUsesDefault(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("mock:\n  frequency_a: 2000\n")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, 2000.0, cfg.Mock.FrequencyA)
	assert.Equal(t, 10*time.Second, cfg.Mock.ADCPeriod)
}
