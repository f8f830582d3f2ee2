package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "tonelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Empty(t, c.Warnings())
	assert.True(t, c.Paced())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
device: sound
audio:
  sample_rate: 8000
  window_size: 40
tone:
  freq_low: 1000
  freq_high: 2000
  bit_period: 5ms
  pace: false
mqtt:
  broker: tcp://localhost:1883
  topic: tonelink/events
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sound", c.Device)
	assert.Equal(t, 8000, c.Audio.SampleRate)
	assert.Equal(t, 1, c.Audio.Decimation)
	assert.Equal(t, 5*time.Millisecond, c.Tone.BitPeriod)
	assert.False(t, c.Paced())
	assert.Equal(t, 405, c.Packet.MaxPacketSize)
	assert.Equal(t, "tcp://localhost:1883", c.MQTT.Broker)
	assert.Empty(t, c.Warnings())
}

func TestPlaybackSelectsFileDevice(t *testing.T) {
	c, err := Load(writeConfig(t, "playback_location: capture.wav\n"))
	require.NoError(t, err)
	assert.Equal(t, "file", c.Device)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown device", func(c *Config) { c.Device = "hackrf" }},
		{"zero window", func(c *Config) { c.Audio.WindowSize = 0 }},
		{"zero decimation", func(c *Config) { c.Audio.Decimation = 0 }},
		{"tone above nyquist", func(c *Config) { c.Tone.FreqHigh = 30000 }},
		{"equal tones", func(c *Config) { c.Tone.FreqHigh = c.Tone.FreqLow }},
		{"zero bit period", func(c *Config) { c.Tone.BitPeriod = 0 }},
		{"zero amplitude", func(c *Config) { c.Tone.Amplitude = 0 }},
		{"clipping amplitude", func(c *Config) { c.Tone.Amplitude = 1.5 }},
		{"tiny packet", func(c *Config) { c.Packet.MaxPacketSize = 4 }},
		{"tiny accumulator", func(c *Config) { c.Packet.AccumulatorBits = 16 }},
		{"zero chat capacity", func(c *Config) { c.Chat.Capacity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestWarnings(t *testing.T) {
	c := Default()
	// 125 ms windows, every 56th one decided
	c.Audio.SampleRate = 81920
	c.Audio.WindowSize = 10240
	c.Audio.Decimation = 56
	c.Packet.AccumulatorBits = 256

	warnings := c.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "does not match")
	assert.Contains(t, warnings[1], "accumulator_bits")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "tonelink.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "loopback", c.Device)
	assert.Equal(t, 10*time.Millisecond, c.Tone.BitPeriod)
	assert.Equal(t, 8088, c.VizServer.Port)
	assert.Empty(t, c.Warnings())
}
