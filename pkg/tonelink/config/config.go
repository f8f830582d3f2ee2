package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/link/frame"
	"gopkg.in/yaml.v2"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Device           string `yaml:"device"`
	SoundDevice      string `yaml:"sound_device"`
	RecordLocation   string `yaml:"record_location"`
	PlaybackLocation string `yaml:"playback_location"`
	LogLevel         string `yaml:"log_level"`

	Audio        Audio               `yaml:"audio"`
	Tone         Tone                `yaml:"tone"`
	Packet       Packet              `yaml:"packet"`
	Chat         Chat                `yaml:"chat"`
	Conditioning Conditioning        `yaml:"conditioning"`
	Loopback     Loopback            `yaml:"loopback"`
	Outputs      []OutputDestination `yaml:"output_destinations"`
	VizServer    struct {
		Port           int           `yaml:"port"`
		UpdateInterval time.Duration `yaml:"update_interval"`
	} `yaml:"viz_server"`
	APIServer struct {
		Port int `yaml:"port"`
	} `yaml:"api_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Token        string `yaml:"token"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
	MQTT MQTT `yaml:"mqtt"`
}

type Audio struct {
	SampleRate int `yaml:"sample_rate"`
	WindowSize int `yaml:"window_size"`
	// Decimation processes only every Nth window.
	Decimation int     `yaml:"decimation"`
	Squelch    float64 `yaml:"squelch"`
}

type Tone struct {
	FreqLow   float64       `yaml:"freq_low"`
	FreqHigh  float64       `yaml:"freq_high"`
	BitPeriod time.Duration `yaml:"bit_period"`
	Amplitude float64       `yaml:"amplitude"`
	Pace      *bool         `yaml:"pace"`
}

type Packet struct {
	MaxPacketSize   int `yaml:"max_packet_size"`
	MaxTextLength   int `yaml:"max_text_length"`
	AccumulatorBits int `yaml:"accumulator_bits"`
}

type Chat struct {
	Capacity      int    `yaml:"capacity"`
	MaxNameLength int    `yaml:"max_name_length"`
	LocalName     string `yaml:"local_name"`
	RemoteName    string `yaml:"remote_name"`
}

type Conditioning struct {
	Bandpass bool    `yaml:"bandpass"`
	AGC      bool    `yaml:"agc"`
	AGCAlpha float64 `yaml:"agc_alpha"`
	AGCGain  float64 `yaml:"agc_gain"`
}

type Loopback struct {
	Noise float64 `yaml:"noise"`
	Seed  uint64  `yaml:"seed"`
}

type OutputDestination struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type MQTT struct {
	Broker     string `yaml:"broker"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Topic      string `yaml:"topic"`
	SendTopic  string `yaml:"send_topic"`
	ClientName string `yaml:"client_name"`
}

// Default returns a config that runs a loopback link at 48 kHz with one bit
// per window.
func Default() Config {
	pace := true
	c := Config{
		Device:   "loopback",
		LogLevel: "info",
		Audio: Audio{
			SampleRate: 48000,
			WindowSize: 480,
			Decimation: 1,
		},
		Tone: Tone{
			FreqLow:   2000,
			FreqHigh:  2200,
			BitPeriod: 10 * time.Millisecond,
			Amplitude: 0.8,
			Pace:      &pace,
		},
		Packet: Packet{
			MaxPacketSize:   frame.DefaultMaxPacketSize,
			MaxTextLength:   frame.DefaultMaxTextLength,
			AccumulatorBits: 8 * frame.DefaultMaxPacketSize,
		},
		Chat: Chat{
			Capacity:      chat.DefaultCapacity,
			MaxNameLength: chat.DefaultMaxNameLength,
			LocalName:     chat.LocalName,
			RemoteName:    chat.RemoteName,
		},
		Conditioning: Conditioning{
			AGCAlpha: 0.01,
			AGCGain:  0.61,
		},
	}
	c.VizServer.UpdateInterval = 500 * time.Millisecond
	return c
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	c := Default()
	contents, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("unmarshaling yaml: %w", err)
	}
	if c.PlaybackLocation != "" {
		c.Device = "file"
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) Paced() bool {
	return c.Tone.Pace == nil || *c.Tone.Pace
}

func (c Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	switch c.Device {
	case "loopback", "file", "sound":
	default:
		return invalid("unknown device %q", c.Device)
	}
	if c.Audio.SampleRate <= 0 || c.Audio.WindowSize <= 0 {
		return invalid("sample_rate and window_size must be positive")
	}
	if c.Audio.Decimation < 1 {
		return invalid("decimation must be at least 1")
	}
	nyquist := float64(c.Audio.SampleRate) / 2
	if c.Tone.FreqLow <= 0 || c.Tone.FreqHigh <= 0 || c.Tone.FreqLow >= nyquist || c.Tone.FreqHigh >= nyquist {
		return invalid("tone frequencies must be within (0, %.0f)", nyquist)
	}
	if c.Tone.FreqLow == c.Tone.FreqHigh {
		return invalid("freq_low and freq_high must differ")
	}
	if c.Tone.BitPeriod <= 0 {
		return invalid("bit_period must be positive")
	}
	if c.Tone.Amplitude <= 0 || c.Tone.Amplitude > 1 {
		return invalid("amplitude must be within (0, 1]")
	}
	if c.Packet.MaxPacketSize <= frame.Overhead {
		return invalid("max_packet_size must exceed %d", frame.Overhead)
	}
	if c.Packet.MaxTextLength < 1 {
		return invalid("max_text_length must be positive")
	}
	if c.Packet.AccumulatorBits < 8*(frame.Overhead+1) {
		return invalid("accumulator_bits must hold at least one minimal packet")
	}
	if c.Chat.Capacity < 1 || c.Chat.MaxNameLength < 1 {
		return invalid("chat capacity and max_name_length must be positive")
	}
	return nil
}

// Warnings lists settings that are legal but probably not what was meant.
func (c Config) Warnings() []string {
	var ret []string

	windowPeriod := time.Duration(float64(c.Audio.WindowSize) / float64(c.Audio.SampleRate) * float64(time.Second))
	rxBitPeriod := windowPeriod * time.Duration(c.Audio.Decimation)
	if rxBitPeriod != c.Tone.BitPeriod {
		ret = append(ret, fmt.Sprintf("receiver bit period %s (window %s x decimation %d) does not match transmit bit period %s",
			rxBitPeriod, windowPeriod, c.Audio.Decimation, c.Tone.BitPeriod))
	}
	if c.Packet.AccumulatorBits < 8*c.Packet.MaxPacketSize {
		ret = append(ret, fmt.Sprintf("accumulator_bits %d cannot hold a %d byte packet", c.Packet.AccumulatorBits, c.Packet.MaxPacketSize))
	}
	binWidth := float64(c.Audio.SampleRate) / float64(c.Audio.WindowSize)
	if math.Abs(c.Tone.FreqHigh-c.Tone.FreqLow) < binWidth {
		ret = append(ret, fmt.Sprintf("tone spacing %.0f Hz is below the detector resolution of %.0f Hz", math.Abs(c.Tone.FreqHigh-c.Tone.FreqLow), binWidth))
	}
	return ret
}
