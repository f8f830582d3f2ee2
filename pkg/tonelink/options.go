package tonelink

import (
	"context"
	"fmt"

	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/modem/fsk"
	"github.com/norasector/tonelink/pkg/tonelink/config"
)

type Options struct {
	SampleRate int
	WindowSize int
	Decimation int
	Squelch    float64

	Tone      fsk.ToneParameters
	Amplitude float64
	Pace      bool

	MaxPacketSize   int
	MaxTextLength   int
	AccumulatorBits int

	ChatCapacity  int
	MaxNameLength int
	LocalName     string
	RemoteName    string

	Bandpass bool
	AGC      bool
	AGCAlpha float64
	AGCGain  float64

	Listeners []Listener
}

// Listener handles chat events.
type Listener interface {
	// Start receives a context and should run in a loop, terminating upon ctx closing or on any errors.
	Start(ctx context.Context) error
	// Receive returns a channel that receives every chat event.
	Receive() chan<- chat.Event
}

func OptionsFromConfig(c config.Config) Options {
	return Options{
		SampleRate: c.Audio.SampleRate,
		WindowSize: c.Audio.WindowSize,
		Decimation: c.Audio.Decimation,
		Squelch:    c.Audio.Squelch,
		Tone: fsk.ToneParameters{
			FreqLow:   c.Tone.FreqLow,
			FreqHigh:  c.Tone.FreqHigh,
			BitPeriod: c.Tone.BitPeriod,
		},
		Amplitude:       c.Tone.Amplitude,
		Pace:            c.Paced(),
		MaxPacketSize:   c.Packet.MaxPacketSize,
		MaxTextLength:   c.Packet.MaxTextLength,
		AccumulatorBits: c.Packet.AccumulatorBits,
		ChatCapacity:    c.Chat.Capacity,
		MaxNameLength:   c.Chat.MaxNameLength,
		LocalName:       c.Chat.LocalName,
		RemoteName:      c.Chat.RemoteName,
		Bandpass:        c.Conditioning.Bandpass,
		AGC:             c.Conditioning.AGC,
		AGCAlpha:        c.Conditioning.AGCAlpha,
		AGCGain:         c.Conditioning.AGCGain,
	}
}

func (o *Options) validate() error {
	if o.SampleRate <= 0 || o.WindowSize <= 0 {
		return fmt.Errorf("must specify sample rate and window size")
	}
	if o.Tone.FreqLow <= 0 || o.Tone.FreqHigh <= 0 || o.Tone.BitPeriod <= 0 {
		return fmt.Errorf("must specify both tone frequencies and a bit period")
	}
	if o.Amplitude <= 0 || o.Amplitude > 1 {
		return fmt.Errorf("amplitude %v must be within (0, 1]", o.Amplitude)
	}
	if o.MaxPacketSize <= 0 || o.MaxTextLength <= 0 || o.AccumulatorBits <= 0 {
		return fmt.Errorf("must specify packet sizes and accumulator capacity")
	}
	if o.Decimation < 1 {
		o.Decimation = 1
	}
	if o.ChatCapacity <= 0 {
		o.ChatCapacity = chat.DefaultCapacity
	}
	if o.MaxNameLength <= 0 {
		o.MaxNameLength = chat.DefaultMaxNameLength
	}
	if o.LocalName == "" {
		o.LocalName = chat.LocalName
	}
	if o.RemoteName == "" {
		o.RemoteName = chat.RemoteName
	}
	return nil
}
