package fsk

import (
	"math"
	"sync"
	"time"

	"github.com/norasector/tonelink/pkg/dsp/tone"
	"github.com/norasector/tonelink/pkg/tonelink/device"
)

// DefaultPacingSlack is how far ahead of the sample clock the transmitter may
// run before it sleeps.
const DefaultPacingSlack = time.Millisecond

// ToneParameters describes one binary FSK transmission.
type ToneParameters struct {
	FreqLow   float64
	FreqHigh  float64
	BitPeriod time.Duration
}

// SamplesPerBit returns the number of output samples rendered per bit.
func (p ToneParameters) SamplesPerBit(sampleRate int) int {
	return int(math.Round(p.BitPeriod.Seconds() * float64(sampleRate)))
}

// Modulator renders bytes as FSK tones. Bits are sent MSB first and every bit
// starts at phase zero.
type Modulator struct {
	sampleRate int
	amplitude  float64
	pace       bool
	slack      time.Duration
	lock       sync.Locker
	gen        *tone.Generator

	now   func() time.Time
	sleep func(time.Duration)
}

type ModulatorOption func(m *Modulator)

// WithPacing makes Transmit follow the sample clock in real time.
func WithPacing(slack time.Duration) ModulatorOption {
	return func(m *Modulator) {
		m.pace = true
		m.slack = slack
	}
}

// WithLocker guards every output write with l.
func WithLocker(l sync.Locker) ModulatorOption {
	return func(m *Modulator) {
		m.lock = l
	}
}

func withClock(now func() time.Time, sleep func(time.Duration)) ModulatorOption {
	return func(m *Modulator) {
		m.now = now
		m.sleep = sleep
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

func NewModulator(sampleRate int, amplitude float64, opts ...ModulatorOption) *Modulator {
	ret := &Modulator{
		sampleRate: sampleRate,
		amplitude:  amplitude,
		lock:       noopLocker{},
		gen:        tone.NewGenerator(sampleRate, 0, amplitude),
		now:        time.Now,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Transmit renders data to out and returns once the last bit is written.
// Transmission ends at the first zero byte. It returns the number of samples
// written.
func (m *Modulator) Transmit(data []byte, params ToneParameters, out device.Output) int {
	perBit := params.SamplesPerBit(m.sampleRate)
	sampleDuration := float64(time.Second) / float64(m.sampleRate)

	start := m.now()
	written := 0

	for _, b := range data {
		if b == 0 {
			break
		}
		for bit := 7; bit >= 0; bit-- {
			freq := params.FreqLow
			if (b>>uint(bit))&1 == 1 {
				freq = params.FreqHigh
			}
			m.gen.Restart(freq)

			for k := 0; k < perBit; k++ {
				v := m.gen.Next()
				if m.pace {
					deadline := start.Add(time.Duration(float64(written) * sampleDuration))
					if ahead := deadline.Sub(m.now()); ahead > m.slack {
						m.sleep(ahead)
					}
				}
				m.lock.Lock()
				out.Write(v)
				m.lock.Unlock()
				written++
			}
		}
	}

	return written
}

// Bits expands data into one bit per byte, MSB first, stopping at the first
// zero byte.
func Bits(data []byte) []byte {
	ret := make([]byte, 0, len(data)*8)
	for _, b := range data {
		if b == 0 {
			break
		}
		for bit := 7; bit >= 0; bit-- {
			ret = append(ret, (b>>uint(bit))&1)
		}
	}
	return ret
}
