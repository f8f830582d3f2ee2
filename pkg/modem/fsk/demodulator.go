package fsk

import (
	"math"

	"github.com/norasector/tonelink/pkg/dsp/goertzel"
	"gonum.org/v1/gonum/floats"
)

// Decide maps the two tone magnitudes to a bit. Ties go to 0.
func Decide(mag0, mag1 float64) byte {
	if mag1 > mag0 {
		return 1
	}
	return 0
}

type Decision struct {
	Bit       byte
	Mag0      float64
	Mag1      float64
	RMS       float64
	Squelched bool
}

// Demodulator turns sample windows into bits with a two-bin Goertzel bank.
// Only every Kth window is due for a decision.
type Demodulator struct {
	bank       *goertzel.Bank
	decimation int
	counter    int
	squelch    float64
}

// NewDemodulator builds a demodulator. A squelch of zero disables the energy
// gate.
func NewDemodulator(sampleRate int, freqLow, freqHigh float64, decimation int, squelch float64) *Demodulator {
	if decimation < 1 {
		decimation = 1
	}
	return &Demodulator{
		bank:       goertzel.NewBank(float64(sampleRate), freqLow, freqHigh),
		decimation: decimation,
		squelch:    squelch,
	}
}

// Due advances the window counter and reports whether this window should be
// demodulated.
func (d *Demodulator) Due() bool {
	due := d.counter%d.decimation == 0
	d.counter++
	return due
}

// Demodulate runs both bins over window and decides one bit. Bin state is
// reset before returning.
func (d *Demodulator) Demodulate(window []float32) Decision {
	defer d.bank.Reset()

	ret := Decision{RMS: rms(window)}
	if d.squelch > 0 && ret.RMS < d.squelch {
		ret.Squelched = true
		return ret
	}

	d.bank.Process(window)
	ret.Mag0 = d.bank.Bin(0).Magnitude()
	ret.Mag1 = d.bank.Bin(1).Magnitude()
	ret.Bit = Decide(ret.Mag0, ret.Mag1)
	return ret
}

func (d *Demodulator) Decimation() int {
	return d.decimation
}

func rms(window []float32) float64 {
	if len(window) == 0 {
		return 0
	}
	sq := make([]float64, len(window))
	for i, v := range window {
		sq[i] = float64(v) * float64(v)
	}
	return math.Sqrt(floats.Sum(sq) / float64(len(window)))
}
