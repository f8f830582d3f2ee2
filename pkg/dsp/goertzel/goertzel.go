package goertzel

import (
	"math"
)

const tau float64 = math.Pi * 2

// Bin is a single-frequency Goertzel detector. The recursion history is kept
// in float64; finalized outputs are float32 like the rest of the sample path.
type Bin struct {
	Frequency  float64
	SampleRate float64

	w0    float64
	cosW0 float64
	sinW0 float64
	a1    float64

	s   float64
	sZ1 float64
	n   int

	re float32
	im float32
}

func NewBin(frequency, sampleRate float64) *Bin {
	w0 := tau * frequency / sampleRate
	sin, cos := math.Sincos(w0)
	return &Bin{
		Frequency:  frequency,
		SampleRate: sampleRate,
		w0:         w0,
		cosW0:      cos,
		sinW0:      sin,
		a1:         2 * cos,
	}
}

// Update runs one step of the order-2 recursion.
func (b *Bin) Update(sample float32) {
	prev := b.s
	b.s = float64(sample) + b.a1*b.s - b.sZ1
	b.sZ1 = prev
	b.n++
}

// UpdateBuffer feeds every sample of input through Update.
func (b *Bin) UpdateBuffer(input []float32) {
	for i := 0; i < len(input); i++ {
		b.Update(input[i])
	}
}

// Finalize computes the bin's DFT coefficient over the samples seen since the
// last Reset, normalized by the sample count.
func (b *Bin) Finalize() (re, im float32) {
	if b.n == 0 {
		b.re, b.im = 0, 0
		return 0, 0
	}
	n := float64(b.n)
	b.re = float32((b.s - b.cosW0*b.sZ1) / n)
	b.im = float32((b.sinW0 * b.sZ1) / n)
	return b.re, b.im
}

// Magnitude returns the magnitude of the last finalized coefficient.
func (b *Bin) Magnitude() float64 {
	re, im := float64(b.re), float64(b.im)
	return math.Sqrt(re*re + im*im)
}

// Reset clears the running state. Coefficients are left alone.
func (b *Bin) Reset() {
	b.s = 0
	b.sZ1 = 0
	b.n = 0
}

func (b *Bin) SampleCount() int {
	return b.n
}

// Coefficients returns w0, cos(w0), sin(w0) and the recursion coefficient a1.
func (b *Bin) Coefficients() (w0, cosW0, sinW0, a1 float64) {
	return b.w0, b.cosW0, b.sinW0, b.a1
}
