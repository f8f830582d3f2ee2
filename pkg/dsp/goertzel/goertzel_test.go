package goertzel

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWindow(freq, sampleRate float64, n int, amplitude float64) []float32 {
	ret := make([]float32, n)
	for i := range ret {
		ret[i] = float32(amplitude * math.Sin(tau*freq*float64(i)/sampleRate))
	}
	return ret
}

func TestBinSelectivity(t *testing.T) {
	const sampleRate = 8000.0
	const windowSize = 400

	tests := []struct {
		name string
		tone float64
		hot  int
	}{
		{"low tone", 1000, 0},
		{"high tone", 1200, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := NewBank(sampleRate, 1000, 1200)
			bank.Process(sineWindow(tt.tone, sampleRate, windowSize, 1.0))
			mags := bank.Magnitudes()

			cold := 1 - tt.hot
			assert.InDelta(t, 0.5, mags[tt.hot], 1e-3)
			assert.Greater(t, mags[tt.hot], 100*mags[cold])
		})
	}
}

func TestBinMatchesDFT(t *testing.T) {
	const sampleRate = 8000.0
	const windowSize = 400

	window := sineWindow(1000, sampleRate, windowSize, 0.7)
	for i := range window {
		window[i] += float32(0.3 * math.Sin(tau*1700*float64(i)/sampleRate))
	}

	data := make([]float64, len(window))
	for i, v := range window {
		data[i] = float64(v)
	}
	coeffs := fft.FFTReal(data)

	for _, freq := range []float64{1000, 1200, 1700} {
		bin := NewBin(freq, sampleRate)
		bin.UpdateBuffer(window)
		bin.Finalize()

		k := int(freq * windowSize / sampleRate)
		expected := cmplx.Abs(coeffs[k]) / windowSize
		assert.InDelta(t, expected, bin.Magnitude(), 1e-4, "freq %f", freq)
	}
}

func TestBinReset(t *testing.T) {
	bin := NewBin(2000, 48000)
	w0, cosW0, sinW0, a1 := bin.Coefficients()

	bin.UpdateBuffer(sineWindow(2000, 48000, 480, 1.0))
	require.Equal(t, 480, bin.SampleCount())
	bin.Finalize()
	first := bin.Magnitude()

	bin.Reset()
	require.Equal(t, 0, bin.SampleCount())

	// a second identical window must not be contaminated by the first
	bin.UpdateBuffer(sineWindow(2000, 48000, 480, 1.0))
	bin.Finalize()
	assert.InDelta(t, first, bin.Magnitude(), 1e-9)

	nw0, ncos, nsin, na1 := bin.Coefficients()
	assert.Equal(t, w0, nw0)
	assert.Equal(t, cosW0, ncos)
	assert.Equal(t, sinW0, nsin)
	assert.Equal(t, a1, na1)
}

func TestFinalizeEmpty(t *testing.T) {
	bin := NewBin(2000, 48000)
	re, im := bin.Finalize()
	assert.Zero(t, re)
	assert.Zero(t, im)
	assert.Zero(t, bin.Magnitude())
}
