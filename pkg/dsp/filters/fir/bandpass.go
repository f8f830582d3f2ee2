package fir

import "math"

// tapCount sizes a windowed-sinc filter for the given transition width. The
// result is always odd.
func tapCount(sampleRate, transitionWidth float64, winType WindowType) int {
	n := int(attenuation[winType] * sampleRate / (22.0 * transitionWidth))
	return n | 1
}

// MakeBandPass designs a windowed-sinc bandpass with unity gain scaled to
// gain at the band centre.
func MakeBandPass(gain, sampleRate, lowCut, highCut, transitionWidth float64, winType WindowType) []float32 {
	nTaps := tapCount(sampleRate, transitionWidth, winType)
	w := Window(winType, nTaps)
	taps := make([]float32, nTaps)

	m := (nTaps - 1) / 2
	wLow := 2 * math.Pi * lowCut / sampleRate
	wHigh := 2 * math.Pi * highCut / sampleRate

	for i := -m; i <= m; i++ {
		var h float64
		if i == 0 {
			h = (wHigh - wLow) / math.Pi
		} else {
			fi := float64(i)
			h = (math.Sin(fi*wHigh) - math.Sin(fi*wLow)) / (fi * math.Pi)
		}
		taps[i+m] = float32(h * float64(w[i+m]))
	}

	// normalize the response at the centre frequency
	centre := (wLow + wHigh) / 2
	resp := float64(taps[m])
	for i := 1; i <= m; i++ {
		resp += 2 * float64(taps[i+m]) * math.Cos(float64(i)*centre)
	}
	scale := gain / resp
	for i := range taps {
		taps[i] = float32(float64(taps[i]) * scale)
	}

	return taps
}

// MakeToneBandPass passes both FSK tones with a margin of half their spacing
// on each side.
func MakeToneBandPass(sampleRate, freqLow, freqHigh float64) []float32 {
	if freqLow > freqHigh {
		freqLow, freqHigh = freqHigh, freqLow
	}
	spacing := freqHigh - freqLow
	margin := spacing / 2
	if margin < 50 {
		margin = 50
	}
	low := freqLow - margin
	if low < 1 {
		low = 1
	}
	high := freqHigh + margin
	if nyquist := sampleRate / 2; high > nyquist-1 {
		high = nyquist - 1
	}
	return MakeBandPass(1.0, sampleRate, low, high, margin, Hamming)
}

// Response returns the magnitude of the filter response at freq.
func Response(taps []float32, sampleRate, freq float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	var re, im float64
	for i, t := range taps {
		re += float64(t) * math.Cos(w*float64(i))
		im -= float64(t) * math.Sin(w*float64(i))
	}
	return math.Hypot(re, im)
}
