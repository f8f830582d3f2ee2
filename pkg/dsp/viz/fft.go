package viz

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/norasector/tonelink/pkg/dsp/filters/fir"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

// powerAverage is the smoothing factor applied to successive spectra.
const powerAverage = 0.10

// FFTPlotter draws the smoothed power spectrum of the most recent samples.
type FFTPlotter struct {
	mu           sync.Mutex
	buf          []float32
	sampleRate   int
	len          int
	averagePower []float64
	name         string
	plotOptions  []PlotOptions
	fft          *fourier.FFT
	window       []float32
}

func NewFFTPlotter(name string, length, sampleRate int) *FFTPlotter {
	return &FFTPlotter{
		buf:          make([]float32, length),
		averagePower: make([]float64, length/2+1),
		len:          length,
		sampleRate:   sampleRate,
		name:         name,
		fft:          fourier.NewFFT(length),
		window:       fir.BlackmanWindow(length),
	}
}

func (p *FFTPlotter) Name() string {
	return p.name
}

func (p *FFTPlotter) AppendFloat(s []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(s) >= p.len {
		copy(p.buf, s[len(s)-p.len:])
		return
	}
	copy(p.buf, p.buf[len(s):])
	copy(p.buf[p.len-len(s):], s)
}

func (p *FFTPlotter) AddPlotOption(opt PlotOptions) {
	p.mu.Lock()
	p.plotOptions = append(p.plotOptions, opt)
	p.mu.Unlock()
}

// Spectrum returns frequency/power-in-dB pairs after smoothing.
func (p *FFTPlotter) Spectrum() plotter.XYs {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := make([]float64, p.len)
	// 0.42 is the coherent gain of the Blackman window
	norm := 0.42 * float64(p.len) / 2
	for i := range data {
		data[i] = float64(p.buf[i]) * float64(p.window[i]) / norm
	}
	coeffs := p.fft.Coefficients(nil, data)

	ret := make(plotter.XYs, 0, len(coeffs))
	for i, c := range coeffs {
		p.averagePower[i] = (1-powerAverage)*p.averagePower[i] + powerAverage*cmplx.Abs(c)
		if p.averagePower[i] == 0 {
			continue
		}
		ret = append(ret, plotter.XY{
			X: p.fft.Freq(i) * float64(p.sampleRate),
			Y: 20 * math.Log10(p.averagePower[i]),
		})
	}
	return ret
}

func (p *FFTPlotter) GetImage() *ImageContainer {
	points := p.Spectrum()
	if len(points) == 0 {
		return nil
	}

	pl := plotWithDefaults(p.name, "Frequency (Hz)", "Power (dB)")
	pl.Y.Max = 0
	pl.Y.Min = -100

	p.mu.Lock()
	opts := p.plotOptions
	p.mu.Unlock()
	for _, opt := range opts {
		opt(pl)
	}

	if err := plotutil.AddLines(pl, "spectrum", points); err != nil {
		return nil
	}

	return render(p.name, pl)
}
