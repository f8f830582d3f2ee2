package viz

import (
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

type PlotType int

const (
	PlotTypeDefault PlotType = iota
	PlotTypeScatter
	PlotTypeLines
)

// TimeDomainPlotter draws the last size samples it was given.
type TimeDomainPlotter struct {
	mu          sync.Mutex
	buf         []float32
	size        int
	name        string
	plotFunc    func(*plot.Plot, ...interface{}) error
	plotOptions []PlotOptions
}

func NewTimeDomainPlotter(name string, size int) *TimeDomainPlotter {
	return &TimeDomainPlotter{
		buf:      make([]float32, 0, size),
		size:     size,
		name:     name,
		plotFunc: plotutil.AddScatters,
	}
}

func (t *TimeDomainPlotter) Name() string {
	return t.name
}

func (t *TimeDomainPlotter) SetPlotType(tp PlotType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch tp {
	case PlotTypeLines:
		t.plotFunc = plotutil.AddLines
	default:
		t.plotFunc = plotutil.AddScatters
	}
}

func (t *TimeDomainPlotter) AppendFloat(f []float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, f...)
	if len(t.buf) > t.size {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.size:]...)
	}
}

func (t *TimeDomainPlotter) AddPlotOption(opt PlotOptions) {
	t.mu.Lock()
	t.plotOptions = append(t.plotOptions, opt)
	t.mu.Unlock()
}

func (t *TimeDomainPlotter) points() plotter.XYs {
	ret := make(plotter.XYs, len(t.buf))
	for i, v := range t.buf {
		ret[i] = plotter.XY{X: float64(i), Y: float64(v)}
	}
	return ret
}

func (t *TimeDomainPlotter) GetImage() *ImageContainer {
	t.mu.Lock()
	if len(t.buf) < t.size {
		t.mu.Unlock()
		return nil
	}
	points := t.points()
	plotFunc := t.plotFunc
	opts := t.plotOptions
	t.mu.Unlock()

	p := plotWithDefaults(t.name, "t", "Amplitude")
	p.Y.Min = -1.5
	p.Y.Max = 1.5

	for _, opt := range opts {
		opt(p)
	}

	if err := plotFunc(p, "f(t)", points); err != nil {
		return nil
	}

	return render(t.name, p)
}
