package viz

import (
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

// MagnitudePlotter draws the history of both tone detector outputs, one
// point per bit decision.
type MagnitudePlotter struct {
	mu   sync.Mutex
	name string
	size int
	low  []float64
	high []float64
}

func NewMagnitudePlotter(name string, size int) *MagnitudePlotter {
	return &MagnitudePlotter{
		name: name,
		size: size,
	}
}

func (m *MagnitudePlotter) Name() string {
	return m.name
}

func (m *MagnitudePlotter) AddPlotOption(PlotOptions) {}

func (m *MagnitudePlotter) Append(mag0, mag1 float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.low = append(m.low, mag0)
	m.high = append(m.high, mag1)
	if len(m.low) > m.size {
		m.low = m.low[len(m.low)-m.size:]
		m.high = m.high[len(m.high)-m.size:]
	}
}

func series(vals []float64) plotter.XYs {
	ret := make(plotter.XYs, len(vals))
	for i, v := range vals {
		ret[i] = plotter.XY{X: float64(i), Y: v}
	}
	return ret
}

func (m *MagnitudePlotter) GetImage() *ImageContainer {
	m.mu.Lock()
	if len(m.low) == 0 {
		m.mu.Unlock()
		return nil
	}
	low, high := series(m.low), series(m.high)
	peak := floats.Max(append(append([]float64{}, m.low...), m.high...))
	m.mu.Unlock()

	p := plotWithDefaults(m.name, "Decision", "Magnitude")
	p.Y.Min = 0
	if peak > 0 {
		p.Y.Max = peak * 1.1
	}

	if err := plotutil.AddLines(p, "low tone", low, "high tone", high); err != nil {
		return nil
	}

	return render(m.name, p)
}
