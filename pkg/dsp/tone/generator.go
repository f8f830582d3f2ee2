package tone

import (
	"math"
)

const (
	tau float64 = math.Pi * 2
)

// Generator produces a real sine tone one sample at a time.
type Generator struct {
	sampleRate     int
	frequency      float64
	amplitude      float64
	phase          float64
	phaseIncrement float64
}

func NewGenerator(sampleRate int, frequency, amplitude float64) *Generator {
	ret := &Generator{
		sampleRate: sampleRate,
		amplitude:  amplitude,
	}
	ret.SetFrequency(frequency)

	return ret
}

func (g *Generator) incrementPhase() {
	g.phase += g.phaseIncrement
	if g.phase > tau {
		g.phase -= tau
	} else if g.phase < -tau {
		g.phase += tau
	}
}

// SetFrequency retunes the generator without touching its phase.
func (g *Generator) SetFrequency(frequency float64) {
	g.frequency = frequency
	g.phaseIncrement = frequency * tau / float64(g.sampleRate)
}

// Restart retunes the generator and puts the phase back at zero.
func (g *Generator) Restart(frequency float64) {
	g.SetFrequency(frequency)
	g.phase = 0
}

func (g *Generator) Frequency() float64 {
	return g.frequency
}

func (g *Generator) Next() float32 {
	v := float32(g.amplitude * math.Sin(g.phase))
	g.incrementPhase()
	return v
}

func (g *Generator) WorkBuffer(output []float32) int {
	for i := 0; i < len(output); i++ {
		output[i] = g.Next()
	}

	return len(output)
}

func (g *Generator) Work(n int) []float32 {
	ret := make([]float32, n)
	g.WorkBuffer(ret)
	return ret
}
