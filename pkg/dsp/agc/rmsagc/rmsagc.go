package rmsagc

import (
	"math"
)

// RMSAGC scales samples towards a constant RMS level using an exponentially
// weighted mean of the squared input.
type RMSAGC struct {
	alpha      float64
	beta       float64
	target     float64
	meanSquare float64
}

// NewRMSAGC builds a controller with smoothing factor alpha and output RMS
// target.
func NewRMSAGC(alpha float64, target float64) *RMSAGC {
	return &RMSAGC{
		alpha:      alpha,
		beta:       1 - alpha,
		meanSquare: 1.0,
		target:     target,
	}
}

func (r *RMSAGC) PredictOutputSize(inputSize int) int {
	return inputSize
}

func (r *RMSAGC) WorkBuffer(input, output []float32) int {
	for i, v := range input {
		cur := float64(v)
		r.meanSquare = r.beta*r.meanSquare + r.alpha*cur*cur
		if r.meanSquare > 0 {
			output[i] = float32(r.target * cur / math.Sqrt(r.meanSquare))
		} else {
			output[i] = float32(r.target * cur)
		}
	}

	return len(input)
}

func (r *RMSAGC) Work(data []float32) []float32 {
	ret := make([]float32, len(data))
	r.WorkBuffer(data, ret)
	return ret
}

// Level is the current RMS estimate of the input.
func (r *RMSAGC) Level() float64 {
	return math.Sqrt(r.meanSquare)
}

func (r *RMSAGC) Reset() {
	r.meanSquare = 1.0
}
