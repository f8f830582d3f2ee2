package fir

import (
	"fmt"
	"math"
)

type WindowType int

const (
	Hamming WindowType = iota
	Hann
	Blackman
)

// attenuation is the approximate stopband attenuation in dB of each window,
// used to size the filter.
var attenuation = map[WindowType]float64{
	Hamming:  53,
	Hann:     44,
	Blackman: 74,
}

func ParseWindowType(name string) (WindowType, error) {
	switch name {
	case "", "hamming":
		return Hamming, nil
	case "hann":
		return Hann, nil
	case "blackman":
		return Blackman, nil
	default:
		return 0, fmt.Errorf("unknown window %q", name)
	}
}

// Window returns n coefficients of the given window.
func Window(winType WindowType, n int) []float32 {
	switch winType {
	case Hann:
		return cosineSum(n, 0.5, 0.5, 0)
	case Blackman:
		return cosineSum(n, 0.42, 0.5, 0.08)
	default:
		return cosineSum(n, 0.54, 0.46, 0)
	}
}

func BlackmanWindow(n int) []float32 {
	return Window(Blackman, n)
}

// cosineSum evaluates c0 - c1 cos(2πi/M) + c2 cos(4πi/M).
func cosineSum(n int, c0, c1, c2 float64) []float32 {
	ret := make([]float32, n)
	if n == 1 {
		ret[0] = 1
		return ret
	}
	m := float64(n - 1)
	for i := range ret {
		x := 2 * math.Pi * float64(i) / m
		ret[i] = float32(c0 - c1*math.Cos(x) + c2*math.Cos(2*x))
	}
	return ret
}
