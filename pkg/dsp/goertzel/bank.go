package goertzel

// Bank runs a fixed set of bins over the same sample window.
type Bank struct {
	bins []*Bin
}

func NewBank(sampleRate float64, frequencies ...float64) *Bank {
	ret := &Bank{
		bins: make([]*Bin, len(frequencies)),
	}
	for i, f := range frequencies {
		ret.bins[i] = NewBin(f, sampleRate)
	}
	return ret
}

func (b *Bank) Bin(i int) *Bin {
	return b.bins[i]
}

func (b *Bank) Len() int {
	return len(b.bins)
}

// Process feeds one whole window through every bin and finalizes them.
// The caller must Reset before the next window.
func (b *Bank) Process(window []float32) {
	for _, bin := range b.bins {
		bin.UpdateBuffer(window)
		bin.Finalize()
	}
}

// Magnitudes returns each bin's finalized magnitude in bank order.
func (b *Bank) Magnitudes() []float64 {
	ret := make([]float64, len(b.bins))
	for i, bin := range b.bins {
		ret[i] = bin.Magnitude()
	}
	return ret
}

func (b *Bank) Reset() {
	for _, bin := range b.bins {
		bin.Reset()
	}
}
