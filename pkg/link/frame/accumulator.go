package frame

// Accumulator is a bounded buffer of received bits, one bit per byte. Bits
// arriving while it is full are dropped and counted.
type Accumulator struct {
	bits     []byte
	capacity int
	dropped  uint64
}

func NewAccumulator(capacity int) *Accumulator {
	return &Accumulator{
		bits:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Append stores bit and reports whether there was room for it.
func (a *Accumulator) Append(bit byte) bool {
	if len(a.bits) >= a.capacity {
		a.dropped++
		return false
	}
	a.bits = append(a.bits, bit&1)
	return true
}

func (a *Accumulator) Len() int {
	return len(a.bits)
}

func (a *Accumulator) Cap() int {
	return a.capacity
}

func (a *Accumulator) Full() bool {
	return len(a.bits) >= a.capacity
}

// Dropped is the total number of bits refused since creation.
func (a *Accumulator) Dropped() uint64 {
	return a.dropped
}

// Bits returns a copy of the stored bits.
func (a *Accumulator) Bits() []byte {
	ret := make([]byte, len(a.bits))
	copy(ret, a.bits)
	return ret
}

// Clear empties the buffer. The dropped counter is kept.
func (a *Accumulator) Clear() {
	a.bits = a.bits[:0]
}

// PackBits packs bits MSB first into at most maxBytes bytes. Trailing bits
// that do not fill a byte are ignored. A maxBytes of zero or less means no
// limit.
func PackBits(bits []byte, maxBytes int) []byte {
	count := len(bits) / 8
	if maxBytes > 0 && count > maxBytes {
		count = maxBytes
	}

	ret := make([]byte, count)
	for i := 0; i < count; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | (bits[i*8+j] & 1)
		}
		ret[i] = b
	}
	return ret
}
