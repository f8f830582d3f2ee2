package fsk

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceOutput struct {
	samples []float32
}

func (s *sliceOutput) Write(value float32) {
	s.samples = append(s.samples, value)
}

type countingLocker struct {
	sync.Mutex
	locks int
}

func (c *countingLocker) Lock() {
	c.Mutex.Lock()
	c.locks++
}

var testParams = ToneParameters{
	FreqLow:   1000,
	FreqHigh:  2000,
	BitPeriod: 5 * time.Millisecond,
}

func TestDecide(t *testing.T) {
	tests := []struct {
		mag0, mag1 float64
		want       byte
	}{
		{3, 1, 0},
		{1, 3, 1},
		{2, 2, 0},
		{0, 0, 0},
		{0, 1e-9, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.mag0, tt.mag1), "mag0=%f mag1=%f", tt.mag0, tt.mag1)
	}
}

func TestBits(t *testing.T) {
	assert.Equal(t, []byte{1, 0, 1, 0, 0, 0, 0, 1}, Bits([]byte{0xa1}))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, Bits([]byte{0x01, 0x00, 0xff}))
}

func TestTransmitSampleLayout(t *testing.T) {
	const sampleRate = 8000
	lock := &countingLocker{}
	m := NewModulator(sampleRate, 1.0, WithLocker(lock))
	out := &sliceOutput{}

	n := m.Transmit([]byte{0x80, 0x00, 0xff}, testParams, out)

	perBit := testParams.SamplesPerBit(sampleRate)
	require.Equal(t, 40, perBit)
	require.Equal(t, 8*perBit, n)
	require.Len(t, out.samples, n)
	assert.Equal(t, n, lock.locks)

	for bit := 0; bit < 8; bit++ {
		freq := testParams.FreqLow
		if bit == 0 {
			freq = testParams.FreqHigh
		}
		segment := out.samples[bit*perBit : (bit+1)*perBit]
		// phase restarts at every bit
		assert.Zero(t, segment[0])
		for k, v := range segment {
			expected := math.Sin(2 * math.Pi * freq * float64(k) / sampleRate)
			require.InDelta(t, expected, float64(v), 1e-4, "bit %d sample %d", bit, k)
		}
	}
}

func TestTransmitPacing(t *testing.T) {
	const sampleRate = 8000
	clock := time.Unix(0, 0)
	var slept time.Duration

	now := func() time.Time { return clock }
	sleep := func(d time.Duration) {
		slept += d
		clock = clock.Add(d)
	}

	m := NewModulator(sampleRate, 1.0, WithPacing(DefaultPacingSlack), withClock(now, sleep))
	out := &sliceOutput{}
	m.Transmit([]byte{0x55}, testParams, out)

	// the final sample is written at (n-1)/fs after start
	expected := time.Duration(float64(len(out.samples)-1) / sampleRate * float64(time.Second))
	assert.InDelta(t, float64(expected), float64(slept), float64(DefaultPacingSlack))
}

func TestDemodulatorRoundTrip(t *testing.T) {
	const sampleRate = 8000
	m := NewModulator(sampleRate, 0.5)
	out := &sliceOutput{}
	data := []byte("ok")
	m.Transmit(data, testParams, out)

	perBit := testParams.SamplesPerBit(sampleRate)
	d := NewDemodulator(sampleRate, testParams.FreqLow, testParams.FreqHigh, 1, 0)

	var bits []byte
	for i := 0; i+perBit <= len(out.samples); i += perBit {
		require.True(t, d.Due())
		decision := d.Demodulate(out.samples[i : i+perBit])
		require.False(t, decision.Squelched)
		bits = append(bits, decision.Bit)
	}
	assert.Equal(t, Bits(data), bits)
}

func TestDemodulatorDecimation(t *testing.T) {
	d := NewDemodulator(8000, 1000, 2000, 3, 0)
	var due []bool
	for i := 0; i < 7; i++ {
		due = append(due, d.Due())
	}
	assert.Equal(t, []bool{true, false, false, true, false, false, true}, due)
	assert.Equal(t, 3, NewDemodulator(8000, 1000, 2000, 3, 0).Decimation())
	assert.Equal(t, 1, NewDemodulator(8000, 1000, 2000, 0, 0).Decimation())
}

func TestDemodulatorSquelch(t *testing.T) {
	d := NewDemodulator(8000, 1000, 2000, 1, 0.01)

	decision := d.Demodulate(make([]float32, 40))
	assert.True(t, decision.Squelched)

	m := NewModulator(8000, 0.5)
	out := &sliceOutput{}
	m.Transmit([]byte{0x80}, testParams, out)
	decision = d.Demodulate(out.samples[:40])
	assert.False(t, decision.Squelched)
	assert.Equal(t, byte(1), decision.Bit)
	assert.Greater(t, decision.Mag1, decision.Mag0)
}
