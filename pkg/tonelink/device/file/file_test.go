package file

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/norasector/tonelink/pkg/tonelink/device/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingSink struct {
	mu      sync.Mutex
	windows [][]float32
}

func (c *collectingSink) Offer(samples []float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	c.windows = append(c.windows, cp)
	return true
}

func TestFilePlaybackOfRecording(t *testing.T) {
	const sampleRate = 8000
	const windowSize = 80

	path := filepath.Join(t.TempDir(), "tone.wav")
	rec := record.NewRecorder(path, sampleRate, nil)

	// three full windows plus a partial one that must not be delivered
	total := windowSize*3 + 17
	expected := make([]float32, total)
	for i := range expected {
		expected[i] = float32(0.5 * math.Sin(2*math.Pi*1000*float64(i)/sampleRate))
		rec.Write(expected[i])
	}
	require.NoError(t, rec.Close())

	dev, err := NewFileDevice(path, windowSize, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, sampleRate, dev.SampleRate())

	sink := &collectingSink{}
	require.NoError(t, dev.Start(context.Background(), sink))

	require.Len(t, sink.windows, 3)
	for w, window := range sink.windows {
		require.Len(t, window, windowSize)
		for i, v := range window {
			assert.InDelta(t, expected[w*windowSize+i], v, 1e-3)
		}
	}
}

func TestFileDeviceMissing(t *testing.T) {
	_, err := NewFileDevice(filepath.Join(t.TempDir(), "nope.wav"), 80, 0)
	require.Error(t, err)
}

func TestToFloatsIsCentered(t *testing.T) {
	pcm16, err := toFloats([]int16{0, math.MaxInt16, math.MinInt16, -16384})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 1, -1, -0.5}, pcm16, 1e-4)

	pcm8, err := toFloats([]uint8{128, 0, 255})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, -1, 1}, pcm8, 1e-2)

	_, err = toFloats([]int32{1})
	assert.Error(t, err)
}
