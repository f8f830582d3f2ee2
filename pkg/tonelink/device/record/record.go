package record

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/norasector/tonelink/pkg/tonelink/device"
	"github.com/youpy/go-wav"
)

const bitsPerSample = 16

// Recorder is an Output that keeps every written sample and writes them as a
// mono 16-bit WAV file on Close. Samples can also be passed through to another
// Output.
type Recorder struct {
	mu         sync.Mutex
	path       string
	sampleRate int
	samples    []wav.Sample
	next       device.Output
	closed     bool
}

func NewRecorder(path string, sampleRate int, next device.Output) *Recorder {
	return &Recorder{
		path:       path,
		sampleRate: sampleRate,
		next:       next,
	}
}

func (r *Recorder) Write(value float32) {
	r.mu.Lock()
	if !r.closed {
		r.samples = append(r.samples, wav.Sample{Values: [2]int{toPCM16(value)}})
	}
	r.mu.Unlock()

	if r.next != nil {
		r.next.Write(value)
	}
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := wav.NewWriter(f, uint32(len(r.samples)), 1, uint32(r.sampleRate), bitsPerSample)
	if err := writer.WriteSamples(r.samples); err != nil {
		return fmt.Errorf("writing %s: %w", r.path, err)
	}
	return nil
}

func toPCM16(v float32) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(math.Round(float64(v) * math.MaxInt16))
}
