package loopback

import (
	"context"
	"sync"

	"github.com/norasector/tonelink/pkg/tonelink/device"
	"golang.org/x/exp/rand"
)

// LoopbackDevice is both an Output and a Capture: every sample written is
// delivered back as capture input, optionally with additive gaussian noise.
type LoopbackDevice struct {
	mu         sync.Mutex
	windowSize int
	windower   *device.Windower
	noise      float64
	rng        *rand.Rand
	written    uint64
	stopOnce   sync.Once
	stopChan   chan struct{}
}

type Option func(l *LoopbackDevice)

// WithNoise adds white gaussian noise with the given standard deviation.
func WithNoise(stddev float64, seed uint64) Option {
	return func(l *LoopbackDevice) {
		l.noise = stddev
		l.rng = rand.New(rand.NewSource(seed))
	}
}

func NewLoopbackDevice(windowSize int, opts ...Option) *LoopbackDevice {
	ret := &LoopbackDevice{
		windowSize: windowSize,
		stopChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Write feeds one sample into the capture side. Samples written while no
// capture is running are discarded.
func (l *LoopbackDevice) Write(value float32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.written++
	if l.windower == nil {
		return
	}
	if l.rng != nil {
		value += float32(l.rng.NormFloat64() * l.noise)
	}
	l.windower.Push(value)
}

func (l *LoopbackDevice) Start(ctx context.Context, sink device.WindowSink) error {
	l.mu.Lock()
	l.windower = device.NewWindower(l.windowSize, sink)
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.windower = nil
		l.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopChan:
		return nil
	}
}

func (l *LoopbackDevice) Stop() error {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
	return nil
}

// Capturing reports whether written samples are currently delivered.
func (l *LoopbackDevice) Capturing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windower != nil
}

// Written returns the total number of samples written, delivered or not.
func (l *LoopbackDevice) Written() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}
