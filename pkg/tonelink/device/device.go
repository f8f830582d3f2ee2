package device

import (
	"context"
)

// WindowSink accepts filled sample windows from a capture source. Offer must
// never block and must not retain samples after it returns.
type WindowSink interface {
	Offer(samples []float32) bool
}

// Capture is a source of fixed-size sample windows.
type Capture interface {
	// Start delivers windows to sink until ctx is done, Stop is called, or the
	// source runs out.
	Start(ctx context.Context, sink WindowSink) error
	Stop() error
}

// Output is the analog side of the transmitter. Write is assumed to succeed.
type Output interface {
	Write(value float32)
}

type discard struct{}

func (discard) Write(float32) {}

// Discard is an Output for receive-only sources.
var Discard Output = discard{}

// Windower chops an arbitrary-length sample stream into fixed-size windows
// and offers each complete window to a sink. It is not safe for concurrent use.
type Windower struct {
	size     int
	buf      []float32
	sink     WindowSink
	offered  uint64
	rejected uint64
}

func NewWindower(size int, sink WindowSink) *Windower {
	return &Windower{
		size: size,
		buf:  make([]float32, 0, size),
		sink: sink,
	}
}

func (w *Windower) Push(samples ...float32) {
	for _, s := range samples {
		w.buf = append(w.buf, s)
		if len(w.buf) == w.size {
			if w.sink.Offer(w.buf) {
				w.offered++
			} else {
				w.rejected++
			}
			w.buf = w.buf[:0]
		}
	}
}

// Pending returns the number of samples waiting for a full window.
func (w *Windower) Pending() int {
	return len(w.buf)
}

func (w *Windower) Offered() uint64 {
	return w.offered
}

func (w *Windower) Rejected() uint64 {
	return w.rejected
}
