package tonelink

import (
	"sync/atomic"

	"github.com/norasector/turbine-common/types"
)

// Handoff passes windows from a capture source to the processing stage over
// a fixed pool of buffers. Offer never blocks: with every buffer in use the
// newest window is dropped and counted as an overrun.
type Handoff struct {
	free     chan []float32
	ready    chan *types.SegmentFloat32
	segment  int64
	accepted uint64
	overruns uint64
}

// NewHandoff allocates buffers windows of windowSize samples. Two buffers
// gives double buffering: one being processed while the next fills.
func NewHandoff(windowSize, buffers int) *Handoff {
	if buffers < 1 {
		buffers = 1
	}
	h := &Handoff{
		free:  make(chan []float32, buffers),
		ready: make(chan *types.SegmentFloat32, buffers),
	}
	for i := 0; i < buffers; i++ {
		h.free <- make([]float32, windowSize)
	}
	return h
}

// Offer copies samples into a free buffer and queues it. Samples beyond the
// window size are ignored.
func (h *Handoff) Offer(samples []float32) bool {
	select {
	case buf := <-h.free:
		n := copy(buf[:cap(buf)], samples)
		seg := &types.SegmentFloat32{
			SegmentNumber: int(atomic.AddInt64(&h.segment, 1)),
			Data:          buf[:n],
		}
		// ready has room for every buffer in the pool
		h.ready <- seg
		atomic.AddUint64(&h.accepted, 1)
		return true
	default:
		atomic.AddUint64(&h.overruns, 1)
		return false
	}
}

// Windows yields queued windows in capture order.
func (h *Handoff) Windows() <-chan *types.SegmentFloat32 {
	return h.ready
}

// Release returns a window's buffer to the pool once processing is done.
func (h *Handoff) Release(seg *types.SegmentFloat32) {
	select {
	case h.free <- seg.Data[:cap(seg.Data)]:
	default:
	}
}

func (h *Handoff) Accepted() uint64 {
	return atomic.LoadUint64(&h.accepted)
}

func (h *Handoff) Overruns() uint64 {
	return atomic.LoadUint64(&h.overruns)
}
