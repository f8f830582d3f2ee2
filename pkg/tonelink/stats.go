package tonelink

import "sync/atomic"

// Stats counts everything the link would otherwise drop silently.
type Stats struct {
	WindowsAccepted   uint64 `json:"windows_accepted"`
	WindowsDropped    uint64 `json:"windows_dropped"`
	WindowsSkipped    uint64 `json:"windows_skipped"`
	WindowsSquelched  uint64 `json:"windows_squelched"`
	BitsDecided       uint64 `json:"bits_decided"`
	BitsDropped       uint64 `json:"bits_dropped"`
	FramingNoHeader   uint64 `json:"framing_no_header"`
	FramingNoFooter   uint64 `json:"framing_no_footer"`
	PayloadsTruncated uint64 `json:"payloads_truncated"`
	PacketsReceived   uint64 `json:"packets_received"`
	MessagesSent      uint64 `json:"messages_sent"`
	SamplesSent       uint64 `json:"samples_sent"`
	EventsSkipped     uint64 `json:"events_skipped"`
	AccumulatorBits   int    `json:"accumulator_bits"`
	AccumulatorCap    int    `json:"accumulator_capacity"`
}

type counters struct {
	windowsSkipped    uint64
	windowsSquelched  uint64
	bitsDecided       uint64
	bitsDropped       uint64
	framingNoHeader   uint64
	framingNoFooter   uint64
	payloadsTruncated uint64
	packetsReceived   uint64
	messagesSent      uint64
	samplesSent       uint64
	eventsSkipped     uint64
}

func inc(c *uint64) {
	atomic.AddUint64(c, 1)
}

func atomic64Add(c *uint64, n uint64) {
	atomic.AddUint64(c, n)
}

func (c *counters) load(s *Stats) {
	s.WindowsSkipped = atomic.LoadUint64(&c.windowsSkipped)
	s.WindowsSquelched = atomic.LoadUint64(&c.windowsSquelched)
	s.BitsDecided = atomic.LoadUint64(&c.bitsDecided)
	s.BitsDropped = atomic.LoadUint64(&c.bitsDropped)
	s.FramingNoHeader = atomic.LoadUint64(&c.framingNoHeader)
	s.FramingNoFooter = atomic.LoadUint64(&c.framingNoFooter)
	s.PayloadsTruncated = atomic.LoadUint64(&c.payloadsTruncated)
	s.PacketsReceived = atomic.LoadUint64(&c.packetsReceived)
	s.MessagesSent = atomic.LoadUint64(&c.messagesSent)
	s.SamplesSent = atomic.LoadUint64(&c.samplesSent)
	s.EventsSkipped = atomic.LoadUint64(&c.eventsSkipped)
}
