package frame

import (
	"errors"
)

var (
	ErrNoHeader = errors.New("packet header not found")
	ErrNoFooter = errors.New("packet footer not found")
)

type Packet struct {
	Payload   []byte
	Truncated bool
	// Start and End are the payload bounds within the scanned bytes.
	Start int
	End   int
}

func (p *Packet) Text() string {
	return string(p.Payload)
}

// Deframer recovers at most one packet per pass from a bit buffer.
type Deframer struct {
	MaxPacketSize int
	MaxTextLength int
}

func NewDeframer(maxPacketSize, maxTextLength int) Deframer {
	return Deframer{
		MaxPacketSize: maxPacketSize,
		MaxTextLength: maxTextLength,
	}
}

// Extract finds the first header in data and the first footer after it. The
// payload is capped at MaxTextLength-1 bytes, one byte being reserved for the
// terminator of a text field.
func (d Deframer) Extract(data []byte) (*Packet, error) {
	start := -1
	for i := 0; i+3 < len(data); i++ {
		if data[i] == HeaderStart && data[i+1] == HeaderEnd {
			start = i + 2
			break
		}
	}
	if start < 0 {
		return nil, ErrNoHeader
	}

	end := -1
	for i := start; i+1 < len(data); i++ {
		if data[i] == FooterStart && data[i+1] == FooterEnd {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, ErrNoFooter
	}

	payload := data[start:end]
	ret := &Packet{Start: start, End: end}
	if max := d.MaxTextLength - 1; max >= 0 && len(payload) > max {
		payload = payload[:max]
		ret.Truncated = true
	}
	ret.Payload = make([]byte, len(payload))
	copy(ret.Payload, payload)
	return ret, nil
}

// TryExtract packs acc and extracts a packet from it. On success acc is
// cleared completely; on failure it is left as it was.
func (d Deframer) TryExtract(acc *Accumulator) (*Packet, error) {
	pkt, err := d.Extract(PackBits(acc.bits, d.MaxPacketSize))
	if err != nil {
		return nil, err
	}
	acc.Clear()
	return pkt, nil
}
