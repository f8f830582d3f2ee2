package frame

// Packet markers. A packet on the air is Header, payload, Footer; Frame also
// appends Terminator.
const (
	HeaderStart byte = 0x01
	HeaderEnd   byte = 0x02
	FooterStart byte = 0x03
	FooterEnd   byte = 0x04
	Terminator  byte = 0x00

	// Overhead is the header plus footer length.
	Overhead = 4

	DefaultMaxPacketSize = 405
	DefaultMaxTextLength = 400
)

type Framer struct {
	MaxPacketSize int
}

func NewFramer(maxPacketSize int) Framer {
	return Framer{MaxPacketSize: maxPacketSize}
}

// MaxPayload is the most text bytes Frame will carry.
func (f Framer) MaxPayload() int {
	if f.MaxPacketSize < Overhead {
		return 0
	}
	return f.MaxPacketSize - Overhead
}

// Frame wraps text in the packet markers, truncating text that does not fit.
func (f Framer) Frame(text string) []byte {
	payload := []byte(text)
	if max := f.MaxPayload(); len(payload) > max {
		payload = payload[:max]
	}

	ret := make([]byte, 0, len(payload)+Overhead+1)
	ret = append(ret, HeaderStart, HeaderEnd)
	ret = append(ret, payload...)
	ret = append(ret, FooterStart, FooterEnd, Terminator)
	return ret
}
