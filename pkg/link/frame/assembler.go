package frame

import (
	"errors"

	"github.com/rs/zerolog"
)

// Result describes what one received bit did to the assembler.
type Result struct {
	// Appended is false when the accumulator was full and the bit was dropped.
	Appended bool
	// Packet is set when the bit completed a packet.
	Packet *Packet
	// Err is ErrNoHeader or ErrNoFooter while a packet is still incomplete.
	Err error
}

// Assembler takes demodulated bits, one bit per byte, and assembles them into
// packets.
type Assembler struct {
	acc      *Accumulator
	deframer Deframer
	logger   zerolog.Logger
}

func NewAssembler(accumulatorBits int, deframer Deframer, logger zerolog.Logger) *Assembler {
	return &Assembler{
		acc:      NewAccumulator(accumulatorBits),
		deframer: deframer,
		logger:   logger,
	}
}

// Receive appends bit and makes one extraction attempt.
func (a *Assembler) Receive(bit byte) Result {
	var ret Result
	ret.Appended = a.acc.Append(bit)
	if !ret.Appended {
		a.logger.Debug().
			Int("capacity", a.acc.Cap()).
			Uint64("dropped", a.acc.Dropped()).
			Msg("bit accumulator full, dropping bit")
	}

	pkt, err := a.deframer.TryExtract(a.acc)
	switch {
	case err == nil:
		ret.Packet = pkt
		a.logger.Debug().
			Int("length", len(pkt.Payload)).
			Bool("truncated", pkt.Truncated).
			Msg("packet extracted")
	case errors.Is(err, ErrNoHeader), errors.Is(err, ErrNoFooter):
		ret.Err = err
		if a.acc.Len()%8 == 0 {
			a.logger.Debug().Err(err).Int("bits", a.acc.Len()).Msg("packet incomplete")
		}
	}

	return ret
}

func (a *Assembler) Accumulator() *Accumulator {
	return a.acc
}
