package output

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/norasector/tonelink/pkg/chat"
)

const eventBufferLength int = 8

// ConsolePrinter writes one line per chat event. Output is flushed once the
// event queue drains or a flush interval passes, whichever comes first.
type ConsolePrinter struct {
	dest          io.Writer
	recvChan      chan chat.Event
	flushInterval time.Duration
	directions    map[chat.Direction]struct{}
}

// NewConsolePrinter prints events in the given directions, or all events
// when none are given.
func NewConsolePrinter(dest io.Writer, directions ...chat.Direction) *ConsolePrinter {
	ret := &ConsolePrinter{
		dest:          dest,
		recvChan:      make(chan chat.Event, eventBufferLength),
		flushInterval: 250 * time.Millisecond,
		directions:    make(map[chat.Direction]struct{}),
	}

	for _, d := range directions {
		ret.directions[d] = struct{}{}
	}

	return ret
}

func (c *ConsolePrinter) Receive() chan<- chat.Event {
	return c.recvChan
}

func FormatMessage(msg chat.Message) string {
	return fmt.Sprintf("[%s] %s -> %s: %s", msg.Timestamp.Format("15:04:05"), msg.Sender, msg.Recipient, msg.Text)
}

func (c *ConsolePrinter) Start(ctx context.Context) error {
	w := bufio.NewWriter(c.dest)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Flush()
			return ctx.Err()

		case <-ticker.C:
			if w.Buffered() > 0 {
				if err := w.Flush(); err != nil {
					return err
				}
			}

		case evt := <-c.recvChan:
			if len(c.directions) > 0 {
				if _, ok := c.directions[evt.Direction]; !ok {
					continue
				}
			}

			if _, err := fmt.Fprintln(w, FormatMessage(evt.Message)); err != nil {
				return err
			}
			if len(c.recvChan) == 0 {
				if err := w.Flush(); err != nil {
					return err
				}
			}
		}
	}
}
