package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/modem/fsk"
	"github.com/norasector/tonelink/pkg/tonelink"
	"github.com/norasector/tonelink/pkg/tonelink/device/loopback"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedLines struct {
	ishell.Actions

	mu    sync.Mutex
	lines []string
}

func (c *capturedLines) Println(val ...interface{}) {
	c.mu.Lock()
	c.lines = append(c.lines, strings.TrimSuffix(fmt.Sprintln(val...), "\n"))
	c.mu.Unlock()
}

func (c *capturedLines) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func shellLink(t *testing.T) *tonelink.Link {
	dev := loopback.NewLoopbackDevice(40)
	link, err := tonelink.NewLink(dev, dev, tonelink.Options{
		SampleRate: 8000,
		WindowSize: 40,
		Decimation: 1,
		Tone: fsk.ToneParameters{
			FreqLow:   1000,
			FreqHigh:  2000,
			BitPeriod: 5 * time.Millisecond,
		},
		Amplitude:       0.8,
		MaxPacketSize:   405,
		MaxTextLength:   400,
		AccumulatorBits: 405 * 8,
	}, tonelink.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return link
}

func runCommand(t *testing.T, link *tonelink.Link, name string, args ...string) []string {
	out := &capturedLines{}
	c := &ishell.Context{Args: args, Actions: out}
	c.Set(linkKey, link)

	for _, cmd := range shellCommands {
		if cmd.Name == name {
			cmd.Func(c)
			return out.get()
		}
	}
	t.Fatalf("no command %q", name)
	return nil
}

func TestParseHistoryArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		n, offset  int
		shouldFail bool
	}{
		{"defaults", nil, historyLength, 0, false},
		{"count", []string{"3"}, 3, 0, false},
		{"count and offset", []string{"3", "2"}, 3, 2, false},
		{"bad count", []string{"many"}, 0, 0, true},
		{"bad offset", []string{"3", "back"}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, offset, err := parseHistoryArgs(tt.args)
			if tt.shouldFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestShellCommands(t *testing.T) {
	link := shellLink(t)

	assert.Equal(t, []string{"nothing to send"}, runCommand(t, link, "send"))

	lines := runCommand(t, link, "send", "hello", "there")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], "unkey -> the void: hello there"), lines[0])

	runCommand(t, link, "send", "babka")

	lines = runCommand(t, link, "history")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ": hello there"))
	assert.True(t, strings.HasSuffix(lines[1], ": babka"))

	lines = runCommand(t, link, "history", "1", "1")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], ": hello there"))

	assert.Empty(t, runCommand(t, link, "history", "nope"))

	lines = runCommand(t, link, "stats")
	require.Len(t, lines, 1)
	var stats tonelink.Stats
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &stats))
	assert.Equal(t, uint64(2), stats.MessagesSent)
}

func TestShellPrinterEchoesReceived(t *testing.T) {
	out := &capturedLines{}
	p := newShellPrinter(out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Start(ctx)
	}()

	msg := chat.Message{
		Timestamp: time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC),
		Sender:    chat.RemoteName,
		Recipient: chat.LocalName,
		Text:      "babka",
	}
	p.Receive() <- chat.Event{Message: chat.Message{Text: "outgoing"}, Direction: chat.Sent}
	p.Receive() <- chat.Event{Message: msg, Direction: chat.Received}

	require.Eventually(t, func() bool {
		return len(out.get()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"[12:30:05] the void -> unkey: babka"}, out.get())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
