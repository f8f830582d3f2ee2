package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/tonelink"
	"github.com/norasector/tonelink/pkg/tonelink/output"
)

const (
	linkKey       = "$link"
	historyLength = 10
)

func linkFrom(c *ishell.Context) *tonelink.Link {
	return c.Get(linkKey).(*tonelink.Link)
}

var shellCommands = []*ishell.Cmd{
	{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "TEXT: transmit a message",
		Func: func(c *ishell.Context) {
			text := strings.Join(c.Args, " ")
			if text == "" {
				c.Println("nothing to send")
				return
			}
			msg := linkFrom(c).Send(text)
			c.Println(output.FormatMessage(msg))
		},
	},
	{
		Name:    "history",
		Aliases: []string{"h"},
		Help:    "[N] [OFFSET]: show the last N messages",
		Func: func(c *ishell.Context) {
			n, offset, err := parseHistoryArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			for _, msg := range linkFrom(c).ChatLog().Page(offset, n) {
				c.Println(output.FormatMessage(msg))
			}
		},
	},
	{
		Name: "stats",
		Help: "show link counters",
		Func: func(c *ishell.Context) {
			out, err := json.MarshalIndent(linkFrom(c).Stats(), "", "  ")
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(string(out))
		},
	},
}

// parseHistoryArgs reads the optional count and offset of the history command.
func parseHistoryArgs(args []string) (n, offset int, err error) {
	n = historyLength
	if len(args) > 0 {
		if n, err = strconv.Atoi(args[0]); err != nil {
			return 0, 0, fmt.Errorf("invalid count %q: %w", args[0], err)
		}
	}
	if len(args) > 1 {
		if offset, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, fmt.Errorf("invalid offset %q: %w", args[1], err)
		}
	}
	return n, offset, nil
}

type printer interface {
	Println(val ...interface{})
}

// shellPrinter echoes received messages into the shell.
type shellPrinter struct {
	shell printer
	ch    chan chat.Event
}

func newShellPrinter(shell printer) *shellPrinter {
	return &shellPrinter{shell: shell, ch: make(chan chat.Event, historyLength)}
}

func (p *shellPrinter) Receive() chan<- chat.Event {
	return p.ch
}

func (p *shellPrinter) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-p.ch:
			if evt.Direction == chat.Received {
				p.shell.Println(output.FormatMessage(evt.Message))
			}
		}
	}
}

// newShell builds the shell; the link is attached with shell.Set once it
// exists.
func newShell() *ishell.Shell {
	shell := ishell.New()
	shell.SetPrompt("tonelink > ")
	for _, cmd := range shellCommands {
		shell.AddCmd(cmd)
	}
	return shell
}
