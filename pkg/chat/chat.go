package chat

import (
	"sync"
	"time"
	"unicode/utf8"
)

const (
	DefaultCapacity      = 50
	DefaultMaxNameLength = 20
	DefaultMaxTextLength = 400

	// LocalName and RemoteName are the default parties of the link.
	LocalName  = "unkey"
	RemoteName = "the void"
)

type Direction int

const (
	Sent Direction = iota
	Received
)

func (d Direction) String() string {
	switch d {
	case Sent:
		return "sent"
	case Received:
		return "received"
	default:
		return "unknown"
	}
}

type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Text      string    `json:"text"`
}

// Snapshot is a consistent copy of the log, oldest message first.
type Snapshot struct {
	Messages   []Message `json:"messages"`
	Count      int       `json:"count"`
	WriteIndex int       `json:"write_index"`
	Capacity   int       `json:"capacity"`
}

// Event is emitted after every append.
type Event struct {
	Message   Message
	Direction Direction
	Snapshot  Snapshot
}

// Log is a fixed-capacity ring of messages. Once full, each append overwrites
// the oldest entry.
type Log struct {
	mu            sync.RWMutex
	entries       []Message
	writeIndex    int
	count         int
	maxNameLength int
	maxTextLength int
	now           func() time.Time
}

func NewLog(capacity, maxNameLength, maxTextLength int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{
		entries:       make([]Message, capacity),
		maxNameLength: maxNameLength,
		maxTextLength: maxTextLength,
		now:           time.Now,
	}
}

// truncate keeps at most limit-1 bytes; the last byte of each field limit is
// the terminator on the wire side. A cut never splits a multi-byte rune.
func truncate(s string, limit int) string {
	if limit < 1 {
		return ""
	}
	if len(s) <= limit-1 {
		return s
	}
	end := limit - 1
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

func (l *Log) Append(text, sender, recipient string) Message {
	msg := Message{
		Timestamp: l.now(),
		Sender:    truncate(sender, l.maxNameLength),
		Recipient: truncate(recipient, l.maxNameLength),
		Text:      truncate(text, l.maxTextLength),
	}

	l.mu.Lock()
	l.entries[l.writeIndex] = msg
	l.writeIndex = (l.writeIndex + 1) % len(l.entries)
	if l.count < len(l.entries) {
		l.count++
	}
	l.mu.Unlock()

	return msg
}

func (l *Log) Capacity() int {
	return len(l.entries)
}

func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

func (l *Log) WriteIndex() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.writeIndex
}

// At returns the raw ring slot i.
func (l *Log) At(i int) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.entries) {
		return Message{}, false
	}
	if l.count < len(l.entries) && i >= l.count {
		return Message{}, false
	}
	return l.entries[i], true
}

// Latest returns the most recently appended message.
func (l *Log) Latest() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.count == 0 {
		return Message{}, false
	}
	n := len(l.entries)
	return l.entries[(l.writeIndex-1+n)%n], true
}

func (l *Log) messagesLocked() []Message {
	n := len(l.entries)
	ret := make([]Message, l.count)
	first := (l.writeIndex - l.count + n) % n
	for i := 0; i < l.count; i++ {
		ret[i] = l.entries[(first+i)%n]
	}
	return ret
}

// Messages returns the stored messages, oldest first.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.messagesLocked()
}

// Page returns up to n messages ending offset messages before the newest,
// oldest first. It backs a scrolling view.
func (l *Log) Page(offset, n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.messagesLocked()
	if offset < 0 {
		offset = 0
	}
	end := len(all) - offset
	if end <= 0 || n <= 0 {
		return []Message{}
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return all[start:end]
}

func (l *Log) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Messages:   l.messagesLocked(),
		Count:      l.count,
		WriteIndex: l.writeIndex,
		Capacity:   len(l.entries),
	}
}
