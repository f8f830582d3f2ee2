package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/tonelink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct {
	log  *chat.Log
	sent []string
}

func newFakeLink() *fakeLink {
	return &fakeLink{log: chat.NewLog(chat.DefaultCapacity, chat.DefaultMaxNameLength, chat.DefaultMaxTextLength)}
}

func (f *fakeLink) Send(text string) chat.Message {
	f.sent = append(f.sent, text)
	return f.log.Append(text, chat.LocalName, chat.RemoteName)
}

func (f *fakeLink) ChatLog() *chat.Log {
	return f.log
}

func (f *fakeLink) Stats() tonelink.Stats {
	return tonelink.Stats{PacketsReceived: 2, MessagesSent: uint64(len(f.sent))}
}

func TestListMessagesPages(t *testing.T) {
	link := newFakeLink()
	for i := 0; i < 5; i++ {
		link.log.Append(fmt.Sprintf("msg %d", i), chat.RemoteName, chat.LocalName)
	}
	srv := httptest.NewServer(NewServer(0, link).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/messages?offset=1&limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body messagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 5, body.Count)
	assert.Equal(t, chat.DefaultCapacity, body.Capacity)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "msg 2", body.Messages[0].Text)
	assert.Equal(t, "msg 3", body.Messages[1].Text)

	resp2, err := http.Get(srv.URL + "/messages?limit=abc")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestSendMessage(t *testing.T) {
	link := newFakeLink()
	srv := httptest.NewServer(NewServer(0, link).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/messages", "application/json", strings.NewReader(`{"text":"babka"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var msg chat.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "babka", msg.Text)
	assert.Equal(t, chat.LocalName, msg.Sender)
	assert.Equal(t, []string{"babka"}, link.sent)

	for _, body := range []string{`{"text":""}`, `not json`} {
		resp, err := http.Post(srv.URL+"/messages", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Len(t, link.sent, 1)
}

func TestStats(t *testing.T) {
	link := newFakeLink()
	link.Send("one")
	srv := httptest.NewServer(NewServer(0, link).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, float64(2), stats["packets_received"])
	assert.Equal(t, float64(1), stats["messages_sent"])
}
