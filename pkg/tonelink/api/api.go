package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/tonelink"
	"github.com/rs/zerolog/log"
)

const defaultPageSize = 20

// Link is the part of a tonelink.Link the API drives.
type Link interface {
	Send(text string) chat.Message
	ChatLog() *chat.Log
	Stats() tonelink.Stats
}

type sendRequest struct {
	Text string `json:"text"`
}

type messagesResponse struct {
	Messages []chat.Message `json:"messages"`
	Count    int            `json:"count"`
	Capacity int            `json:"capacity"`
	Offset   int            `json:"offset"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	link Link
	srv  *http.Server
}

func NewServer(port int, link Link) *Server {
	s := &Server{
		link: link,
		srv:  &http.Server{Addr: fmt.Sprintf(":%d", port)},
	}
	s.srv.Handler = s.Handler()
	return s
}

func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/messages", s.listMessages)
	router.POST("/messages", s.sendMessage)
	router.GET("/stats", s.stats)
	return router
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.srv.Shutdown(context.Background())
	}()

	log.Info().Str("addr", s.srv.Addr).Msg("api server starting")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("error writing response")
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// listMessages returns a page of the log, oldest first. offset counts back
// from the newest message.
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	chatLog := s.link.ChatLog()
	writeJSON(w, http.StatusOK, messagesResponse{
		Messages: chatLog.Page(offset, limit),
		Count:    chatLog.Count(),
		Capacity: chatLog.Capacity(),
		Offset:   offset,
	})
}

// sendMessage transmits the posted text and answers once it is on the air.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{"text must not be empty"})
		return
	}

	msg := s.link.Send(req.Text)
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.link.Stats())
}
