package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"code_tracker/internal/model"
	"code_tracker/internal/notify"
)

// keepAlive is how often an idle event stream receives a comment line.
var keepAlive = 30 * time.Second

type eventPayload struct {
	Game     string `json:"game"`
	GameName string `json:"game_name"`
	Key      string `json:"key"`
}

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) writeEvent(ev model.Event) error {
	data, err := json.Marshal(eventPayload{Game: ev.Slug, GameName: ev.Game, Key: ev.Key})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, notify.Topic, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) ping() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// streamEvents relays discovery events until the client goes away or the hub closes.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	sub := s.events.Subscribe(notify.DefaultBuffer)
	defer sub.Close()

	sse, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := sse.writeEvent(ev); err != nil {
				s.log.Debug("event stream write", "error", err)
				return
			}
		case <-ticker.C:
			if err := sse.ping(); err != nil {
				return
			}
		}
	}
}
