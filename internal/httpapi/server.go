// Package httpapi serves the read-only code lookup API and the discovery event stream.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"code_tracker/internal/metrics"
	"code_tracker/internal/model"
	"code_tracker/internal/notify"
)

// GameIndex resolves public game slugs.
type GameIndex interface {
	Games() []model.GameConfig
	BySlug(slug string) (model.GameConfig, bool)
}

// CodeLister reads stored codes of one game.
type CodeLister interface {
	ListCodes(ctx context.Context, game string) ([]model.CodeRecord, error)
}

// EventSource hands out discovery subscriptions.
type EventSource interface {
	Subscribe(buffer int) *notify.Subscription
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	games    GameIndex
	codes    CodeLister
	events   EventSource
	gatherer prometheus.Gatherer
	log      *slog.Logger
}

// New creates a Server. gatherer may be nil, in which case /metrics is not mounted.
func New(games GameIndex, codes CodeLister, events EventSource, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	return &Server{
		games:    games,
		codes:    codes,
		events:   events,
		gatherer: gatherer,
		log:      log,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(newLoggingMiddleware(s.log))
	r.Use(corsMiddleware)

	r.Get("/healthz", s.healthz)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/games", s.listGames)
		r.Get("/codes/{game}", s.listCodes)
		r.Get("/events", s.streamEvents)
	})
	return r
}

type codeResponse struct {
	Code   string `json:"code"`
	Reward string `json:"reward"`
	Date   string `json:"date"`
	URL    string `json:"url"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type gameResponse struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listGames(w http.ResponseWriter, _ *http.Request) {
	games := s.games.Games()
	out := make([]gameResponse, 0, len(games))
	for _, g := range games {
		out = append(out, gameResponse{Slug: g.Slug, Name: g.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listCodes(w http.ResponseWriter, r *http.Request) {
	game, ok := s.games.BySlug(chi.URLParam(r, "game"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "无效的游戏名称"})
		return
	}

	codes, err := s.codes.ListCodes(r.Context(), game.ID)
	if err != nil {
		s.log.Error("list codes", "game", game.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	out := make([]codeResponse, 0, len(codes))
	for _, c := range codes {
		out = append(out, codeResponse{
			Code:   c.Key,
			Reward: c.Reward,
			Date:   model.FormatTime(&c.DiscoveredAt),
			URL:    c.URL,
			Start:  c.Start,
			End:    c.End,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
