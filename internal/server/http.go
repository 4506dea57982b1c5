package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scribe/internal/chatlog"
	"scribe/internal/hub"
)

// Server is the local HTTP surface: health, Prometheus metrics, the chat
// log read side, and the WebSocket hub endpoint.
type Server struct {
	srv   *http.Server
	store *chatlog.Store
	log   *slog.Logger
}

func New(addr string, store *chatlog.Store, h *hub.Hub, log *slog.Logger) *Server {
	s := &Server{store: store, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /chatlog/recent", s.handleRecent)
	mux.Handle("GET /ws", h.Handler())

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves in the background. Errors other than a clean close are
// logged, not fatal; the pipeline works without the HTTP surface.
func (s *Server) Start() {
	go func() {
		s.log.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server failed", "err", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type entryJSON struct {
	Role       string    `json:"role"`
	Text       string    `json:"text"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 1000 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be 1..1000"})
			return
		}
		n = parsed
	}

	entries, err := s.store.Recent(n)
	if err != nil {
		s.log.Error("chatlog read failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "chatlog read failed"})
		return
	}

	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			Role:       e.Role,
			Text:       e.Text,
			StartedAt:  e.StartedAt,
			FinishedAt: e.FinishedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
