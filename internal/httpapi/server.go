package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yuki-yano/vde-monitor/internal/protocol"
	"github.com/yuki-yano/vde-monitor/internal/session"
	"github.com/yuki-yano/vde-monitor/internal/timeline"
)

// Commander is the coordinated request surface the API exposes to clients.
type Commander interface {
	RequestScreen(ctx context.Context, req protocol.ScreenRequest) protocol.ScreenResponse
	SendText(ctx context.Context, paneID, text string, enter bool, requestID string) protocol.CommandResult
	SendKeys(ctx context.Context, paneID string, keys []string) protocol.CommandResult
	Touch(ctx context.Context, paneID string) protocol.CommandResult
	Focus(ctx context.Context, paneID string) protocol.CommandResult
	KillPane(ctx context.Context, paneID string) protocol.CommandResult
	SetTitle(ctx context.Context, paneID string, title *string) protocol.CommandResult
	Launch(ctx context.Context, req protocol.LaunchRequest) protocol.CommandResult
}

type Deps struct {
	Store     *timeline.Store
	Registry  *session.Registry
	Conn      *session.ConnState
	Commander Commander
	AuthToken string
	Logger    *slog.Logger
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub()}
	s.registerSessionRoutes()
	s.registerRepoRoutes()
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/ws", s.requireAuth(s.hub.HandleWS))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]any{"status": "ok"})
}

// PublishTimelineUpdated pushes a timeline change notification to connected
// clients. Safe to call from any goroutine.
func (s *Server) PublishTimelineUpdated(paneID string) {
	s.hub.Publish("timeline.updated", paneID, map[string]any{})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(s.deps.AuthToken)
		if token == "" {
			next(w, r)
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got != token {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing token")
			return
		}
		next(w, r)
	}
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
