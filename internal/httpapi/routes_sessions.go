package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yuki-yano/vde-monitor/internal/hooks"
	"github.com/yuki-yano/vde-monitor/internal/protocol"
	"github.com/yuki-yano/vde-monitor/internal/timeline"
)

const maxStateBodyBytes = 1 << 20

func (s *Server) registerSessionRoutes() {
	s.mux.HandleFunc("/api/v1/sessions", s.requireAuth(s.handleSessionsList))
	s.mux.HandleFunc("/api/v1/sessions/launch", s.requireAuth(s.handleLaunch))
	s.mux.HandleFunc("/api/v1/sessions/", s.requireAuth(s.handleSessionActions))
}

func (s *Server) handleSessionsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}
	connection := ""
	if s.deps.Conn != nil {
		connection = string(s.deps.Conn.Status())
	}
	respondOK(w, map[string]any{
		"sessions":   s.deps.Registry.List(),
		"connection": connection,
	})
}

func (s *Server) handleSessionActions(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		return
	}
	paneID := protocol.DecodePaneID(parts[0])
	action := strings.Join(parts[1:], "/")

	switch {
	case action == "timeline" && r.Method == http.MethodGet:
		s.handleTimeline(w, r, paneID)
	case action == "state" && r.Method == http.MethodPost:
		s.handleStateIngest(w, r, paneID)
	case action == "close" && r.Method == http.MethodPost:
		s.handleClose(w, paneID)
	case action == "screen" && r.Method == http.MethodPost:
		s.handleScreen(w, r, paneID)
	case action == "send/text" && r.Method == http.MethodPost:
		s.handleSendText(w, r, paneID)
	case action == "send/keys" && r.Method == http.MethodPost:
		s.handleSendKeys(w, r, paneID)
	case action == "touch" && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, s.deps.Commander.Touch(r.Context(), paneID))
	case action == "focus" && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, s.deps.Commander.Focus(r.Context(), paneID))
	case action == "kill" && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, s.deps.Commander.KillPane(r.Context(), paneID))
	case action == "title" && r.Method == http.MethodPut:
		s.handleSetTitle(w, r, paneID)
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	}
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request, paneID string) {
	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "limit must be an integer")
			return
		}
		limit = n
	}
	rangeTag := q.Get("range")

	if q.Get("scope") == "repo" {
		s.handleRepoScopedTimeline(w, paneID, rangeTag, limit)
		return
	}
	respondOK(w, s.deps.Store.GetTimeline(timeline.TimelineQuery{
		PaneID: paneID,
		Range:  rangeTag,
		Limit:  limit,
	}))
}

// handleRepoScopedTimeline aggregates the anchor pane together with every
// registered pane sharing its repo root.
func (s *Server) handleRepoScopedTimeline(w http.ResponseWriter, paneID, rangeTag string, limit int) {
	var paneIDs []string
	if summary, ok := s.deps.Registry.Get(paneID); ok && summary.RepoRoot != "" {
		paneIDs = s.deps.Registry.PaneIDsForRepo(summary.RepoRoot)
	}
	respondOK(w, s.deps.Store.GetRepoTimeline(timeline.RepoTimelineQuery{
		PaneID:  paneID,
		PaneIDs: paneIDs,
		Range:   rangeTag,
		Limit:   limit,
	}))
}

// handleStateIngest accepts either a raw agent hook payload or a direct
// sample. Hook payloads are recognized by hook_event_name.
func (s *Server) handleStateIngest(w http.ResponseWriter, r *http.Request, paneID string) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxStateBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	if in, ok := hooks.MapEvent(paneID, raw); ok {
		s.deps.Store.Record(in)
		s.PublishTimelineUpdated(paneID)
		respondOK(w, map[string]any{"state": in.State})
		return
	}

	var req struct {
		State    string `json:"state"`
		Reason   string `json:"reason"`
		Source   string `json:"source"`
		RepoRoot string `json:"repoRoot"`
		At       int64  `json:"at"`
	}
	if err := json.Unmarshal(raw, &req); err != nil || strings.TrimSpace(req.State) == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "state or hook_event_name is required")
		return
	}
	in := timeline.RecordInput{
		PaneID:   paneID,
		State:    timeline.State(req.State),
		Reason:   req.Reason,
		Source:   timeline.Source(req.Source),
		RepoRoot: req.RepoRoot,
		AtMS:     req.At,
	}
	s.deps.Store.Record(in)
	s.PublishTimelineUpdated(paneID)
	respondOK(w, map[string]any{"state": in.State})
}

func (s *Server) handleClose(w http.ResponseWriter, paneID string) {
	s.deps.Store.ClosePane(paneID, 0)
	s.PublishTimelineUpdated(paneID)
	respondOK(w, map[string]any{"paneId": paneID})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request, paneID string) {
	var req protocol.ScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	req.PaneID = paneID
	respondOK(w, map[string]any{"screen": s.deps.Commander.RequestScreen(r.Context(), req)})
}

func (s *Server) handleSendText(w http.ResponseWriter, r *http.Request, paneID string) {
	var req struct {
		Text      string `json:"text"`
		Enter     bool   `json:"enter"`
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	writeJSON(w, http.StatusOK, s.deps.Commander.SendText(r.Context(), paneID, req.Text, req.Enter, req.RequestID))
}

func (s *Server) handleSendKeys(w http.ResponseWriter, r *http.Request, paneID string) {
	var req struct {
		Keys []string `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Commander.SendKeys(r.Context(), paneID, req.Keys))
}

func (s *Server) handleSetTitle(w http.ResponseWriter, r *http.Request, paneID string) {
	var req struct {
		Title *string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Commander.SetTitle(r.Context(), paneID, req.Title))
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST")
		return
	}
	var req protocol.LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Commander.Launch(r.Context(), req))
}
