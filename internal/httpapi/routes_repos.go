package httpapi

import (
	"net/http"
	"strings"

	"github.com/yuki-yano/vde-monitor/internal/timeline"
)

func (s *Server) registerRepoRoutes() {
	s.mux.HandleFunc("/api/v1/repos", s.requireAuth(s.handleReposList))
	s.mux.HandleFunc("/api/v1/repos/activity", s.requireAuth(s.handleRepoActivity))
}

func (s *Server) handleReposList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}
	respondOK(w, map[string]any{
		"repoRoots": s.deps.Store.ListRepoRoots(r.URL.Query().Get("range")),
	})
}

func (s *Server) handleRepoActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}
	repoRoot := strings.TrimSpace(r.URL.Query().Get("repoRoot"))
	if repoRoot == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "repoRoot is required")
		return
	}
	respondOK(w, s.deps.Store.GetRepoActivityMetrics(timeline.RepoActivityQuery{
		RepoRoot: repoRoot,
		Range:    r.URL.Query().Get("range"),
	}))
}
