package session

import (
	"sort"
	"strings"
	"sync"

	"github.com/yuki-yano/vde-monitor/internal/protocol"
)

// Registry keeps the latest SessionSummary per pane. Summaries are stored
// and handed out by value.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]protocol.SessionSummary
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]protocol.SessionSummary{}}
}

// ApplySnapshot replaces the registry contents. Duplicate pane ids keep the
// last entry of the snapshot.
func (r *Registry) ApplySnapshot(summaries []protocol.SessionSummary) {
	if r == nil {
		return
	}
	next := make(map[string]protocol.SessionSummary, len(summaries))
	for _, s := range summaries {
		paneID := strings.TrimSpace(s.PaneID)
		if paneID == "" {
			continue
		}
		s.PaneID = paneID
		next[paneID] = s
	}
	r.mu.Lock()
	r.sessions = next
	r.mu.Unlock()
}

func (r *Registry) Update(s protocol.SessionSummary) {
	if r == nil {
		return
	}
	paneID := strings.TrimSpace(s.PaneID)
	if paneID == "" {
		return
	}
	s.PaneID = paneID
	r.mu.Lock()
	r.sessions[paneID] = s
	r.mu.Unlock()
}

func (r *Registry) Remove(paneID string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.sessions, strings.TrimSpace(paneID))
	r.mu.Unlock()
}

func (r *Registry) Get(paneID string) (protocol.SessionSummary, bool) {
	if r == nil {
		return protocol.SessionSummary{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[strings.TrimSpace(paneID)]
	return s, ok
}

// List returns all summaries sorted by pane id.
func (r *Registry) List() []protocol.SessionSummary {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]protocol.SessionSummary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PaneID < out[j].PaneID })
	return out
}

// PaneIDsForRepo returns the pane ids currently attached to repoRoot.
func (r *Registry) PaneIDsForRepo(repoRoot string) []string {
	if r == nil || strings.TrimSpace(repoRoot) == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for paneID, s := range r.sessions {
		if s.RepoRoot == repoRoot {
			out = append(out, paneID)
		}
	}
	sort.Strings(out)
	return out
}
