package session

import (
	"testing"

	"github.com/yuki-yano/vde-monitor/internal/protocol"
)

func TestRegistrySnapshotDeduplicatesByPaneID(t *testing.T) {
	r := NewRegistry()
	r.ApplySnapshot([]protocol.SessionSummary{
		{PaneID: "%1", State: "RUNNING"},
		{PaneID: "%2", State: "SHELL"},
		{PaneID: "%1", State: "WAITING_INPUT"},
		{PaneID: "  ", State: "UNKNOWN"},
	})

	got, ok := r.Get("%1")
	if !ok || got.State != "WAITING_INPUT" {
		t.Fatalf("expected last entry to win, got %+v ok=%v", got, ok)
	}
	if list := r.List(); len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
}

func TestRegistryUpdateAndRemove(t *testing.T) {
	r := NewRegistry()
	r.Update(protocol.SessionSummary{PaneID: "%5", State: "RUNNING", RepoRoot: "/repo"})
	r.Update(protocol.SessionSummary{PaneID: "%5", State: "SHELL", RepoRoot: "/repo"})

	got, ok := r.Get("%5")
	if !ok || got.State != "SHELL" {
		t.Fatalf("expected upsert, got %+v", got)
	}

	r.Remove("%5")
	if _, ok := r.Get("%5"); ok {
		t.Fatalf("expected pane removed")
	}
}

func TestRegistryPaneIDsForRepo(t *testing.T) {
	r := NewRegistry()
	r.ApplySnapshot([]protocol.SessionSummary{
		{PaneID: "%3", RepoRoot: "/a"},
		{PaneID: "%1", RepoRoot: "/a"},
		{PaneID: "%2", RepoRoot: "/b"},
	})
	ids := r.PaneIDsForRepo("/a")
	if len(ids) != 2 || ids[0] != "%1" || ids[1] != "%3" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if ids := r.PaneIDsForRepo(""); ids != nil {
		t.Fatalf("expected nil for empty repo root, got %v", ids)
	}
}
