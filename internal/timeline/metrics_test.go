package timeline

import (
	"testing"
	"time"
)

func TestRepoActivityMetricsWithOverlap(t *testing.T) {
	store, clock := newTestStore(baseMS)

	// Pane A runs [+30m, +50m]; pane B runs [+40m, now=+60m].
	store.Record(RecordInput{PaneID: "a", State: StateRunning, RepoRoot: "/repo", AtMS: baseMS + 30*60_000})
	store.Record(RecordInput{PaneID: "a", State: StateWaitingInput, RepoRoot: "/repo", AtMS: baseMS + 50*60_000})
	store.Record(RecordInput{PaneID: "b", State: StateRunning, RepoRoot: "/repo", AtMS: baseMS + 40*60_000})
	clock.advance(60 * time.Minute)

	m := store.GetRepoActivityMetrics(RepoActivityQuery{RepoRoot: "/repo", Range: "1h"})
	if m.RunningMS != 40*60_000 {
		t.Fatalf("expected runningMs 40m, got %d", m.RunningMS)
	}
	if m.RunningUnionMS != 30*60_000 {
		t.Fatalf("expected runningUnionMs 30m, got %d", m.RunningUnionMS)
	}
	if m.ExecutionCount != 2 {
		t.Fatalf("expected 2 executions, got %d", m.ExecutionCount)
	}
	if m.TotalPaneCount != 2 || m.ActivePaneCount != 2 {
		t.Fatalf("unexpected pane counts: %+v", m)
	}
	if m.Approximate {
		t.Fatalf("expected exact metrics, got approximate: %+v", m)
	}
}

func TestRepoActivityMetricsRetentionApproximation(t *testing.T) {
	clock := &fakeClock{nowMS: baseMS}
	store := NewStore(Options{Clock: clock, RetentionMS: 30 * 60_000})

	store.Record(RecordInput{PaneID: "p", State: StateRunning, RepoRoot: "/repo", AtMS: baseMS + 45*60_000})
	clock.nowMS = baseMS + 60*60_000

	m := store.GetRepoActivityMetrics(RepoActivityQuery{RepoRoot: "/repo", Range: "1h"})
	if !m.Approximate || m.ApproximationReason != "retention_clipped" {
		t.Fatalf("expected retention approximation, got %+v", m)
	}
	if m.RunningMS != 15*60_000 {
		t.Fatalf("expected 15m running, got %d", m.RunningMS)
	}
}

func TestRepoActivityMetricsCountsOnlyWindowStarts(t *testing.T) {
	store, clock := newTestStore(baseMS)
	// Started before the 15m window but still running inside it.
	store.Record(RecordInput{PaneID: "p", State: StateRunning, RepoRoot: "/repo", AtMS: baseMS - 30*60_000})
	clock.advance(0)

	m := store.GetRepoActivityMetrics(RepoActivityQuery{RepoRoot: "/repo", Range: "15m"})
	if m.ExecutionCount != 0 {
		t.Fatalf("expected no executions counted, got %d", m.ExecutionCount)
	}
	if m.RunningMS != 15*60_000 {
		t.Fatalf("expected clipped running duration, got %d", m.RunningMS)
	}
	if m.ActivePaneCount != 1 {
		t.Fatalf("expected 1 active pane, got %d", m.ActivePaneCount)
	}
}

func TestUnionMeasure(t *testing.T) {
	if got := unionMeasure(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %d", got)
	}
	spans := []span{{0, 10}, {5, 20}, {30, 40}, {40, 45}, {100, 101}}
	if got := unionMeasure(spans); got != 20+15+1 {
		t.Fatalf("unexpected union measure %d", got)
	}
	// Unsorted input with full containment.
	spans = []span{{50, 60}, {0, 100}}
	if got := unionMeasure(spans); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}
