package timeline

import (
	"strconv"
	"testing"
	"time"
)

func TestRepoTimelinePriorityAndCoalescing(t *testing.T) {
	store, clock := newTestStore(baseMS)

	// Pane A: WAITING_INPUT from t0, RUNNING from +20m.
	store.Record(RecordInput{PaneID: "a", State: StateWaitingInput, AtMS: baseMS})
	store.Record(RecordInput{PaneID: "a", State: StateRunning, AtMS: baseMS + 20*60_000})
	// Pane B: WAITING_PERMISSION from +10m, WAITING_INPUT from +25m.
	store.Record(RecordInput{PaneID: "b", State: StateWaitingPermission, AtMS: baseMS + 10*60_000})
	store.Record(RecordInput{PaneID: "b", State: StateWaitingInput, AtMS: baseMS + 25*60_000})
	clock.advance(30 * time.Minute)

	tl := store.GetRepoTimeline(RepoTimelineQuery{PaneID: "a", PaneIDs: []string{"a", "b"}, Range: "1h"})
	if len(tl.Items) != 3 {
		t.Fatalf("expected 3 aggregated segments, got %d: %+v", len(tl.Items), tl.Items)
	}
	// Descending: RUNNING (open, 5m), WAITING_PERMISSION (15m), WAITING_INPUT (10m).
	if tl.Items[0].State != StateRunning || !tl.Items[0].Open || tl.Items[0].DurationMS != 5*60_000 {
		t.Fatalf("unexpected newest segment: %+v", tl.Items[0])
	}
	if tl.Items[1].State != StateWaitingPermission || tl.Items[1].DurationMS != 15*60_000 {
		t.Fatalf("unexpected permission segment: %+v", tl.Items[1])
	}
	if tl.Items[2].State != StateWaitingInput || tl.Items[2].DurationMS != 10*60_000 {
		t.Fatalf("unexpected input segment: %+v", tl.Items[2])
	}
	if tl.TotalsMS[StateRunning] != 5*60_000 || tl.TotalsMS[StateWaitingPermission] != 15*60_000 || tl.TotalsMS[StateWaitingInput] != 10*60_000 {
		t.Fatalf("unexpected totals: %v", tl.TotalsMS)
	}
	for i := 1; i < len(tl.Items); i++ {
		prev, cur := tl.Items[i-1], tl.Items[i]
		if prev.State == cur.State && prev.Open == cur.Open && cur.EndedAt == prev.StartedAt {
			t.Fatalf("adjacent segments not coalesced: %+v %+v", prev, cur)
		}
	}
	if tl.Current == nil || tl.Current.State != StateRunning {
		t.Fatalf("expected open RUNNING current, got %+v", tl.Current)
	}
}

func TestRepoTimelineEmptyWithoutIntervals(t *testing.T) {
	store, _ := newTestStore(baseMS)
	tl := store.GetRepoTimeline(RepoTimelineQuery{PaneID: "a", PaneIDs: []string{"a", "b"}, Range: "1h"})
	if len(tl.Items) != 0 || tl.Current != nil {
		t.Fatalf("expected empty repo timeline, got %+v", tl)
	}
}

func TestRepoTimelineSyntheticIDs(t *testing.T) {
	store, clock := newTestStore(baseMS)
	store.Record(RecordInput{PaneID: "a", State: StateRunning, AtMS: baseMS})
	clock.advance(10 * time.Minute)

	tl := store.GetRepoTimeline(RepoTimelineQuery{PaneID: "a", Range: "1h", ItemIDPrefix: "roll", AggregateReason: "repo:roll"})
	if len(tl.Items) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(tl.Items))
	}
	item := tl.Items[0]
	wantID := "roll:a:" + strconv.FormatInt(item.StartedAt, 10) + ":0"
	if item.ID != wantID {
		t.Fatalf("unexpected synthetic id %q, want %q", item.ID, wantID)
	}
	if item.Reason != "repo:roll" {
		t.Fatalf("unexpected reason %q", item.Reason)
	}
}

func TestDominantSourcePrefersHookThenRestore(t *testing.T) {
	active := []Interval{{Source: SourcePoll}, {Source: SourceRestore}}
	if got := dominantSource(active); got != SourceRestore {
		t.Fatalf("expected restore, got %s", got)
	}
	active = append(active, Interval{Source: SourceHook})
	if got := dominantSource(active); got != SourceHook {
		t.Fatalf("expected hook, got %s", got)
	}
	if got := dominantSource([]Interval{{Source: SourcePoll}}); got != SourcePoll {
		t.Fatalf("expected poll, got %s", got)
	}
}
