package timeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	DefaultRetentionMS     = int64(7 * 24 * 60 * 60 * 1000)
	DefaultMaxItemsPerPane = 1000

	defaultAggregateReason = "repo:aggregate"
	defaultItemIDPrefix    = "repo"
)

// Store owns per-pane state events. All mutation and query paths take the
// store mutex; nothing blocks while it is held.
type Store struct {
	mu              sync.Mutex
	clock           Clock
	retentionMS     int64
	maxItemsPerPane int
	seq             int64
	events          map[string][]Event
}

type Options struct {
	Clock           Clock
	RetentionMS     int64
	MaxItemsPerPane int
}

func NewStore(opts Options) *Store {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	retention := opts.RetentionMS
	if retention <= 0 {
		retention = DefaultRetentionMS
	}
	maxItems := opts.MaxItemsPerPane
	if maxItems <= 0 {
		maxItems = DefaultMaxItemsPerPane
	}
	return &Store{
		clock:           clock,
		retentionMS:     retention,
		maxItemsPerPane: maxItems,
		events:          map[string][]Event{},
	}
}

func (s *Store) RetentionMS() int64 {
	if s == nil {
		return 0
	}
	return s.retentionMS
}

// RecordInput describes one observed state sample. AtMS == 0 means "now".
type RecordInput struct {
	PaneID   string
	State    State
	Reason   string
	Source   Source
	RepoRoot string
	AtMS     int64
}

// Record ingests a state sample. Empty pane ids are ignored; timestamps are
// clamped so pane time never moves backwards. A sample equal to the open
// event's (state, repoRoot) merges into it instead of appending.
func (s *Store) Record(in RecordInput) {
	if s == nil {
		return
	}
	paneID := strings.TrimSpace(in.PaneID)
	if paneID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMS := s.clock.Now().UnixMilli()
	atMS := in.AtMS
	if atMS <= 0 {
		atMS = nowMS
	}
	state := normalizeState(in.State)
	source := normalizeSource(in.Source)
	repoRoot := strings.TrimSpace(in.RepoRoot)

	events := s.pruneLocked(paneID, nowMS)
	if n := len(events); n > 0 {
		last := &events[n-1]
		boundary := last.EndedAt
		if last.open() {
			boundary = last.StartedAt
		}
		if atMS < boundary {
			atMS = boundary
		}
		if last.open() {
			if last.State == state && last.RepoRoot == repoRoot {
				last.Reason = in.Reason
				last.Source = source
				s.events[paneID] = events
				return
			}
			end := atMS
			if end < last.StartedAt {
				end = last.StartedAt
			}
			last.EndedAt = end
		}
	}

	s.seq++
	events = append(events, Event{
		ID:        formatEventID(paneID, atMS, s.seq),
		PaneID:    paneID,
		State:     state,
		Reason:    in.Reason,
		Source:    source,
		RepoRoot:  repoRoot,
		StartedAt: atMS,
	})
	s.events[paneID] = s.capLocked(pruneEvents(events, nowMS-s.retentionMS))
}

// ClosePane ends the pane's open event, if any. AtMS == 0 means "now".
func (s *Store) ClosePane(paneID string, atMS int64) {
	if s == nil {
		return
	}
	paneID = strings.TrimSpace(paneID)
	if paneID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMS := s.clock.Now().UnixMilli()
	if atMS <= 0 {
		atMS = nowMS
	}
	events := s.pruneLocked(paneID, nowMS)
	n := len(events)
	if n == 0 {
		return
	}
	last := &events[n-1]
	if !last.open() {
		return
	}
	end := atMS
	if end < last.StartedAt {
		end = last.StartedAt
	}
	last.EndedAt = end
	s.events[paneID] = events
}

// Item is a clipped, duration-enriched event as returned to clients.
type Item struct {
	ID         string `json:"id"`
	PaneID     string `json:"paneId"`
	State      State  `json:"state"`
	Reason     string `json:"reason"`
	Source     Source `json:"source"`
	RepoRoot   string `json:"repoRoot,omitempty"`
	StartedAt  int64  `json:"startedAt"`
	EndedAt    int64  `json:"endedAt"`
	Open       bool   `json:"open"`
	DurationMS int64  `json:"durationMs"`
}

type Timeline struct {
	PaneID   string          `json:"paneId"`
	NowMS    int64           `json:"now"`
	Range    Range           `json:"range"`
	Items    []Item          `json:"items"`
	TotalsMS map[State]int64 `json:"totalsMs"`
	Current  *Item           `json:"current"`
}

type TimelineQuery struct {
	PaneID string
	Range  string
	Limit  int
}

func resolveLimit(limit int, rng Range) int {
	if limit <= 0 {
		limit = defaultLimitByRange[rng]
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxTimelineLimit {
		limit = maxTimelineLimit
	}
	return limit
}

// GetTimeline answers the single-pane query: clip, enrich with durations,
// total per state, newest first.
func (s *Store) GetTimeline(q TimelineQuery) Timeline {
	rng, rngMS := ParseRange(q.Range)
	limit := resolveLimit(q.Limit, rng)
	paneID := strings.TrimSpace(q.PaneID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nowMS := s.clock.Now().UnixMilli()
	rangeStartMS := nowMS - rngMS
	out := Timeline{PaneID: paneID, NowMS: nowMS, Range: rng, Items: []Item{}, TotalsMS: map[State]int64{}}
	if paneID == "" {
		return out
	}

	events := s.pruneLocked(paneID, nowMS)
	for _, ev := range events {
		iv, ok := clipEvent(ev, rangeStartMS, nowMS)
		if !ok {
			continue
		}
		out.Items = append(out.Items, Item{
			ID:         ev.ID,
			PaneID:     ev.PaneID,
			State:      iv.State,
			Reason:     iv.Reason,
			Source:     iv.Source,
			RepoRoot:   iv.RepoRoot,
			StartedAt:  iv.StartMS,
			EndedAt:    iv.EndMS,
			Open:       iv.Open,
			DurationMS: iv.duration(),
		})
		out.TotalsMS[iv.State] += iv.duration()
	}
	sort.SliceStable(out.Items, func(i, j int) bool { return out.Items[i].StartedAt > out.Items[j].StartedAt })
	if len(out.Items) > limit {
		out.Items = out.Items[:limit]
	}
	for i := range out.Items {
		if out.Items[i].Open {
			out.Current = &out.Items[i]
			break
		}
	}
	return out
}

type RepoTimelineQuery struct {
	PaneID          string
	PaneIDs         []string
	Range           string
	Limit           int
	AggregateReason string
	ItemIDPrefix    string
}

// GetRepoTimeline aggregates the panes' clipped intervals into dominant-state
// segments. The aggregator emits ascending; the final sort is descending like
// the single-pane query.
func (s *Store) GetRepoTimeline(q RepoTimelineQuery) Timeline {
	rng, rngMS := ParseRange(q.Range)
	limit := resolveLimit(q.Limit, rng)
	paneID := strings.TrimSpace(q.PaneID)
	reason := strings.TrimSpace(q.AggregateReason)
	if reason == "" {
		reason = defaultAggregateReason
	}
	prefix := strings.TrimSpace(q.ItemIDPrefix)
	if prefix == "" {
		prefix = defaultItemIDPrefix
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nowMS := s.clock.Now().UnixMilli()
	rangeStartMS := nowMS - rngMS
	out := Timeline{PaneID: paneID, NowMS: nowMS, Range: rng, Items: []Item{}, TotalsMS: map[State]int64{}}

	var intervals []Interval
	for _, id := range uniquePaneIDs(paneID, q.PaneIDs) {
		for _, ev := range s.pruneLocked(id, nowMS) {
			if iv, ok := clipEvent(ev, rangeStartMS, nowMS); ok {
				intervals = append(intervals, iv)
			}
		}
	}
	if len(intervals) == 0 {
		return out
	}

	segments := aggregateIntervals(intervals, rangeStartMS, nowMS, reason)
	for i, seg := range segments {
		out.Items = append(out.Items, Item{
			ID:         fmt.Sprintf("%s:%s:%d:%d", prefix, paneID, seg.StartMS, i),
			PaneID:     paneID,
			State:      seg.State,
			Reason:     seg.Reason,
			Source:     seg.Source,
			StartedAt:  seg.StartMS,
			EndedAt:    seg.EndMS,
			Open:       seg.Open,
			DurationMS: seg.duration(),
		})
		out.TotalsMS[seg.State] += seg.duration()
	}
	sort.SliceStable(out.Items, func(i, j int) bool { return out.Items[i].StartedAt > out.Items[j].StartedAt })
	if len(out.Items) > limit {
		out.Items = out.Items[:limit]
	}
	for i := range out.Items {
		if out.Items[i].Open {
			out.Current = &out.Items[i]
			break
		}
	}
	return out
}

type RepoActivityQuery struct {
	RepoRoot string
	Range    string
}

// GetRepoActivityMetrics computes RUNNING totals for one repository:
// plain sum, union measure across panes, and pane/execution counts.
func (s *Store) GetRepoActivityMetrics(q RepoActivityQuery) RepoActivityMetrics {
	rng, rngMS := ParseRange(q.Range)
	repoRoot := strings.TrimSpace(q.RepoRoot)

	s.mu.Lock()
	defer s.mu.Unlock()

	nowMS := s.clock.Now().UnixMilli()
	rangeStartMS := nowMS - rngMS
	out := RepoActivityMetrics{RepoRoot: repoRoot, Range: rng}
	if rngMS > s.retentionMS {
		out.Approximate = true
		out.ApproximationReason = approximationRetentionClipped
	}
	if repoRoot == "" {
		return out
	}

	var runningSpans []span
	touched := map[string]struct{}{}
	active := map[string]struct{}{}
	for paneID := range s.events {
		for _, ev := range s.pruneLocked(paneID, nowMS) {
			if ev.RepoRoot != repoRoot {
				continue
			}
			iv, ok := clipEvent(ev, rangeStartMS, nowMS)
			if !ok {
				continue
			}
			touched[paneID] = struct{}{}
			if ev.State != StateRunning {
				continue
			}
			active[paneID] = struct{}{}
			out.RunningMS += iv.duration()
			runningSpans = append(runningSpans, span{start: iv.StartMS, end: iv.EndMS})
			if ev.StartedAt >= rangeStartMS {
				out.ExecutionCount++
			}
		}
	}
	out.RunningUnionMS = unionMeasure(runningSpans)
	out.TotalPaneCount = len(touched)
	out.ActivePaneCount = len(active)
	return out
}

// ListRepoRoots returns the distinct repo roots observed in events that
// intersect the window, sorted.
func (s *Store) ListRepoRoots(rangeTag string) []string {
	_, rngMS := ParseRange(rangeTag)

	s.mu.Lock()
	defer s.mu.Unlock()

	nowMS := s.clock.Now().UnixMilli()
	rangeStartMS := nowMS - rngMS
	seen := map[string]struct{}{}
	for paneID := range s.events {
		for _, ev := range s.pruneLocked(paneID, nowMS) {
			if ev.RepoRoot == "" {
				continue
			}
			if _, ok := clipEvent(ev, rangeStartMS, nowMS); ok {
				seen[ev.RepoRoot] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for root := range seen {
		out = append(out, root)
	}
	sort.Strings(out)
	return out
}

// Reset drops all events. The sequence counter keeps running so ids stay
// unique for the lifetime of the process.
func (s *Store) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = map[string][]Event{}
}

func uniquePaneIDs(anchor string, ids []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(ids)+1)
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(anchor)
	for _, id := range ids {
		add(id)
	}
	return out
}

// pruneLocked applies retention and the per-pane cap, writes the result back,
// and returns it. Empty panes are removed from the map.
func (s *Store) pruneLocked(paneID string, nowMS int64) []Event {
	events, ok := s.events[paneID]
	if !ok {
		return nil
	}
	pruned := s.capLocked(pruneEvents(events, nowMS-s.retentionMS))
	if len(pruned) == 0 {
		delete(s.events, paneID)
		return nil
	}
	s.events[paneID] = pruned
	return pruned
}

func (s *Store) capLocked(events []Event) []Event {
	if overflow := len(events) - s.maxItemsPerPane; overflow > 0 {
		events = events[overflow:]
	}
	return events
}

func pruneEvents(events []Event, thresholdMS int64) []Event {
	kept := events[:0]
	for _, ev := range events {
		if ev.open() || ev.EndedAt >= thresholdMS {
			kept = append(kept, ev)
		}
	}
	return kept
}
