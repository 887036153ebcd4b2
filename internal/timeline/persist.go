package timeline

import (
	"sort"
	"strings"
)

// Persisted is the snapshot form of the store: ordered event lists per pane.
type Persisted map[string][]Event

// Serialize prunes every pane and returns a deep copy of the event map.
func (s *Store) Serialize() Persisted {
	if s == nil {
		return Persisted{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMS := s.clock.Now().UnixMilli()
	out := Persisted{}
	for paneID := range s.events {
		events := s.pruneLocked(paneID, nowMS)
		if len(events) == 0 {
			continue
		}
		cp := make([]Event, len(events))
		copy(cp, events)
		out[paneID] = cp
	}
	return out
}

// Restore replaces the store contents with a persisted snapshot. Each pane's
// events are sorted ascending and walked forward, enforcing monotonic time,
// inferring missing end times from the next event, and skipping zero-length
// or malformed entries. The sequence counter continues past the highest
// suffix found in restored ids.
func (s *Store) Restore(persisted Persisted) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMS := s.clock.Now().UnixMilli()
	s.events = map[string][]Event{}
	maxSeq := s.seq
	for rawPaneID, evs := range persisted {
		paneID := strings.TrimSpace(rawPaneID)
		if paneID == "" || len(evs) == 0 {
			continue
		}
		sorted := make([]Event, len(evs))
		copy(sorted, evs)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartedAt < sorted[j].StartedAt })

		var out []Event
		var lastBoundary int64
		for i, ev := range sorted {
			if ev.StartedAt <= 0 {
				continue
			}
			start := ev.StartedAt
			if start < lastBoundary {
				start = lastBoundary
			}
			end := ev.EndedAt
			if end == 0 && i+1 < len(sorted) {
				end = sorted[i+1].StartedAt
			}
			if end != 0 && end < start {
				end = start
			}
			if end != 0 && end <= start {
				continue
			}
			ev.PaneID = paneID
			ev.State = normalizeState(ev.State)
			ev.Source = normalizeSource(ev.Source)
			ev.StartedAt = start
			ev.EndedAt = end
			if seq := parseSequenceFromID(ev.ID); seq > maxSeq {
				maxSeq = seq
			}
			lastBoundary = end
			if end == 0 {
				lastBoundary = start
			}
			out = append(out, ev)
		}
		out = s.capLocked(pruneEvents(out, nowMS-s.retentionMS))
		if len(out) > 0 {
			s.events[paneID] = out
		}
	}
	s.seq = maxSeq
}
