package timeline

import "sort"

// RepoActivityMetrics summarizes RUNNING activity of one repository over a
// query window.
type RepoActivityMetrics struct {
	RepoRoot            string `json:"repoRoot"`
	Range               Range  `json:"range"`
	RunningMS           int64  `json:"runningMs"`
	RunningUnionMS      int64  `json:"runningUnionMs"`
	ExecutionCount      int    `json:"executionCount"`
	TotalPaneCount      int    `json:"totalPaneCount"`
	ActivePaneCount     int    `json:"activePaneCount"`
	Approximate         bool   `json:"approximate"`
	ApproximationReason string `json:"approximationReason,omitempty"`
}

const approximationRetentionClipped = "retention_clipped"

type span struct{ start, end int64 }

// unionMeasure computes the measure of the union of spans: sort by start,
// extend the current run while the next span overlaps, flush otherwise.
func unionMeasure(spans []span) int64 {
	if len(spans) == 0 {
		return 0
	}
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var total int64
	curStart, curEnd := sorted[0].start, sorted[0].end
	for _, sp := range sorted[1:] {
		if sp.start <= curEnd {
			if sp.end > curEnd {
				curEnd = sp.end
			}
			continue
		}
		total += curEnd - curStart
		curStart, curEnd = sp.start, sp.end
	}
	total += curEnd - curStart
	return total
}
