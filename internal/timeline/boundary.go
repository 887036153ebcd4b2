package timeline

import "sort"

// buildBoundaries returns the sorted unique transition points of intervals,
// always including the window bounds.
func buildBoundaries(intervals []Interval, rangeStartMS, nowMS int64) []int64 {
	seen := map[int64]struct{}{
		rangeStartMS: {},
		nowMS:        {},
	}
	for _, iv := range intervals {
		seen[iv.StartMS] = struct{}{}
		seen[iv.EndMS] = struct{}{}
	}
	out := make([]int64, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
