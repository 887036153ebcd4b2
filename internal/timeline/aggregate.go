package timeline

// statePriority orders states for aggregated segments: a permission prompt
// anywhere dominates, running beats idle, unknown loses to everything.
var statePriority = []State{
	StateWaitingPermission,
	StateRunning,
	StateWaitingInput,
	StateShell,
	StateUnknown,
}

// aggregateIntervals sweeps the boundary set and emits one segment per run of
// equal dominant state, in ascending time order. Adjacent segments with the
// same state and openness that touch are coalesced.
func aggregateIntervals(intervals []Interval, rangeStartMS, nowMS int64, reason string) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	boundaries := buildBoundaries(intervals, rangeStartMS, nowMS)
	var segments []Interval
	for i := 0; i+1 < len(boundaries); i++ {
		lo, hi := boundaries[i], boundaries[i+1]
		var active []Interval
		for _, iv := range intervals {
			if iv.StartMS < hi && iv.EndMS > lo {
				active = append(active, iv)
			}
		}
		if len(active) == 0 {
			continue
		}
		state := dominantState(active)
		source := dominantSource(active)
		open := false
		if hi == nowMS {
			for _, iv := range active {
				if iv.Open && iv.EndMS == nowMS {
					open = true
					break
				}
			}
		}
		if n := len(segments); n > 0 {
			prev := &segments[n-1]
			if prev.State == state && prev.Open == open && prev.EndMS == lo {
				prev.EndMS = hi
				prev.Source = source
				continue
			}
		}
		segments = append(segments, Interval{
			State:   state,
			Source:  source,
			Reason:  reason,
			StartMS: lo,
			EndMS:   hi,
			Open:    open,
		})
	}
	return segments
}

func dominantState(active []Interval) State {
	for _, want := range statePriority {
		for _, iv := range active {
			if iv.State == want {
				return want
			}
		}
	}
	return StateUnknown
}

func dominantSource(active []Interval) Source {
	hasRestore := false
	for _, iv := range active {
		switch iv.Source {
		case SourceHook:
			return SourceHook
		case SourceRestore:
			hasRestore = true
		}
	}
	if hasRestore {
		return SourceRestore
	}
	return SourcePoll
}
