package timeline

// Interval is an event clipped to a query window.
type Interval struct {
	State    State
	Source   Source
	Reason   string
	RepoRoot string
	StartMS  int64
	EndMS    int64
	Open     bool
}

func (iv Interval) duration() int64 { return iv.EndMS - iv.StartMS }

// clipEvent clips ev to [rangeStartMS, nowMS]. Events entirely outside the
// window produce nothing. Open events extend to nowMS.
func clipEvent(ev Event, rangeStartMS, nowMS int64) (Interval, bool) {
	if ev.StartedAt <= 0 {
		return Interval{}, false
	}
	start := ev.StartedAt
	if start < rangeStartMS {
		start = rangeStartMS
	}
	end := ev.EndedAt
	if ev.open() {
		end = nowMS
	}
	if end > nowMS {
		end = nowMS
	}
	if end <= start {
		return Interval{}, false
	}
	return Interval{
		State:    ev.State,
		Source:   ev.Source,
		Reason:   ev.Reason,
		RepoRoot: ev.RepoRoot,
		StartMS:  start,
		EndMS:    end,
		Open:     ev.open() && end == nowMS,
	}, true
}
