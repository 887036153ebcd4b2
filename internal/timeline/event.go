package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

type State string

const (
	StateRunning           State = "RUNNING"
	StateWaitingInput      State = "WAITING_INPUT"
	StateWaitingPermission State = "WAITING_PERMISSION"
	StateShell             State = "SHELL"
	StateUnknown           State = "UNKNOWN"
)

func normalizeState(s State) State {
	switch s {
	case StateRunning, StateWaitingInput, StateWaitingPermission, StateShell, StateUnknown:
		return s
	}
	return StateUnknown
}

type Source string

const (
	SourceHook    Source = "hook"
	SourcePoll    Source = "poll"
	SourceRestore Source = "restore"
)

func normalizeSource(s Source) Source {
	switch s {
	case SourceHook, SourcePoll, SourceRestore:
		return s
	}
	return SourcePoll
}

type Range string

const (
	Range15m Range = "15m"
	Range1h  Range = "1h"
	Range3h  Range = "3h"
	Range6h  Range = "6h"
	Range24h Range = "24h"
	Range3d  Range = "3d"
	Range7d  Range = "7d"
)

var rangeMS = map[Range]int64{
	Range15m: 900_000,
	Range1h:  3_600_000,
	Range3h:  10_800_000,
	Range6h:  21_600_000,
	Range24h: 86_400_000,
	Range3d:  259_200_000,
	Range7d:  604_800_000,
}

var defaultLimitByRange = map[Range]int{
	Range15m: 200,
	Range1h:  300,
	Range3h:  700,
	Range6h:  1500,
	Range24h: 5000,
	Range3d:  7000,
	Range7d:  10000,
}

const maxTimelineLimit = 10_000

// ParseRange maps a range tag to its tag and width. Unknown tags fall back
// to 1h so query paths never fail on a bad range.
func ParseRange(raw string) (Range, int64) {
	r := Range(strings.TrimSpace(raw))
	if ms, ok := rangeMS[r]; ok {
		return r, ms
	}
	return Range1h, rangeMS[Range1h]
}

// Event is one state segment of a pane. Times are unix milliseconds;
// EndedAt == 0 means the segment is still open.
type Event struct {
	ID        string `json:"id"`
	PaneID    string `json:"paneId"`
	State     State  `json:"state"`
	Reason    string `json:"reason"`
	Source    Source `json:"source"`
	RepoRoot  string `json:"repoRoot,omitempty"`
	StartedAt int64  `json:"startedAt"`
	EndedAt   int64  `json:"endedAt,omitempty"`
}

func (e Event) open() bool { return e.EndedAt == 0 }

func formatEventID(paneID string, startedAt int64, seq int64) string {
	return fmt.Sprintf("%s:%d:%d", paneID, startedAt, seq)
}

// parseSequenceFromID recovers the sequence suffix of an event id. Pane ids
// may themselves contain ':' so only the last segment is considered.
// Non-integer suffixes yield 0 rather than an error.
func parseSequenceFromID(id string) int64 {
	idx := strings.LastIndex(id, ":")
	if idx < 0 || idx == len(id)-1 {
		return 0
	}
	n, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
