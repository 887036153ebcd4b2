package hooks

import (
	"testing"

	"github.com/yuki-yano/vde-monitor/internal/timeline"
)

func TestMapEventToolUse(t *testing.T) {
	in, ok := MapEvent("%1", []byte(`{"hook_event_name":"PreToolUse","tool_name":"Bash","cwd":"/repo/a"}`))
	if !ok {
		t.Fatalf("expected mapped event")
	}
	if in.State != timeline.StateRunning || in.Reason != "tool:Bash" || in.RepoRoot != "/repo/a" {
		t.Fatalf("unexpected sample: %+v", in)
	}
	if in.Source != timeline.SourceHook || in.PaneID != "%1" {
		t.Fatalf("unexpected sample: %+v", in)
	}
}

func TestMapEventNotification(t *testing.T) {
	in, ok := MapEvent("%1", []byte(`{"hook_event_name":"Notification","message":"Claude needs your permission to use Bash"}`))
	if !ok || in.State != timeline.StateWaitingPermission {
		t.Fatalf("expected WAITING_PERMISSION, got %+v (ok=%v)", in, ok)
	}

	in, ok = MapEvent("%1", []byte(`{"hook_event_name":"Notification","message":"Claude is waiting for your input"}`))
	if !ok || in.State != timeline.StateWaitingInput {
		t.Fatalf("expected WAITING_INPUT, got %+v (ok=%v)", in, ok)
	}
}

func TestMapEventLifecycle(t *testing.T) {
	cases := []struct {
		event string
		want  timeline.State
	}{
		{"UserPromptSubmit", timeline.StateRunning},
		{"Stop", timeline.StateWaitingInput},
		{"SubagentStop", timeline.StateWaitingInput},
		{"SessionStart", timeline.StateWaitingInput},
		{"SessionEnd", timeline.StateShell},
	}
	for _, tc := range cases {
		in, ok := MapEvent("%1", []byte(`{"hook_event_name":"`+tc.event+`"}`))
		if !ok || in.State != tc.want {
			t.Fatalf("%s: expected %s, got %+v (ok=%v)", tc.event, tc.want, in, ok)
		}
		if in.Reason != "hook:"+tc.event {
			t.Fatalf("%s: unexpected reason %q", tc.event, in.Reason)
		}
	}
}

func TestMapEventRejectsUnknownPayloads(t *testing.T) {
	if _, ok := MapEvent("%1", []byte(`{"hook_event_name":"SomethingElse"}`)); ok {
		t.Fatalf("unknown event name must not map")
	}
	if _, ok := MapEvent("%1", []byte(`{"message":"no event name"}`)); ok {
		t.Fatalf("missing event name must not map")
	}
	if _, ok := MapEvent("%1", []byte(`not json`)); ok {
		t.Fatalf("malformed payload must not map")
	}
}
