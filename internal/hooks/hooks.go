package hooks

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yuki-yano/vde-monitor/internal/timeline"
)

// Agent lifecycle hooks post their raw JSON payload to the monitor; this
// package maps a payload onto a timeline sample. The hook event name decides
// the state, the payload's cwd becomes the repo root, and the tool name (when
// present) becomes the reason.

// MapEvent translates one hook payload into a timeline sample. The second
// return is false when the payload carries no recognized event name.
func MapEvent(paneID string, raw []byte) (timeline.RecordInput, bool) {
	body := gjson.ParseBytes(raw)
	event := strings.TrimSpace(body.Get("hook_event_name").String())
	if event == "" {
		return timeline.RecordInput{}, false
	}

	in := timeline.RecordInput{
		PaneID:   paneID,
		Source:   timeline.SourceHook,
		RepoRoot: strings.TrimSpace(body.Get("cwd").String()),
		Reason:   "hook:" + event,
	}

	switch event {
	case "PreToolUse", "PostToolUse":
		in.State = timeline.StateRunning
		if tool := strings.TrimSpace(body.Get("tool_name").String()); tool != "" {
			in.Reason = "tool:" + tool
		}
	case "UserPromptSubmit":
		in.State = timeline.StateRunning
	case "Notification":
		in.State = timeline.StateWaitingInput
		if isPermissionNotification(body) {
			in.State = timeline.StateWaitingPermission
		}
	case "Stop", "SubagentStop":
		in.State = timeline.StateWaitingInput
	case "SessionStart":
		in.State = timeline.StateWaitingInput
	case "SessionEnd":
		in.State = timeline.StateShell
	default:
		return timeline.RecordInput{}, false
	}
	return in, true
}

func isPermissionNotification(body gjson.Result) bool {
	if t := strings.ToLower(body.Get("notification_type").String()); strings.Contains(t, "permission") {
		return true
	}
	msg := strings.ToLower(body.Get("message").String())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "approve")
}
