package protocol

import (
	"errors"
	"strings"
)

// LaunchRequest starts a new agent session. CWD is mutually exclusive with
// the worktree fields; creating a missing worktree requires a branch.
type LaunchRequest struct {
	SessionName             string         `json:"sessionName"`
	Agent                   string         `json:"agent"`
	RequestID               string         `json:"requestId"`
	WindowName              string         `json:"windowName,omitempty"`
	CWD                     string         `json:"cwd,omitempty"`
	AgentOptions            map[string]any `json:"agentOptions,omitempty"`
	WorktreePath            string         `json:"worktreePath,omitempty"`
	WorktreeBranch          string         `json:"worktreeBranch,omitempty"`
	WorktreeCreateIfMissing bool           `json:"worktreeCreateIfMissing,omitempty"`
}

var (
	errLaunchSessionName    = errors.New("sessionName is required")
	errLaunchAgent          = errors.New("agent must be one of codex, claude")
	errLaunchCWDWorktree    = errors.New("cwd is mutually exclusive with worktree fields")
	errLaunchWorktreeBranch = errors.New("worktreeCreateIfMissing requires worktreeBranch")
)

func (r LaunchRequest) Validate() error {
	if strings.TrimSpace(r.SessionName) == "" {
		return errLaunchSessionName
	}
	switch r.Agent {
	case "codex", "claude":
	default:
		return errLaunchAgent
	}
	hasWorktree := r.WorktreePath != "" || r.WorktreeBranch != "" || r.WorktreeCreateIfMissing
	if r.CWD != "" && hasWorktree {
		return errLaunchCWDWorktree
	}
	if r.WorktreeCreateIfMissing && strings.TrimSpace(r.WorktreeBranch) == "" {
		return errLaunchWorktreeBranch
	}
	return nil
}
