package protocol

// SessionSummary is the per-pane snapshot handed out by the upstream
// sessions endpoint. The registry keeps the most recent one per paneId.
type SessionSummary struct {
	PaneID       string `json:"paneId"`
	SessionName  string `json:"sessionName"`
	State        string `json:"state"`
	Agent        string `json:"agent,omitempty"`
	RepoRoot     string `json:"repoRoot,omitempty"`
	Branch       string `json:"branch,omitempty"`
	WorktreePath string `json:"worktreePath,omitempty"`
	CustomTitle  string `json:"customTitle,omitempty"`
	Title        string `json:"title,omitempty"`
	LastInputAt  string `json:"lastInputAt,omitempty"`
	PaneDead     bool   `json:"paneDead,omitempty"`
}

type ScreenMode string

const (
	ScreenModeText  ScreenMode = "text"
	ScreenModeImage ScreenMode = "image"
)

type ScreenRequest struct {
	PaneID string     `json:"-"`
	Mode   ScreenMode `json:"mode"`
	Lines  int        `json:"lines,omitempty"`
	Cursor string     `json:"cursor,omitempty"`
}

type ScreenResponse struct {
	OK         bool          `json:"ok"`
	PaneID     string        `json:"paneId"`
	Mode       ScreenMode    `json:"mode"`
	Text       string        `json:"text,omitempty"`
	Image      string        `json:"image,omitempty"`
	Cursor     string        `json:"cursor,omitempty"`
	CapturedAt int64         `json:"capturedAt"`
	Error      *ErrorPayload `json:"error,omitempty"`
}

// CommandResult is what command endpoints resolve to. They never propagate
// an error as a Go error to UI callers.
type CommandResult struct {
	OK    bool          `json:"ok"`
	Error *ErrorPayload `json:"error,omitempty"`
}
