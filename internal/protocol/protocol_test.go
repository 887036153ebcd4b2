package protocol

import (
	"net/url"
	"strings"
	"testing"
)

func TestPaneIDRoundTrip(t *testing.T) {
	for _, id := range []string{"%12", "pane", "a%b%c", "%25", "with space", "a/b"} {
		encoded := EncodePaneID(id)
		segment, err := url.PathUnescape(encoded)
		if err != nil {
			t.Fatalf("unescape %q: %v", encoded, err)
		}
		if got := DecodePaneID(segment); got != id {
			t.Fatalf("round trip failed for %q: got %q via %q", id, got, encoded)
		}
	}
}

func TestEncodePaneIDDoublesPercent(t *testing.T) {
	if got := EncodePaneID("%1"); !strings.Contains(got, "2525") {
		t.Fatalf("expected double-encoded percent, got %q", got)
	}
}

func TestLaunchRequestValidate(t *testing.T) {
	base := LaunchRequest{SessionName: "work", Agent: "codex", RequestID: "req-1"}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	bad := base
	bad.SessionName = " "
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected missing sessionName error")
	}

	bad = base
	bad.Agent = "gpt"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected invalid agent error")
	}

	bad = base
	bad.CWD = "/tmp"
	bad.WorktreeBranch = "feature"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected cwd/worktree exclusivity error")
	}

	bad = base
	bad.WorktreeCreateIfMissing = true
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected missing worktreeBranch error")
	}

	ok := base
	ok.WorktreePath = "/repos/x"
	ok.WorktreeBranch = "feature"
	ok.WorktreeCreateIfMissing = true
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid worktree launch, got %v", err)
	}
}

func TestNewHTTPError(t *testing.T) {
	e := NewHTTPError(500, "", "boom", "stack trace here")
	if e.Code != CodeInternal {
		t.Fatalf("unexpected code %s", e.Code)
	}
	msg := e.Error()
	if !strings.Contains(msg, "boom") || !strings.Contains(msg, "500") {
		t.Fatalf("message missing server text or status: %q", msg)
	}
	if !strings.Contains(msg, "Error cause: stack trace here") {
		t.Fatalf("missing error cause line: %q", msg)
	}

	e = NewHTTPError(429, "", "", "")
	if e.Code != CodeRateLimit {
		t.Fatalf("expected rate limit code, got %s", e.Code)
	}
	e = NewHTTPError(502, "", "bad gateway", "ignored")
	if e.Cause != "" {
		t.Fatalf("error cause must only attach on 500, got %q", e.Cause)
	}
}
