package session

import (
	"testing"
	"time"
)

func TestConnStateTransitions(t *testing.T) {
	c := NewConnState("token")
	if got := c.Status(); got != StatusDegraded {
		t.Fatalf("expected degraded before first refresh, got %s", got)
	}

	c.Apply(RefreshResult{OK: true})
	if got := c.Status(); got != StatusHealthy {
		t.Fatalf("expected healthy, got %s", got)
	}

	c.Apply(RefreshResult{OK: false, Status: 502})
	if got := c.Status(); got != StatusDegraded {
		t.Fatalf("expected degraded on transport failure, got %s", got)
	}

	c.Apply(RefreshResult{OK: false, Status: 401, AuthError: true})
	if got := c.Status(); got != StatusDisconnected {
		t.Fatalf("expected disconnected on auth error, got %s", got)
	}
	if !c.AuthBlocked() {
		t.Fatalf("expected auth block")
	}

	c.ClearAuthBlock()
	c.Apply(RefreshResult{OK: true})
	if got := c.Status(); got != StatusHealthy {
		t.Fatalf("expected healthy after reconnect, got %s", got)
	}
}

func TestConnStateRateLimitBackoffIsBounded(t *testing.T) {
	c := NewConnState("token")
	for i := 0; i < 5; i++ {
		c.Apply(RefreshResult{OK: false, Status: 429, RateLimited: true})
	}
	if got := c.PollBackoff(); got != 3*5*time.Second {
		t.Fatalf("expected bounded backoff of 15s, got %s", got)
	}
	if got := c.Status(); got != StatusDegraded {
		t.Fatalf("expected degraded while rate limited, got %s", got)
	}

	c.Apply(RefreshResult{OK: true})
	if got := c.PollBackoff(); got != 0 {
		t.Fatalf("expected backoff cleared on success, got %s", got)
	}
}

func TestConnStateNoTokenIsDisconnected(t *testing.T) {
	c := NewConnState("")
	c.Apply(RefreshResult{OK: true})
	if got := c.Status(); got != StatusDisconnected {
		t.Fatalf("expected disconnected without token, got %s", got)
	}
}

func TestConnStateSetTokenResets(t *testing.T) {
	c := NewConnState("old")
	c.Apply(RefreshResult{OK: false, AuthError: true})
	for i := 0; i < 3; i++ {
		c.Apply(RefreshResult{OK: false, RateLimited: true})
	}

	c.SetToken("new")
	if c.AuthBlocked() {
		t.Fatalf("expected auth block cleared by token change")
	}
	if got := c.PollBackoff(); got != 0 {
		t.Fatalf("expected backoff cleared by token change, got %s", got)
	}
	if got := c.Status(); got != StatusDegraded {
		t.Fatalf("expected degraded until next refresh, got %s", got)
	}
}
