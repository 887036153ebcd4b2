package session

import (
	"strings"
	"sync"
	"time"
)

type ConnectionStatus string

const (
	StatusHealthy      ConnectionStatus = "healthy"
	StatusDegraded     ConnectionStatus = "degraded"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// RefreshResult is the outcome of one registry refresh attempt.
type RefreshResult struct {
	OK          bool
	Status      int
	AuthError   bool
	RateLimited bool
}

const (
	maxRateLimitStep     = 3
	rateLimitStepBackoff = 5 * time.Second
)

// ConnState tracks upstream connection health. Auth failures block polling
// until Reconnect; rate limiting extends the poll interval without marking
// the connection lost.
type ConnState struct {
	mu            sync.Mutex
	token         string
	connected     bool
	authBlocked   bool
	rateLimitStep int
}

func NewConnState(token string) *ConnState {
	return &ConnState{token: strings.TrimSpace(token)}
}

func (c *ConnState) Apply(res RefreshResult) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !res.OK && res.AuthError:
		c.authBlocked = true
	case !res.OK && res.RateLimited:
		if c.rateLimitStep < maxRateLimitStep {
			c.rateLimitStep++
		}
		c.connected = true
	case !res.OK:
		c.connected = false
	default:
		c.connected = true
		c.authBlocked = false
		c.rateLimitStep = 0
	}
}

func (c *ConnState) PollBackoff() time.Duration {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.rateLimitStep) * rateLimitStepBackoff
}

func (c *ConnState) Status() ConnectionStatus {
	if c == nil {
		return StatusDisconnected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.token == "" || c.authBlocked:
		return StatusDisconnected
	case c.connected && c.rateLimitStep > 0:
		return StatusDegraded
	case c.connected:
		return StatusHealthy
	default:
		return StatusDegraded
	}
}

// SetToken replaces the token and resets all connection state.
func (c *ConnState) SetToken(token string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
	c.connected = false
	c.authBlocked = false
	c.rateLimitStep = 0
}

func (c *ConnState) Token() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *ConnState) AuthBlocked() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authBlocked
}

func (c *ConnState) ClearAuthBlock() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.authBlocked = false
	c.mu.Unlock()
}

// MarkAuthBlocked lets the request layer flag a 401/403 seen outside the
// refresh path.
func (c *ConnState) MarkAuthBlocked() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.authBlocked = true
	c.mu.Unlock()
}

// MarkRateLimited advances the rate-limit step without a refresh result.
func (c *ConnState) MarkRateLimited() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.rateLimitStep < maxRateLimitStep {
		c.rateLimitStep++
	}
	c.connected = true
	c.mu.Unlock()
}

// MarkConnectionIssue records a transport-level failure.
func (c *ConnState) MarkConnectionIssue() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}
