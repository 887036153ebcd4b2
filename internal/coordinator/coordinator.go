package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yuki-yano/vde-monitor/internal/protocol"
	"github.com/yuki-yano/vde-monitor/internal/timeline"
	"github.com/yuki-yano/vde-monitor/internal/upstream"
)

const (
	commandTimeout     = 10 * time.Second
	timeoutMessage     = "request timed out"
	screenFailFallback = "screen request failed"
)

// Upstream is the capture/command API surface the coordinator fronts.
type Upstream interface {
	FetchSessions(ctx context.Context) (upstream.SessionsPayload, error)
	RequestScreen(ctx context.Context, req protocol.ScreenRequest) (protocol.ScreenResponse, error)
	SendText(ctx context.Context, paneID, text string, enter bool, requestID string) error
	SendKeys(ctx context.Context, paneID string, keys []string) error
	SendRaw(ctx context.Context, paneID string, items []upstream.RawItem, unsafe bool) error
	Touch(ctx context.Context, paneID string) error
	Focus(ctx context.Context, paneID string) error
	KillPane(ctx context.Context, paneID string) error
	KillWindow(ctx context.Context, paneID string) error
	SetTitle(ctx context.Context, paneID string, title *string) error
	Launch(ctx context.Context, req protocol.LaunchRequest) error
}

// Hooks receive the connection side effects of translated failures.
type Hooks struct {
	OnConnectionIssue func(err error)
	OnAuthBlocked     func()
	OnRateLimited     func()
	OnSessionRemoved  func(paneID string)
}

// Coordinator fronts every outbound request: screen requests are deduplicated
// by key while in flight, send-text and launch carry a request-layer timeout,
// and failures feed the connection hooks.
type Coordinator struct {
	upstream Upstream
	clock    timeline.Clock
	hooks    Hooks
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]*screenCall
}

type screenCall struct {
	done chan struct{}
	resp protocol.ScreenResponse
}

func New(up Upstream, clock timeline.Clock, hooks Hooks, logger *slog.Logger) *Coordinator {
	if clock == nil {
		clock = timeline.SystemClock()
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Coordinator{
		upstream: up,
		clock:    clock,
		hooks:    hooks,
		logger:   logger,
		inflight: map[string]*screenCall{},
	}
}

func screenKey(req protocol.ScreenRequest, cursor string) string {
	lines := "default"
	if req.Lines > 0 {
		lines = fmt.Sprintf("%d", req.Lines)
	}
	return fmt.Sprintf("%s:%s:%s:%s", req.PaneID, req.Mode, lines, cursor)
}

// RequestScreen deduplicates concurrent identical screen requests. Text-mode
// reads with a cursor also fall back to an in-flight cursorless request for
// the same pane; the cursorless response is at least as fresh for the caller.
// Failures resolve to a synthesized ScreenResponse, never an error.
func (c *Coordinator) RequestScreen(ctx context.Context, req protocol.ScreenRequest) protocol.ScreenResponse {
	req.PaneID = strings.TrimSpace(req.PaneID)
	if req.Mode == "" {
		req.Mode = protocol.ScreenModeText
	}
	if req.Mode == protocol.ScreenModeImage {
		req.Cursor = ""
	}
	if req.PaneID == "" {
		return c.failedScreen(req, &protocol.APIError{Code: protocol.CodeInvalidPayload, Message: "paneId is required"})
	}

	directKey := screenKey(req, req.Cursor)

	c.mu.Lock()
	if call, ok := c.inflight[directKey]; ok {
		c.mu.Unlock()
		return c.awaitScreen(ctx, req, call)
	}
	if req.Mode == protocol.ScreenModeText && req.Cursor != "" {
		if call, ok := c.inflight[screenKey(req, "")]; ok {
			c.mu.Unlock()
			return c.awaitScreen(ctx, req, call)
		}
	}
	call := &screenCall{done: make(chan struct{})}
	c.inflight[directKey] = call
	c.mu.Unlock()

	resp, err := c.upstream.RequestScreen(ctx, req)
	if err != nil {
		c.observeError(req.PaneID, err)
		resp = c.failedScreen(req, err)
	}

	c.mu.Lock()
	delete(c.inflight, directKey)
	c.mu.Unlock()
	call.resp = resp
	close(call.done)
	return resp
}

func (c *Coordinator) awaitScreen(ctx context.Context, req protocol.ScreenRequest, call *screenCall) protocol.ScreenResponse {
	select {
	case <-call.done:
		return call.resp
	case <-ctx.Done():
		return c.failedScreen(req, protocol.InternalError(ctx.Err().Error()))
	}
}

func (c *Coordinator) failedScreen(req protocol.ScreenRequest, err error) protocol.ScreenResponse {
	payload := protocol.ErrorPayload{Code: protocol.CodeInternal, Message: screenFailFallback}
	var apiErr *protocol.APIError
	if errors.As(err, &apiErr) {
		payload = apiErr.Payload()
	}
	return protocol.ScreenResponse{
		OK:         false,
		PaneID:     req.PaneID,
		Mode:       req.Mode,
		CapturedAt: c.clock.Now().UnixMilli(),
		Error:      &payload,
	}
}

// FetchSessions is a query path: translated errors propagate to the caller.
func (c *Coordinator) FetchSessions(ctx context.Context) (upstream.SessionsPayload, error) {
	payload, err := c.upstream.FetchSessions(ctx)
	if err != nil {
		c.observeError("", err)
		return upstream.SessionsPayload{}, err
	}
	return payload, nil
}

func (c *Coordinator) SendText(ctx context.Context, paneID, text string, enter bool, requestID string) protocol.CommandResult {
	tctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return c.commandResult(paneID, c.timeoutErr(tctx, c.upstream.SendText(tctx, paneID, text, enter, requestID)))
}

func (c *Coordinator) SendKeys(ctx context.Context, paneID string, keys []string) protocol.CommandResult {
	return c.commandResult(paneID, c.upstream.SendKeys(ctx, paneID, keys))
}

func (c *Coordinator) SendRaw(ctx context.Context, paneID string, items []upstream.RawItem, unsafe bool) protocol.CommandResult {
	return c.commandResult(paneID, c.upstream.SendRaw(ctx, paneID, items, unsafe))
}

func (c *Coordinator) Touch(ctx context.Context, paneID string) protocol.CommandResult {
	return c.commandResult(paneID, c.upstream.Touch(ctx, paneID))
}

func (c *Coordinator) Focus(ctx context.Context, paneID string) protocol.CommandResult {
	return c.commandResult(paneID, c.upstream.Focus(ctx, paneID))
}

func (c *Coordinator) KillPane(ctx context.Context, paneID string) protocol.CommandResult {
	return c.commandResult(paneID, c.upstream.KillPane(ctx, paneID))
}

func (c *Coordinator) KillWindow(ctx context.Context, paneID string) protocol.CommandResult {
	return c.commandResult(paneID, c.upstream.KillWindow(ctx, paneID))
}

func (c *Coordinator) SetTitle(ctx context.Context, paneID string, title *string) protocol.CommandResult {
	return c.commandResult(paneID, c.upstream.SetTitle(ctx, paneID, title))
}

func (c *Coordinator) Launch(ctx context.Context, req protocol.LaunchRequest) protocol.CommandResult {
	tctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return c.commandResult("", c.timeoutErr(tctx, c.upstream.Launch(tctx, req)))
}

func (c *Coordinator) timeoutErr(ctx context.Context, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return protocol.InternalError(timeoutMessage)
	}
	return err
}

// commandResult translates a command failure into the `{ok, error}` envelope;
// command paths never return a Go error to callers.
func (c *Coordinator) commandResult(paneID string, err error) protocol.CommandResult {
	if err == nil {
		return protocol.CommandResult{OK: true}
	}
	c.observeError(paneID, err)
	var apiErr *protocol.APIError
	if errors.As(err, &apiErr) {
		payload := apiErr.Payload()
		return protocol.CommandResult{Error: &payload}
	}
	return protocol.CommandResult{Error: &protocol.ErrorPayload{Code: protocol.CodeInternal, Message: err.Error()}}
}

// observeError maps a translated failure onto the connection hooks.
func (c *Coordinator) observeError(paneID string, err error) {
	var apiErr *protocol.APIError
	if !errors.As(err, &apiErr) {
		if c.hooks.OnConnectionIssue != nil {
			c.hooks.OnConnectionIssue(err)
		}
		return
	}
	switch {
	case apiErr.Status == 401 || apiErr.Status == 403:
		if c.hooks.OnAuthBlocked != nil {
			c.hooks.OnAuthBlocked()
		}
	case apiErr.Status == 429 || apiErr.Code == protocol.CodeRateLimit:
		if c.hooks.OnRateLimited != nil {
			c.hooks.OnRateLimited()
		}
	case apiErr.Status == 0:
		if c.hooks.OnConnectionIssue != nil {
			c.hooks.OnConnectionIssue(err)
		}
	}
	if paneID == "" {
		return
	}
	if apiErr.Status == 410 || apiErr.Code == protocol.CodeInvalidPane ||
		(apiErr.Code == protocol.CodeNotFound && strings.Contains(apiErr.Message, "pane not found")) {
		if c.hooks.OnSessionRemoved != nil {
			c.hooks.OnSessionRemoved(paneID)
		}
	}
}
