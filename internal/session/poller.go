package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

const defaultPollInterval = 1000 * time.Millisecond

// Refresher performs one registry refresh against the upstream.
type Refresher interface {
	Refresh(ctx context.Context) RefreshResult
}

// Poller ticks the registry refresh while its consumer is visible and
// online, stretching the interval by the connection backoff. Hiding or going
// offline stops the ticker; resuming issues one immediate refresh.
type Poller struct {
	refresher Refresher
	conn      *ConnState
	logger    *slog.Logger
	interval  time.Duration

	mu      sync.Mutex
	visible bool
	online  bool
	resume  chan struct{}
}

func NewPoller(refresher Refresher, conn *ConnState, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Poller{
		refresher: refresher,
		conn:      conn,
		logger:    logger,
		interval:  defaultPollInterval,
		visible:   true,
		online:    true,
		resume:    make(chan struct{}, 1),
	}
}

// SetInterval overrides the base poll interval. Call before Run.
func (p *Poller) SetInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

func (p *Poller) SetVisible(visible bool) { p.setGate(&p.visible, visible) }

func (p *Poller) SetOnline(online bool) { p.setGate(&p.online, online) }

func (p *Poller) setGate(field *bool, value bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	was := p.visible && p.online
	*field = value
	now := p.visible && p.online
	p.mu.Unlock()
	if !was && now {
		p.signalResume()
	}
}

// Reconnect clears an auth block and forces an immediate refresh.
func (p *Poller) Reconnect() {
	if p == nil {
		return
	}
	p.conn.ClearAuthBlock()
	p.signalResume()
}

func (p *Poller) signalResume() {
	select {
	case p.resume <- struct{}{}:
	default:
	}
}

func (p *Poller) gateOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible && p.online
}

// Run drives the refresh loop until ctx is cancelled. An in-flight refresh
// shares ctx, so teardown cancels it.
func (p *Poller) Run(ctx context.Context) {
	if p == nil || p.refresher == nil {
		return
	}
	p.refreshOnce(ctx)
	for {
		if !p.gateOpen() || p.conn.AuthBlocked() {
			select {
			case <-ctx.Done():
				return
			case <-p.resume:
			}
			p.refreshOnce(ctx)
			continue
		}
		timer := time.NewTimer(p.interval + p.conn.PollBackoff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.resume:
			timer.Stop()
		case <-timer.C:
		}
		p.refreshOnce(ctx)
	}
}

func (p *Poller) refreshOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res := p.refresher.Refresh(ctx)
	p.conn.Apply(res)
	if !res.OK {
		p.logger.Debug("refresh failed", "status", res.Status, "auth_error", res.AuthError, "rate_limited", res.RateLimited)
	}
}
