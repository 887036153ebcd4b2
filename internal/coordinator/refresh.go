package coordinator

import (
	"context"
	"errors"

	"github.com/yuki-yano/vde-monitor/internal/protocol"
	"github.com/yuki-yano/vde-monitor/internal/session"
)

// RegistryRefresher adapts the coordinator's sessions query to the polling
// driver: each tick replaces the registry snapshot and reports the outcome
// to the connection state machine.
type RegistryRefresher struct {
	coord    *Coordinator
	registry *session.Registry
}

func NewRegistryRefresher(coord *Coordinator, registry *session.Registry) *RegistryRefresher {
	return &RegistryRefresher{coord: coord, registry: registry}
}

func (r *RegistryRefresher) Refresh(ctx context.Context) session.RefreshResult {
	payload, err := r.coord.FetchSessions(ctx)
	if err != nil {
		res := session.RefreshResult{}
		var apiErr *protocol.APIError
		if errors.As(err, &apiErr) {
			res.Status = apiErr.Status
			res.AuthError = apiErr.Status == 401 || apiErr.Status == 403
			res.RateLimited = apiErr.Status == 429 || apiErr.Code == protocol.CodeRateLimit
		}
		return res
	}
	r.registry.ApplySnapshot(payload.Sessions)
	return session.RefreshResult{OK: true, Status: 200}
}
