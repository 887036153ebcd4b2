package snapshotdb

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/yuki-yano/vde-monitor/internal/timeline"
)

const defaultSaveInterval = 30 * time.Second

// Saver flushes the in-memory timeline to the snapshot store on an
// interval, plus a final flush on shutdown.
type Saver struct {
	db       *Store
	store    *timeline.Store
	interval time.Duration
	logger   *slog.Logger
}

func NewSaver(db *Store, store *timeline.Store, interval time.Duration, logger *slog.Logger) *Saver {
	if interval <= 0 {
		interval = defaultSaveInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Saver{db: db, store: store, interval: interval, logger: logger}
}

func (s *Saver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return ctx.Err()
		case <-ticker.C:
			s.flush()
		}
	}
}

func (s *Saver) flush() {
	if err := s.db.Save(s.store.Serialize()); err != nil {
		s.logger.Error("timeline snapshot save failed", "error", err)
	}
}
