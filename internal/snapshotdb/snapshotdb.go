package snapshotdb

import (
	"errors"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/yuki-yano/vde-monitor/internal/timeline"
)

// TimelineEvent is one persisted timeline row. EndedAt == 0 marks the
// pane's open event.
type TimelineEvent struct {
	EventID   string `gorm:"column:event_id;primaryKey"`
	PaneID    string `gorm:"column:pane_id;not null;index"`
	State     string `gorm:"column:state;not null;default:''"`
	Reason    string `gorm:"column:reason;not null;default:''"`
	Source    string `gorm:"column:source;not null;default:''"`
	RepoRoot  string `gorm:"column:repo_root;not null;default:''"`
	StartedAt int64  `gorm:"column:started_at;not null;default:0"`
	EndedAt   int64  `gorm:"column:ended_at;not null;default:0"`
}

func (TimelineEvent) TableName() string { return "timeline_events" }

// Store persists timeline snapshots into a local SQLite database.
type Store struct {
	gdb *gorm.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := gdb.Exec(`PRAGMA journal_mode=WAL;`).Error; err != nil {
		return nil, err
	}
	if err := gdb.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, err
	}
	if err := syncSchema(gdb); err != nil {
		closeDB(gdb)
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &Store{gdb: gdb}, nil
}

func syncSchema(gdb *gorm.DB) error {
	if gdb == nil {
		return errors.New("db is required")
	}
	if err := gdb.AutoMigrate(&TimelineEvent{}); err != nil {
		return err
	}
	return gdb.Exec(`CREATE INDEX IF NOT EXISTS idx_timeline_events_pane_started_at ON timeline_events(pane_id, started_at);`).Error
}

// Save replaces the stored snapshot with the given one in a single
// transaction.
func (s *Store) Save(persisted timeline.Persisted) error {
	if s == nil || s.gdb == nil {
		return errors.New("snapshot store is not open")
	}
	rows := make([]TimelineEvent, 0, len(persisted))
	for paneID, events := range persisted {
		for _, ev := range events {
			rows = append(rows, TimelineEvent{
				EventID:   ev.ID,
				PaneID:    paneID,
				State:     string(ev.State),
				Reason:    ev.Reason,
				Source:    string(ev.Source),
				RepoRoot:  ev.RepoRoot,
				StartedAt: ev.StartedAt,
				EndedAt:   ev.EndedAt,
			})
		}
	}
	return s.gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM timeline_events;`).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

// Load reads the stored snapshot. A missing or empty table yields an empty
// snapshot, not an error.
func (s *Store) Load() (timeline.Persisted, error) {
	if s == nil || s.gdb == nil {
		return nil, errors.New("snapshot store is not open")
	}
	var rows []TimelineEvent
	if err := s.gdb.Order("pane_id, started_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := timeline.Persisted{}
	for _, row := range rows {
		out[row.PaneID] = append(out[row.PaneID], timeline.Event{
			ID:        row.EventID,
			PaneID:    row.PaneID,
			State:     timeline.State(row.State),
			Reason:    row.Reason,
			Source:    timeline.Source(row.Source),
			RepoRoot:  row.RepoRoot,
			StartedAt: row.StartedAt,
			EndedAt:   row.EndedAt,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.gdb == nil {
		return nil
	}
	closeDB(s.gdb)
	return nil
}

func closeDB(gdb *gorm.DB) {
	sqlDB, err := gdb.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}
