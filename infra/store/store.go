// Package store persists household run records so batches can be compared
// over time. Records are kept as JSON lines or in SQLite.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/loadshift/core/cost"
	"github.com/kilianp07/loadshift/core/filter"
	"github.com/kilianp07/loadshift/core/resolver"
	"github.com/kilianp07/loadshift/core/scheduler"
)

// Placement is the stored outcome of one scheduled event.
type Placement struct {
	EventID    string    `json:"event_id"`
	Appliance  string    `json:"appliance_name"`
	Status     string    `json:"status"`
	Start      time.Time `json:"scheduled_start,omitempty"`
	End        time.Time `json:"scheduled_end,omitempty"`
	PriceLevel int       `json:"price_level"`
	ShiftType  string    `json:"shift_type,omitempty"`
	Reason     string    `json:"failure_reason,omitempty"`
}

// RunRecord captures one household run.
type RunRecord struct {
	RunID      string           `json:"run_id"`
	Household  string           `json:"household"`
	Tariff     string           `json:"tariff"`
	Timestamp  time.Time        `json:"timestamp"`
	Filter     filter.Stats     `json:"filter"`
	Schedule   scheduler.Counts `json:"schedule"`
	Resolver   resolver.Stats   `json:"resolver"`
	Cost       cost.Summary     `json:"cost"`
	Placements []Placement      `json:"placements,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// RunQuery filters stored records. Zero fields match everything.
type RunQuery struct {
	Start     time.Time
	End       time.Time
	Household string
	Tariff    string
	RunID     string
}

// Match reports whether rec passes the query.
func (q RunQuery) Match(rec RunRecord) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.Household != "" && rec.Household != q.Household {
		return false
	}
	if q.Tariff != "" && rec.Tariff != q.Tariff {
		return false
	}
	if q.RunID != "" && rec.RunID != q.RunID {
		return false
	}
	return true
}

// RunStore persists RunRecords and supports querying.
type RunStore interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// Config selects the store backend. An empty backend disables persistence.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Validate checks the backend name and path.
func (c Config) Validate() error {
	switch c.Backend {
	case "":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("store.path required for backend %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
}

// Open creates the configured store. It returns nil when persistence is
// disabled.
func Open(c Config) (RunStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var (
		s   RunStore
		err error
	)
	switch c.Backend {
	case "jsonl":
		s, err = NewJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		s, err = NewSQLiteStore(c.Path)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.Backend, err)
	}
	return s, nil
}
