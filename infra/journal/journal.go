// Package journal keeps an audit trail of operator commands.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/substation/core/metrics"
	"github.com/kilianp07/substation/core/model"
)

// Entry is one journaled command.
type Entry struct {
	Time   time.Time `json:"time"`
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Device string    `json:"device,omitempty"`
	Source string    `json:"source"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
}

// FromEvent converts a recorded command.
func FromEvent(ev metrics.CommandEvent) Entry {
	return Entry{Time: ev.Time, ID: ev.ID, Type: ev.Type, Device: ev.Device, Source: ev.Source, OK: ev.OK, Error: ev.Error}
}

// Query filters entries. Zero fields match everything. Limit keeps the most
// recent matches.
type Query struct {
	Start      time.Time
	End        time.Time
	Type       string
	Device     string
	FailedOnly bool
	Limit      int
}

// Match reports whether e passes the filters of q.
func (q Query) Match(e Entry) bool {
	if !q.Start.IsZero() && e.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Time.After(q.End) {
		return false
	}
	if q.Type != "" && e.Type != q.Type {
		return false
	}
	if q.Device != "" && e.Device != q.Device {
		return false
	}
	return !q.FailedOnly || !e.OK
}

func (q Query) apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// Store persists entries and answers queries, oldest first.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// Config selects the journal backend. An empty Path keeps the last Capacity
// entries in memory. MaxSizeMB > 0 rotates the file.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	Capacity   int    `json:"capacity"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// DefaultCapacity bounds the in-memory journal.
const DefaultCapacity = 1000

func (c *Config) SetDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
}

func (c Config) Validate() error {
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("journal: %w: rotation settings must not be negative", model.ErrInvalidInput)
	}
	if c.MaxSizeMB > 0 && c.Path == "" {
		return errors.New("journal: rotation requires a path")
	}
	return nil
}

// Open returns the store described by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	switch {
	case cfg.Path == "":
		return NewMemoryStore(cfg.Capacity), nil
	case cfg.MaxSizeMB > 0:
		return NewRotatingStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	default:
		return NewFileStore(cfg.Path)
	}
}

// Sink journals the commands recorded by the dispatcher.
type Sink struct {
	metrics.NopSink
	Store Store
}

// RecordCommand appends ev to the store.
func (s Sink) RecordCommand(ev metrics.CommandEvent) error {
	return s.Store.Append(context.Background(), FromEvent(ev))
}
