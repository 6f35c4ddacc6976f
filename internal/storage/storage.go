// Package storage defines the snapshot persistence boundary. Concrete stores
// live in the sqlite and kv subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/flaggrid/internal/layout"
)

// ErrNotFound is returned when no snapshot matches the lookup.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one persisted image of a named grid or overlay.
type Snapshot struct {
	ID             string
	Name           string
	TakenUnixNanos int64
	Rows           int
	Cols           int
	SetCount       int
	Reason         string
	Layout         layout.Layout
}

// NewSnapshot captures l under name with a fresh ID.
func NewSnapshot(name, reason string, l layout.Layout, taken time.Time) Snapshot {
	return Snapshot{
		ID:             uuid.NewString(),
		Name:           name,
		TakenUnixNanos: taken.UnixNano(),
		Rows:           l.Rows,
		Cols:           l.Cols,
		SetCount:       l.SetCount(),
		Reason:         reason,
		Layout:         l,
	}
}

// SnapshotStore persists snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, id string) (Snapshot, error)
	// Latest returns the most recent snapshot of name.
	Latest(ctx context.Context, name string) (Snapshot, error)
	// List returns every snapshot of name, newest first, without layouts.
	List(ctx context.Context, name string) ([]Snapshot, error)
}
