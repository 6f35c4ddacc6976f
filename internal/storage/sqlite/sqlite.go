// Package sqlite persists grid snapshots and region tags in a SQLite
// database. The schema is managed by embedded golang-migrate migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/flaggrid/internal/layout"
	"github.com/banshee-data/flaggrid/internal/monitoring"
	"github.com/banshee-data/flaggrid/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var tracer = otel.Tracer("flaggrid.storage.sqlite")

var logf = monitoring.Component("SnapshotStore")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// Store is a SQLite-backed storage.SnapshotStore.
type Store struct {
	db *sql.DB
}

var _ storage.SnapshotStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// MigrateUp runs all pending migrations. It is a no-op on an up-to-date
// database.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the applied schema version and dirty state.
// It returns 0, false, nil on an unmigrated database.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// Save inserts s. IDs are unique; saving the same ID twice fails.
func (s *Store) Save(ctx context.Context, snap storage.Snapshot) (err error) {
	ctx, span := tracer.Start(ctx, "sqlite.Save", trace.WithAttributes(
		attribute.String("snapshot.name", snap.Name),
		attribute.Int("snapshot.set_count", snap.SetCount),
	))
	defer func() { endSpan(span, err) }()

	blob, err := snap.Layout.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO grid_snapshots
			(snapshot_id, name, taken_unix_nanos, grid_rows, grid_cols, set_count, reason, layout_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.TakenUnixNanos, snap.Rows, snap.Cols, snap.SetCount, snap.Reason, blob)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	logf("saved %s name=%s %dx%d set=%d reason=%s blob=%d bytes",
		snap.ID, snap.Name, snap.Rows, snap.Cols, snap.SetCount, snap.Reason, len(blob))
	return nil
}

// Get returns the snapshot with id.
func (s *Store) Get(ctx context.Context, id string) (snap storage.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "sqlite.Get", trace.WithAttributes(attribute.String("snapshot.id", id)))
	defer func() { endSpan(span, err) }()

	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, name, taken_unix_nanos, grid_rows, grid_cols, set_count, reason, layout_blob
		FROM grid_snapshots WHERE snapshot_id = ?`, id)
	return scanSnapshot(row)
}

// Latest returns the most recent snapshot of name.
func (s *Store) Latest(ctx context.Context, name string) (snap storage.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "sqlite.Latest", trace.WithAttributes(attribute.String("snapshot.name", name)))
	defer func() { endSpan(span, err) }()

	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, name, taken_unix_nanos, grid_rows, grid_cols, set_count, reason, layout_blob
		FROM grid_snapshots WHERE name = ?
		ORDER BY taken_unix_nanos DESC LIMIT 1`, name)
	return scanSnapshot(row)
}

// List returns the snapshots of name, newest first. Layouts are not loaded.
func (s *Store) List(ctx context.Context, name string) (out []storage.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "sqlite.List", trace.WithAttributes(attribute.String("snapshot.name", name)))
	defer func() { endSpan(span, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot_id, name, taken_unix_nanos, grid_rows, grid_cols, set_count, reason
		FROM grid_snapshots WHERE name = ?
		ORDER BY taken_unix_nanos DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snap storage.Snapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.TakenUnixNanos,
			&snap.Rows, &snap.Cols, &snap.SetCount, &snap.Reason); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row *sql.Row) (storage.Snapshot, error) {
	var (
		snap storage.Snapshot
		blob []byte
	)
	err := row.Scan(&snap.ID, &snap.Name, &snap.TakenUnixNanos,
		&snap.Rows, &snap.Cols, &snap.SetCount, &snap.Reason, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	var l layout.Layout
	if err := l.UnmarshalBinary(blob); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	snap.Layout = l
	return snap, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
