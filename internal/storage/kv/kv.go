// Package kv persists grid snapshots in an embedded Badger key-value store.
//
// Keys:
//
//	snap/<id>                          -> JSON snapshot record
//	name/<name>/<taken, 16 hex>/<id>   -> empty; time-ordered index per name
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/banshee-data/flaggrid/internal/layout"
	"github.com/banshee-data/flaggrid/internal/storage"
)

var tracer = otel.Tracer("flaggrid.storage.kv")

// Config configures Open.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in memory; used by tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives Badger's warnings and errors. Nil silences Badger.
	Logger *log.Logger
}

// Store is a Badger-backed storage.SnapshotStore.
type Store struct {
	db *badger.DB
}

var _ storage.SnapshotStore = (*Store)(nil)

// Open opens the store described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error { return s.db.Close() }

func snapKey(id string) []byte { return []byte("snap/" + id) }

func namePrefix(name string) []byte { return []byte("name/" + name + "/") }

func indexKey(snap storage.Snapshot) []byte {
	return []byte(fmt.Sprintf("name/%s/%016x/%s", snap.Name, uint64(snap.TakenUnixNanos), snap.ID))
}

// Save writes s and its index entry in one transaction.
func (s *Store) Save(ctx context.Context, snap storage.Snapshot) (err error) {
	_, span := tracer.Start(ctx, "kv.Save", trace.WithAttributes(
		attribute.String("snapshot.name", snap.Name),
		attribute.Int("snapshot.set_count", snap.SetCount),
	))
	defer func() { endSpan(span, err) }()

	rec, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(snapKey(snap.ID)); err == nil {
			return fmt.Errorf("snapshot %s already exists", snap.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(snapKey(snap.ID), rec); err != nil {
			return err
		}
		return txn.Set(indexKey(snap), nil)
	})
}

// Get returns the snapshot with id.
func (s *Store) Get(ctx context.Context, id string) (snap storage.Snapshot, err error) {
	_, span := tracer.Start(ctx, "kv.Get", trace.WithAttributes(attribute.String("snapshot.id", id)))
	defer func() { endSpan(span, err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		snap, err = load(txn, id)
		return err
	})
	return snap, err
}

// Latest returns the most recent snapshot of name.
func (s *Store) Latest(ctx context.Context, name string) (snap storage.Snapshot, err error) {
	_, span := tracer.Start(ctx, "kv.Latest", trace.WithAttributes(attribute.String("snapshot.name", name)))
	defer func() { endSpan(span, err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		ids := newestIDs(txn, name, 1)
		if len(ids) == 0 {
			return storage.ErrNotFound
		}
		var err error
		snap, err = load(txn, ids[0])
		return err
	})
	return snap, err
}

// List returns the snapshots of name, newest first, without layouts.
func (s *Store) List(ctx context.Context, name string) (out []storage.Snapshot, err error) {
	_, span := tracer.Start(ctx, "kv.List", trace.WithAttributes(attribute.String("snapshot.name", name)))
	defer func() { endSpan(span, err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		for _, id := range newestIDs(txn, name, 0) {
			snap, err := load(txn, id)
			if err != nil {
				return err
			}
			snap.Layout = layout.Layout{}
			out = append(out, snap)
		}
		return nil
	})
	return out, err
}

// newestIDs walks the name index backwards. limit <= 0 means no limit.
func newestIDs(txn *badger.Txn, name string, limit int) []string {
	prefix := namePrefix(name)
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	seek := append(append([]byte(nil), prefix...), 0xff)
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		// <16 hex>/<id>
		rest := key[len(prefix):]
		if len(rest) < 18 || rest[16] != '/' || bytes.IndexByte(rest[:16], '/') >= 0 {
			continue
		}
		ids = append(ids, string(rest[17:]))
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids
}

func load(txn *badger.Txn, id string) (storage.Snapshot, error) {
	var snap storage.Snapshot
	item, err := txn.Get(snapKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return snap, storage.ErrNotFound
	}
	if err != nil {
		return snap, err
	}
	err = item.Value(func(v []byte) error { return json.Unmarshal(v, &snap) })
	if err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// badgerLogger adapts log.Logger to badger.Logger. Info and debug output
// is dropped.
type badgerLogger struct {
	logger *log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Printf("[badger] ERROR: "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Printf("[badger] WARN: "+format, args...)
}

func (l *badgerLogger) Infof(string, ...interface{})  {}
func (l *badgerLogger) Debugf(string, ...interface{}) {}
