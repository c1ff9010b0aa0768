// Package database owns the on-disk JSON document. It is the only code in the
// service that touches the data file.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/models"
	"github.com/princinho/dashbackend/telemetry"
)

// TimestampLayout matches the ISO-8601 form produced by browsers' toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Options struct {
	// Filename is the JSON document path. Its directory is created if needed.
	Filename string
	Logger   logging.Logger
	Metrics  *telemetry.Collectors
	Now      func() time.Time
}

// Store keeps the document in memory behind a single mutex and flushes the
// whole document to disk on every write. All read-modify-write cycles run
// under the lock, so concurrent requests cannot lose each other's updates.
type Store struct {
	mu      sync.Mutex
	path    string
	db      models.Database
	log     logging.Logger
	metrics *telemetry.Collectors
	now     func() time.Time
}

func New(opts *Options) (*Store, error) {
	if opts == nil || opts.Filename == "" {
		return nil, errors.New("database: filename required")
	}
	if dir := filepath.Dir(opts.Filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	s := &Store{
		path:    opts.Filename,
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.db = s.load(context.Background())
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// Read returns a private snapshot of the document.
func (s *Store) Read() models.Database {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Clone()
}

// View runs fn against the live document under the lock. fn must not modify
// the document or retain references to it.
func (s *Store) View(fn func(db *models.Database)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.db)
}

// Write replaces the whole document and flushes it. Metadata is merged into
// the stored metadata rather than replacing it.
func (s *Store) Write(ctx context.Context, db models.Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := db.Clone()
	meta := models.Metadata{}
	for k, v := range s.db.Metadata {
		meta[k] = v
	}
	for k, v := range next.Metadata {
		meta[k] = v
	}
	next.Metadata = meta
	return s.commit(ctx, next)
}

// Update runs fn on a copy of the document. If fn returns an error nothing is
// written. Otherwise the copy is flushed and, once on disk, becomes the
// current document.
func (s *Store) Update(ctx context.Context, fn func(db *models.Database) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.db.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	return s.commit(ctx, next)
}

// Reload re-reads the data file, discarding the in-memory document.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = s.load(ctx)
}

func (s *Store) commit(ctx context.Context, next models.Database) error {
	if next.Metadata == nil {
		next.Metadata = models.Metadata{}
	}
	next.Metadata[models.LastUpdatedKey] = s.now().UTC().Format(TimestampLayout)

	err := writeJSON(s.path, next)
	s.metrics.ObserveFlush(err)
	if err != nil {
		s.log.Error(ctx, "data file write failed", "path", s.path, "err", err)
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.db = next
	return nil
}

// load never fails: a missing file is a fresh install and an unreadable or
// corrupt file degrades to an empty document.
func (s *Store) load(ctx context.Context) models.Database {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Info(ctx, "data file not found, starting empty", "path", s.path)
		} else {
			s.log.Error(ctx, "data file unreadable, starting empty", "path", s.path, "err", err)
		}
		return models.Database{}
	}
	var db models.Database
	if err := json.Unmarshal(data, &db); err != nil {
		s.log.Error(ctx, "data file corrupt, starting empty", "path", s.path, "err", err)
		return models.Database{}
	}
	return db
}

// writeJSON writes through a temp file and rename so readers never see a
// half-written document.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
