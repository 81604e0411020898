// Package board persists boards and tasks in an SQLite file shared by every
// herd process that points at the same home directory.
//
// Processes do not coordinate in memory. Before each operation a Store
// compares the database file (and its WAL) against what it saw after its own
// last operation and reopens the handle when another writer has touched it.
package board

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/herd/internal/logging"
	"github.com/ShayCichocki/herd/pkg/models"
)

const (
	// DefaultReloadRetries is how many times a stale handle is reopened before giving up.
	DefaultReloadRetries = 3
	// DefaultBusyTimeout is how long a writer waits on another process's lock.
	DefaultBusyTimeout = 5 * time.Second

	reloadBackoff = 25 * time.Millisecond
)

// Directory resolves agent manifests for authorization checks.
// *org.Graph implements it.
type Directory interface {
	GetManifest(ctx context.Context, agentID string) (models.AgentManifest, error)
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	logger        *slog.Logger
	reloadRetries int
	busyTimeout   time.Duration
	now           func() time.Time
}

// WithLogger sets the logger for reload and migration events.
func WithLogger(l *slog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = l
	}
}

// WithReloadRetries sets how many reload attempts are made for a stale handle.
func WithReloadRetries(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.reloadRetries = n
		}
	}
}

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *storeOptions) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Store is the task board. All methods are safe for concurrent use; within one
// process operations run one at a time.
type Store struct {
	mu   sync.Mutex
	path string
	dir  Directory
	db   *DB

	// seen is the file state after this store's last operation. Watch reads
	// it without holding mu.
	seen atomic.Pointer[fingerprint]

	logger        *slog.Logger
	reloadRetries int
	busyTimeout   time.Duration
	now           func() time.Time
}

// Open opens (creating if needed) the board database at path.
func Open(ctx context.Context, path string, dir Directory, opts ...Option) (*Store, error) {
	o := &storeOptions{
		reloadRetries: DefaultReloadRetries,
		busyTimeout:   DefaultBusyTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{
		path:          path,
		dir:           dir,
		logger:        logging.OrNop(o.logger),
		reloadRetries: o.reloadRetries,
		busyTimeout:   o.busyTimeout,
		now:           o.now,
	}
	if err := s.open(ctx); err != nil {
		return nil, persistence("open board store", err)
	}
	s.remember()
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) open(ctx context.Context) error {
	db, err := OpenDB(s.path, s.busyTimeout)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

// do runs fn as one critical section: reload if stale, run, then remember
// the file state that fn left behind.
func (s *Store) do(ctx context.Context, op string, fn func(db *DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(ctx, op); err != nil {
		return err
	}

	err := fn(s.db)
	s.remember()
	if err != nil {
		return persistence(op, err)
	}
	return nil
}

// refresh reopens the handle when another writer changed the file. Only the
// reload is retried, never the operation itself.
func (s *Store) refresh(ctx context.Context, op string) error {
	if s.db != nil && !s.changedSinceLastOp() {
		return nil
	}

	s.logger.Debug("board store stale, reloading", "path", s.path, "op", op)

	var lastErr error
	for attempt := 1; attempt <= s.reloadRetries; attempt++ {
		if s.db != nil {
			s.db.Close()
			s.db = nil
		}
		lastErr = s.open(ctx)
		if lastErr == nil {
			s.remember()
			return nil
		}
		s.logger.Warn("board store reload failed",
			"path", s.path,
			"attempt", attempt,
			"error", lastErr,
		)
		if attempt == s.reloadRetries {
			break
		}
		select {
		case <-ctx.Done():
			return persistence(op, ctx.Err())
		case <-time.After(time.Duration(attempt) * reloadBackoff):
		}
	}
	return persistence(op, fmt.Errorf("reload board store after %d attempts: %w", s.reloadRetries, lastErr))
}

// remember records the current file state as this store's own.
func (s *Store) remember() {
	fp := takeFingerprint(s.path)
	s.seen.Store(&fp)
}

// changedSinceLastOp reports whether the file differs from the state this
// store left it in.
func (s *Store) changedSinceLastOp() bool {
	seen := s.seen.Load()
	return seen == nil || !takeFingerprint(s.path).equal(*seen)
}

// querier is satisfied by both *DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
