// Package store is the embedded relational persistence layer: a
// single mutex-guarded WAL-mode SQLite connection, schema migrations,
// and repositories for jobs, processed emails, OAuth tokens, and
// daily processing stats.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store is a shared-ownership handle around one SQLite connection.
// All writers serialize through mu; the mutex is held only for the
// duration of a single prepared-statement batch, never across
// network or channel I/O, per the concurrency model's shared-resource
// policy.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex

	Jobs           *JobRepository
	ProcessedEmail *ProcessedEmailRepository
	OAuthTokens    *OAuthTokenRepository
	Stats          *StatsRepository
}

// Open opens (creating if absent) the SQLite database at path in WAL
// mode and runs every pending migration.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s := &Store{db: db, path: path}
	s.Jobs = &JobRepository{s: s}
	s.ProcessedEmail = &ProcessedEmailRepository{s: s}
	s.OAuthTokens = &OAuthTokenRepository{s: s}
	s.Stats = &StatsRepository{s: s}
	return s, nil
}

// Path returns the database file path, used by daemon validation.
func (s *Store) Path() string { return s.path }

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withLock runs fn while holding the store's write-serializing mutex.
func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// UnderlyingDB exposes the raw *sql.DB for callers that need direct
// access (migrations, admin tooling). Bypasses the repository layer;
// use with care.
func (s *Store) UnderlyingDB() *sql.DB { return s.db }
