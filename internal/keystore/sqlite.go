package keystore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"critterdex/internal/common"
	"critterdex/internal/keystore/migrations"
	"critterdex/internal/logging"
)

// DefaultPollInterval is how often the SQLite store checks for foreign
// changes when the caller does not override it.
const DefaultPollInterval = 150 * time.Millisecond

// SQLiteStore is a durable Store over a single kv table. Cross-process change
// detection uses PRAGMA data_version on a dedicated connection: the pragma
// value changes when a different connection commits, so it is a cheap
// "something changed" signal. On change the store re-reads the table and
// diffs it against its last snapshot, emitting one event per changed key.
// Own writes are applied to the snapshot synchronously, so the diff only
// surfaces foreign mutations.
type SQLiteStore struct {
	ops  *sql.DB // all reads and writes
	poll *sql.DB // data_version polling only
	log  logging.Logger

	mu       sync.Mutex
	subs     map[int]Handler
	nextID   int
	snapshot map[string]string
	closed   bool

	stop chan struct{}
	done chan struct{}
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the keystore database at path, runs
// schema migrations, and starts the change poller. A non-positive
// pollInterval selects DefaultPollInterval.
func OpenSQLite(ctx context.Context, path string, pollInterval time.Duration, log logging.Logger) (*SQLiteStore, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	log = logging.OrNop(log).With("component", "keystore", "backend", "sqlite")

	dsn := fmt.Sprintf("file:%s?journal_mode=WAL&busy_timeout=5000", path)

	ops, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open keystore db: %w", err)
	}
	// Single connection per handle keeps lock contention predictable and
	// makes the data_version signal unambiguous.
	ops.SetMaxOpenConns(1)
	ops.SetMaxIdleConns(1)

	if err := runMigrations(ctx, ops); err != nil {
		_ = ops.Close()
		return nil, fmt.Errorf("migrate keystore db: %w", err)
	}

	poll, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = ops.Close()
		return nil, fmt.Errorf("open keystore poll connection: %w", err)
	}
	poll.SetMaxOpenConns(1)
	poll.SetMaxIdleConns(1)

	s := &SQLiteStore{
		ops:  ops,
		poll: poll,
		log:  log,
		subs: make(map[int]Handler),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if s.snapshot, err = s.readAll(ctx); err != nil {
		_ = ops.Close()
		_ = poll.Close()
		return nil, err
	}

	version, err := s.dataVersion(ctx)
	if err != nil {
		_ = ops.Close()
		_ = poll.Close()
		return nil, err
	}

	go s.pollLoop(version, pollInterval)
	return s, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	var value string
	err := s.ops.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrorClosed
	}
	_, err := s.ops.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	s.snapshot[key] = value
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrorClosed
	}
	_, err := s.ops.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	delete(s.snapshot, key)
	return nil
}

func (s *SQLiteStore) Subscribe(h Handler) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = h
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.subs = make(map[int]Handler)
	s.mu.Unlock()

	close(s.stop)
	<-s.done

	errOps := s.ops.Close()
	errPoll := s.poll.Close()
	if errOps != nil {
		return errOps
	}
	return errPoll
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrorClosed
	}
	return nil
}

func (s *SQLiteStore) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.poll.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read data_version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) readAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.ops.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("failed to list kv: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv rows: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) pollLoop(version int64, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			current, err := s.dataVersion(ctx)
			if err != nil {
				s.log.Warn(ctx, "data_version check failed", "error", err)
				continue
			}
			if current == version {
				continue
			}
			version = current
			s.refresh(ctx)
		}
	}
}

// refresh re-reads the kv table and notifies subscribers about every key
// whose value differs from the snapshot. The table read and the diff happen
// under the store mutex so concurrent own writes cannot be misread as
// foreign ones; handlers run outside the lock.
func (s *SQLiteStore) refresh(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	current, err := s.readAll(ctx)
	if err != nil {
		s.mu.Unlock()
		s.log.Warn(ctx, "keystore refresh failed", "error", err)
		return
	}

	var events []Event
	for key, value := range current {
		if prev, ok := s.snapshot[key]; !ok || prev != value {
			events = append(events, Event{Key: key, Value: value, Present: true})
		}
	}
	for key := range s.snapshot {
		if _, ok := current[key]; !ok {
			events = append(events, Event{Key: key})
		}
	}
	s.snapshot = current

	handlers := make([]Handler, 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, ev := range events {
		for _, fn := range handlers {
			fn(ev)
		}
	}
}
