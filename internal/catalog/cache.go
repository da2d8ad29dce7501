package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"critterdex/internal/dbx"
)

// DefaultCacheMaxAge is how long a cached record stays fresh.
const DefaultCacheMaxAge = 24 * time.Hour

// Cache is a local SQLite-backed store of fetched creature records, so
// repeat lookups (page resolution, search) skip the network.
type Cache struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// OpenCache opens (creating if needed) the cache database at path. A
// non-positive maxAge selects DefaultCacheMaxAge.
func OpenCache(ctx context.Context, path string, maxAge time.Duration) (*Cache, error) {
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?journal_mode=WAL&busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	query := `
	CREATE TABLE IF NOT EXISTS creatures (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		payload TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Cache{db: db, maxAge: maxAge, now: time.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// GetByID returns the cached record with the given id if it is still fresh.
func (c *Cache) GetByID(ctx context.Context, id int) (*Creature, bool, error) {
	return c.get(ctx, `SELECT payload, fetched_at FROM creatures WHERE id = ?`, id)
}

// GetByName returns the cached record with the given name if it is still fresh.
func (c *Cache) GetByName(ctx context.Context, name string) (*Creature, bool, error) {
	return c.get(ctx, `SELECT payload, fetched_at FROM creatures WHERE name = ?`, name)
}

func (c *Cache) get(ctx context.Context, query string, arg any) (*Creature, bool, error) {
	var payload string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx, query, arg).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query cache: %w", err)
	}

	if c.now().Unix()-fetchedAt > int64(c.maxAge.Seconds()) {
		return nil, false, nil
	}

	var creature Creature
	if err := json.Unmarshal([]byte(payload), &creature); err != nil {
		// A corrupt row behaves like a miss; the next Put overwrites it.
		return nil, false, nil
	}
	return &creature, true, nil
}

// Put upserts one record.
func (c *Cache) Put(ctx context.Context, creature *Creature) error {
	return c.put(ctx, c.db, creature)
}

// PutAll upserts a batch of records in a single transaction.
func (c *Cache) PutAll(ctx context.Context, creatures []Creature) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range creatures {
			if err := c.put(ctx, tx, &creatures[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Cache) put(ctx context.Context, db dbx.DBTX, creature *Creature) error {
	payload, err := json.Marshal(creature)
	if err != nil {
		return fmt.Errorf("failed to marshal creature: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO creatures (id, name, payload, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, creature.ID, creature.Name, string(payload), c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert creature %q: %w", creature.Name, err)
	}
	return nil
}
