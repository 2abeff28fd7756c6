// Package cache stores inference reports in a SQLite database, keyed by a hash
// of everything the report depends on, so that unchanged programs are not inferred again
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/cottand/rowfx/internal/log"
	_ "modernc.org/sqlite"
)

var logger = log.DefaultLogger.With("section", "cache")

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	key        TEXT PRIMARY KEY,
	report     BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Cache is safe for concurrent use
type Cache struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens the cache database at path, creating it if needed.
// ":memory:" opens a cache that lives as long as the Cache
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	// a single connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cache schema in %s: %w", path, err)
	}
	logger.Debug("opened cache", "path", path)
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Key hashes the parts a cached report depends on
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, part := range parts {
		// length-prefix every part so that moving bytes between parts changes the key
		_, _ = fmt.Fprintf(h, "%d:", len(part))
		_, _ = h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the report stored under key, if any
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, false, errors.New("cache is closed")
	}
	var report []byte
	err := c.db.QueryRowContext(ctx, `SELECT report FROM reports WHERE key = ?`, key).Scan(&report)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug("cache miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}
	logger.Debug("cache hit", "key", key)
	return report, true, nil
}

// Put stores report under key, replacing what was there
func (c *Cache) Put(ctx context.Context, key string, report []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return errors.New("cache is closed")
	}
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO reports (key, report) VALUES (?, ?)`, key, report)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Len is the number of reports in the cache
func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return 0, errors.New("cache is closed")
	}
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}
