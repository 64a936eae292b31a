package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"fyrewiki/internal/config"
	"fyrewiki/internal/logger"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Cache is a small key/value store with expiry, backed by a SQLite file
// separate from the wiki database.
type Cache struct {
	db  *sqlx.DB
	ttl time.Duration
}

// New opens the cache database at cfg.FilePath and creates its table.
// "file::memory:" gives a private in-memory cache.
func New(cfg config.CacheConfig) (*Cache, error) {
	db, err := sqlx.Connect("sqlite", cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite cache: %w", err)
	}
	// A single connection keeps an in-memory cache to one database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode on sqlite cache: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB,
		expires_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_expires_at ON cache (expires_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// TTL is the default lifetime used by SetJSON.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key, or nil on a miss or expiry.
func (c *Cache) Get(key string) ([]byte, error) {
	var item struct {
		Value     []byte `db:"value"`
		ExpiresAt int64  `db:"expires_at"`
	}
	err := c.db.Get(&item, `SELECT value, expires_at FROM cache WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item from cache: %w", err)
	}

	if time.Now().UnixNano() >= item.ExpiresAt {
		_ = c.Delete(key)
		return nil, nil
	}
	return item.Value, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).UnixNano()
	_, err := c.db.Exec(`INSERT OR REPLACE INTO cache (key, value, expires_at) VALUES (?, ?, ?)`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set item in cache: %w", err)
	}
	return nil
}

// GetJSON decodes the value under key into dst. It reports false on a miss.
func (c *Cache) GetJSON(key string, dst any) (bool, error) {
	raw, err := c.Get(key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		_ = c.Delete(key)
		return false, fmt.Errorf("failed to decode cached %q: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key for the default TTL.
func (c *Cache) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q for cache: %w", key, err)
	}
	return c.Set(key, raw, c.ttl)
}

// Delete removes the given keys.
func (c *Cache) Delete(keys ...string) error {
	for _, key := range keys {
		if _, err := c.db.Exec(`DELETE FROM cache WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete item from cache: %w", err)
		}
	}
	return nil
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (c *Cache) PurgeExpired() (int64, error) {
	res, err := c.db.Exec(`DELETE FROM cache WHERE expires_at <= ?`, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

// StartJanitor purges expired entries every interval until stop is called.
func (c *Cache) StartJanitor(interval time.Duration, log logger.Logger) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n, err := c.PurgeExpired(); err != nil {
					log.Error(err, "Cache purge failed")
				} else if n > 0 {
					log.Debug(fmt.Sprintf("Purged %d expired cache entries", n))
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
