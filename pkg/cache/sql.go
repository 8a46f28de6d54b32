package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLTable is the table SQLCache writes to.
const SQLTable = "archflow_cache"

// sqlDialect holds what differs between the supported databases.
type sqlDialect struct {
	driver string
	blob   string
	param  func(n int) string
}

var (
	sqliteDialect = sqlDialect{
		driver: "sqlite",
		blob:   "BLOB",
		param:  func(int) string { return "?" },
	}
	postgresDialect = sqlDialect{
		driver: "postgres",
		blob:   "BYTEA",
		param:  func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

// SQLCache stores entries in one table of a SQLite or PostgreSQL database.
// Expiry is kept as Unix nanoseconds, zero meaning never; expired rows are
// misses and are removed when read.
type SQLCache struct {
	db *sql.DB

	getQuery    string
	setQuery    string
	deleteQuery string
}

// NewSQLiteCache opens (creating if needed) a SQLite database at path.
func NewSQLiteCache(ctx context.Context, path string) (*SQLCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	return newSQLCache(ctx, db, sqliteDialect)
}

// NewPostgresCache connects to the PostgreSQL database at dsn.
func NewPostgresCache(ctx context.Context, dsn string) (*SQLCache, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	return newSQLCache(ctx, db, postgresDialect)
}

func newSQLCache(ctx context.Context, db *sql.DB, d sqlDialect) (*SQLCache, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s ping: %w", d.driver, err)
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	cache_key  TEXT PRIMARY KEY,
	data       %s NOT NULL,
	expires_at BIGINT NOT NULL DEFAULT 0
)`, SQLTable, d.blob)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s schema: %w", d.driver, err)
	}

	p := d.param
	return &SQLCache{
		db:       db,
		getQuery: fmt.Sprintf("SELECT data, expires_at FROM %s WHERE cache_key = %s", SQLTable, p(1)),
		setQuery: fmt.Sprintf(`INSERT INTO %s (cache_key, data, expires_at) VALUES (%s, %s, %s)
ON CONFLICT (cache_key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
			SQLTable, p(1), p(2), p(3)),
		deleteQuery: fmt.Sprintf("DELETE FROM %s WHERE cache_key = %s", SQLTable, p(1)),
	}, nil
}

// Get retrieves a value.
func (c *SQLCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data      []byte
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx, c.getQuery, key).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt != 0 && time.Now().UnixNano() > expiresAt {
		_, _ = c.db.ExecContext(ctx, c.deleteQuery, key)
		return nil, false, nil
	}
	return data, true, nil
}

// Set upserts a value. A non-positive ttl never expires.
func (c *SQLCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	_, err := c.db.ExecContext(ctx, c.setQuery, key, data, expiresAt)
	return err
}

// Delete removes a row.
func (c *SQLCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, c.deleteQuery, key)
	return err
}

// Clear removes every row and returns how many there were.
func (c *SQLCache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM "+SQLTable)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLCache) Close() error {
	return c.db.Close()
}

var _ Cache = (*SQLCache)(nil)
