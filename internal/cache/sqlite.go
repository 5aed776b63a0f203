package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteBackend persists SWR entries so they survive restarts. Expiry is
// real: rows are deleted once their servable window passes, either lazily
// on read or by PurgeExpired from the scheduler.
//
// Any backend error degrades per the cache contract: reads report a miss,
// writes are dropped. The engine keeps running either way.
type SQLiteBackend struct {
	db  *sql.DB
	log *zap.SugaredLogger

	now func() time.Time
}

func OpenSQLiteBackend(path string, log *zap.SugaredLogger) (*SQLiteBackend, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite wants a single writer
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS swr_cache (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  fresh_at INTEGER NOT NULL,
  stale_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_swr_cache_stale_at ON swr_cache(stale_at);
`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache schema: %w", err)
	}

	return &SQLiteBackend{db: db, log: log, now: time.Now}, nil
}

func (b *SQLiteBackend) Get(key string) ([]byte, bool, bool) {
	var value []byte
	var freshAt, staleAt int64

	err := b.db.QueryRow(
		`SELECT value, fresh_at, stale_at FROM swr_cache WHERE key = ?;`, key,
	).Scan(&value, &freshAt, &staleAt)
	if err == sql.ErrNoRows {
		return nil, false, false
	}
	if err != nil {
		b.log.Debugw("cache read failed, treating as miss", "key", key, "err", err)
		return nil, false, false
	}

	now := b.now().UnixMilli()
	if now >= staleAt {
		_, _ = b.db.Exec(`DELETE FROM swr_cache WHERE key = ?;`, key)
		return nil, false, false
	}
	return value, now < freshAt, true
}

func (b *SQLiteBackend) Set(key string, value []byte, freshFor, staleExtra time.Duration) {
	freshAt := b.now().Add(freshFor)
	staleAt := freshAt.Add(staleExtra)

	_, err := b.db.Exec(`
INSERT INTO swr_cache(key, value, fresh_at, stale_at)
VALUES(?,?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, fresh_at=excluded.fresh_at, stale_at=excluded.stale_at;`,
		key, value, freshAt.UnixMilli(), staleAt.UnixMilli(),
	)
	if err != nil {
		b.log.Debugw("cache write dropped", "key", key, "err", err)
	}
}

// PurgeExpired removes every row whose servable window has passed.
func (b *SQLiteBackend) PurgeExpired() (int64, error) {
	res, err := b.db.Exec(`DELETE FROM swr_cache WHERE stale_at <= ?;`, b.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
