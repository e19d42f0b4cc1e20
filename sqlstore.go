package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	_ "github.com/lib/pq"  // Postgres driver.
	_ "modernc.org/sqlite" // SQLite driver.
)

// SQL dialects supported by SQLStore.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// SQLStoreConfig controls SQL cache storage.
type SQLStoreConfig struct {
	// Name is cache instance name, used in stats and logging.
	Name string

	// TimeToLive is delay before entry expiration, default 10s.
	TimeToLive time.Duration

	// Now returns current time, time.Now by default.
	Now func() time.Time

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker
}

var (
	_ ReadWriter = &SQLStore{}
	_ Deleter    = &SQLStore{}
)

// SQLStore keeps cache entries in a database table, values are serialized with encoding/gob.
//
// Custom value types must be registered with GobRegister.
type SQLStore struct {
	db      *sql.DB
	dialect string
	config  SQLStoreConfig
	log     ctxd.Logger
	stat    stats.Tracker
}

// NewSQLiteStore opens SQLite database and prepares cache table.
func NewSQLiteStore(dsn string, cfg SQLStoreConfig) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "fetchcache.db"
	}

	db, err := sql.Open(DialectSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache store: %w", err)
	}

	// SQLite does not allow concurrent writers.
	db.SetMaxOpenConns(1)

	return newSQLStore(db, DialectSQLite, cfg)
}

// NewPostgresStore opens Postgres database and prepares cache table.
func NewPostgresStore(dsn string, cfg SQLStoreConfig) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sql.Open(DialectPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres cache store: %w", err)
	}

	return newSQLStore(db, DialectPostgres, cfg)
}

func newSQLStore(db *sql.DB, dialect string, cfg SQLStoreConfig) (*SQLStore, error) {
	s := NewSQLStore(db, dialect, cfg)

	if err := s.init(context.Background()); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

// NewSQLStore creates storage on top of an open database, table must be created with Init.
func NewSQLStore(db *sql.DB, dialect string, cfg SQLStoreConfig) *SQLStore {
	if cfg.TimeToLive == 0 {
		cfg.TimeToLive = DefaultTimeToLive
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &SQLStore{
		db:      db,
		dialect: dialect,
		config:  cfg,
		log:     cfg.Logger,
		stat:    cfg.Stats,
	}

	if s.log == nil {
		s.log = ctxd.NoOpLogger{}
	}

	if s.stat == nil {
		s.stat = stats.NoOp{}
	}

	return s
}

// Init creates cache table if it does not exist.
func (s *SQLStore) Init(ctx context.Context) error {
	return s.init(ctx)
}

func (s *SQLStore) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s cache store: %w", s.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS fetch_cache (
	cache_key TEXT PRIMARY KEY,
	value BLOB,
	created_at INTEGER NOT NULL,
	expire_at INTEGER NOT NULL
);`

	if s.dialect == DialectPostgres {
		ddl = `
CREATE TABLE IF NOT EXISTS fetch_cache (
	cache_key TEXT PRIMARY KEY,
	value BYTEA,
	created_at BIGINT NOT NULL,
	expire_at BIGINT NOT NULL
);`
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("initialize cache schema: %w", err)
	}

	return nil
}

// query rewrites ? placeholders for Postgres.
func (s *SQLStore) query(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}

	var (
		sb strings.Builder
		n  int
	)

	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteString(fmt.Sprintf("$%d", n))

			continue
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

// Read gets value.
func (s *SQLStore) Read(ctx context.Context, key string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	var (
		data              []byte
		created, expireAt int64
	)

	err := s.db.QueryRowContext(ctx,
		s.query(`SELECT value, created_at, expire_at FROM fetch_cache WHERE cache_key = ?`), key,
	).Scan(&data, &created, &expireAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Debug(ctx, "cache miss", "name", s.config.Name, "key", key)
		s.stat.Add(ctx, MetricMiss, 1, "name", s.config.Name)

		return nil, ErrCacheItemNotFound
	}

	if err != nil {
		return nil, &StorageError{Op: "read", Key: key, Err: err}
	}

	e := &entry{K: key, C: time.Unix(0, created), E: time.Unix(0, expireAt)}

	if e.expired(s.config.Now()) {
		s.log.Debug(ctx, "cache key expired", "name", s.config.Name, "key", key)
		s.stat.Add(ctx, MetricExpired, 1, "name", s.config.Name)

		// Entry is only removed if it was not overwritten meanwhile.
		if _, err := s.db.ExecContext(ctx,
			s.query(`DELETE FROM fetch_cache WHERE cache_key = ? AND created_at = ?`), key, created,
		); err != nil {
			s.log.Warn(ctx, "failed to delete expired cache entry",
				"error", err, "name", s.config.Name, "key", key)
		}

		return nil, errExpired{entry: e}
	}

	v, err := decodeValue(data)
	if err != nil {
		return nil, &StorageError{Op: "decode", Key: key, Err: err}
	}

	s.log.Debug(ctx, "cache hit", "name", s.config.Name, "key", key)
	s.stat.Add(ctx, MetricHit, 1, "name", s.config.Name)

	return v, nil
}

// Write sets value.
func (s *SQLStore) Write(ctx context.Context, key string, value interface{}) error {
	data, err := encodeValue(value)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}

	now := s.config.Now()

	_, err = s.db.ExecContext(ctx, s.query(`
INSERT INTO fetch_cache(cache_key, value, created_at, expire_at) VALUES(?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at, expire_at = excluded.expire_at`),
		key, data, now.UnixNano(), now.Add(s.config.TimeToLive).UnixNano(),
	)
	if err != nil {
		return &StorageError{Op: "write", Key: key, Err: err}
	}

	s.log.Debug(ctx, "wrote to cache", "name", s.config.Name, "key", key, "value", value)
	s.stat.Add(ctx, MetricWrite, 1, "name", s.config.Name)

	return nil
}

// Delete removes entry.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, s.query(`DELETE FROM fetch_cache WHERE cache_key = ?`), key)
	if err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCacheItemNotFound
	}

	s.stat.Add(ctx, MetricDelete, 1, "name", s.config.Name)

	return nil
}

// DeleteExpired removes all expired entries and returns their count.
func (s *SQLStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.query(`DELETE FROM fetch_cache WHERE expire_at < ?`), s.config.Now().UnixNano())
	if err != nil {
		return 0, &StorageError{Op: "delete expired", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "delete expired", Err: err}
	}

	if n > 0 {
		s.log.Debug(ctx, "deleted expired cache items", "name", s.config.Name, "count", n)
	}

	return n, nil
}

// ExpireAll marks all entries as expired.
func (s *SQLStore) ExpireAll() {
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		s.query(`UPDATE fetch_cache SET expire_at = ?`), s.config.Now().UnixNano()-1)
	if err != nil {
		s.log.Error(ctx, "failed to expire cache entries", "error", err, "name", s.config.Name)

		return
	}

	s.log.Important(ctx, "expired all entries in cache", "name", s.config.Name)
}

// Len returns number of stored entries, including expired ones not yet deleted.
func (s *SQLStore) Len(ctx context.Context) (int, error) {
	var n int

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetch_cache`).Scan(&n); err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}

	return n, nil
}

// Close closes database.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}
