package scoring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultCacheTTL bounds how long a cached breakdown may be served.
// Expired entries are never returned, even if eviction lags.
const DefaultCacheTTL = 15 * time.Minute

// Cache stores serialized score breakdowns in the history database
// with a hard TTL. Keys are ticker + hour bucket + constitution
// version, so a constitution amendment naturally invalidates
// everything cached under the previous version.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates a score cache backed by the given database
func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "score_cache").Logger(),
	}
}

func cacheKey(ticker, version string, now time.Time) string {
	return fmt.Sprintf("score:%s:%s:%s", ticker, version, now.UTC().Format("2006-01-02T15"))
}

// Get returns the cached breakdown for a ticker, or nil on miss or
// expiry. Cache errors degrade to a miss; scoring must never fail
// because the cache is unhealthy.
func (c *Cache) Get(ticker, version string, now time.Time) *Breakdown {
	var payload []byte
	var expiresAt int64

	err := c.db.QueryRow(
		`SELECT payload, expires_at FROM score_cache WHERE cache_key = ?`,
		cacheKey(ticker, version, now),
	).Scan(&payload, &expiresAt)
	if err != nil {
		if err != sql.ErrNoRows {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Score cache read failed")
		}
		return nil
	}

	if now.Unix() >= expiresAt {
		return nil
	}

	var b Breakdown
	if err := msgpack.Unmarshal(payload, &b); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Score cache payload corrupt, dropping")
		_, _ = c.db.Exec(`DELETE FROM score_cache WHERE cache_key = ?`, cacheKey(ticker, version, now))
		return nil
	}

	return &b
}

// Put stores a breakdown under its ticker/version bucket
func (c *Cache) Put(b Breakdown, now time.Time) {
	payload, err := msgpack.Marshal(b)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", b.Ticker).Msg("Score cache marshal failed")
		return
	}

	_, err = c.db.Exec(
		`INSERT INTO score_cache (cache_key, payload, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		cacheKey(b.Ticker, b.ConstitutionVersion, now),
		payload,
		now.Add(c.ttl).Unix(),
	)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", b.Ticker).Msg("Score cache write failed")
	}
}

// Evict removes expired rows; called by the refresh job
func (c *Cache) Evict(now time.Time) {
	res, err := c.db.Exec(`DELETE FROM score_cache WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		c.log.Warn().Err(err).Msg("Score cache eviction failed")
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		c.log.Debug().Int64("evicted", n).Msg("Score cache evicted expired entries")
	}
}
