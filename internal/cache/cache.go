package cache

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultFresh/DefaultStaleExtra are the windows most engine results use.
	DefaultFresh      = 30 * time.Minute
	DefaultStaleExtra = 10 * time.Minute

	archivePrefix = "archive:"
	archiveMax    = 200
	archiveFresh  = 24 * time.Hour
)

// Backend is one key-value store with stale-while-revalidate windows.
// Get returns (nil,false,false) for missing or fully expired keys.
// Backend failures degrade silently: reads become misses, writes no-ops.
type Backend interface {
	Get(key string) (value []byte, fresh, servable bool)
	Set(key string, value []byte, freshFor, staleExtra time.Duration)
}

// Cache is the SWR facade shared by the search client and the aggregation
// engine. Callers never see which backend is underneath.
type Cache struct {
	backend Backend
	log     *zap.SugaredLogger
}

func New(backend Backend, log *zap.SugaredLogger) *Cache {
	return &Cache{backend: backend, log: log}
}

func (c *Cache) Get(key string) ([]byte, bool, bool) {
	return c.backend.Get(key)
}

func (c *Cache) Set(key string, value []byte, freshFor, staleExtra time.Duration) {
	c.backend.Set(key, value, freshFor, staleExtra)
}

// GetJSON unmarshals a cached value into dest. A value that no longer
// unmarshals is treated as a miss rather than surfaced as an error.
func (c *Cache) GetJSON(key string, dest any) (fresh, servable bool) {
	raw, fresh, servable := c.backend.Get(key)
	if raw == nil {
		return false, false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Debugw("cache entry unreadable, treating as miss", "key", key, "err", err)
		return false, false
	}
	return fresh, servable
}

func (c *Cache) SetJSON(key string, value any, freshFor, staleExtra time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Debugw("cache marshal failed, skipping write", "key", key, "err", err)
		return
	}
	c.backend.Set(key, raw, freshFor, staleExtra)
}

// AppendArchive prepends item to the bounded audit list behind listKey,
// keeping the most recent 200 entries. Archive entries get a 24h fresh
// window and are never served stale.
func (c *Cache) AppendArchive(listKey string, item any) {
	key := archivePrefix + listKey

	var items []json.RawMessage
	raw, _, servable := c.backend.Get(key)
	if servable && raw != nil {
		_ = json.Unmarshal(raw, &items)
	}

	entry, err := json.Marshal(item)
	if err != nil {
		c.log.Debugw("archive item marshal failed", "key", listKey, "err", err)
		return
	}

	items = append([]json.RawMessage{entry}, items...)
	if len(items) > archiveMax {
		items = items[:archiveMax]
	}

	out, err := json.Marshal(items)
	if err != nil {
		return
	}
	c.backend.Set(key, out, archiveFresh, 0)
}

// Archive returns the current archive list (newest first), up to limit.
func (c *Cache) Archive(listKey string, limit int) []json.RawMessage {
	var items []json.RawMessage
	raw, _, servable := c.backend.Get(archivePrefix + listKey)
	if !servable || raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
