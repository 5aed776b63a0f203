package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"listado-engine/internal/cache"
	"listado-engine/internal/domain"
	"listado-engine/internal/source"
)

// Options carries the region/category knobs the engine filters with.
// All of them come from config.
type Options struct {
	RegionTokens   []string
	SafeSources    []string
	Categories     map[string][]string
	Areas          map[string][]string
	DefaultRegion  string
	GlobalFallback string
}

// Engine fans queries out over the source adapters and shapes the raw
// records into normalized listings, caching every aggregate along the way.
type Engine struct {
	cache    *cache.Cache
	log      *zap.SugaredLogger
	adapters []source.Adapter
	opts     Options

	now func() time.Time
}

func NewEngine(c *cache.Cache, log *zap.SugaredLogger, adapters []source.Adapter, opts Options) *Engine {
	if opts.DefaultRegion == "" {
		opts.DefaultRegion = "México"
	}
	if opts.GlobalFallback == "" {
		opts.GlobalFallback = "Global"
	}
	return &Engine{cache: c, log: log, adapters: adapters, opts: opts, now: time.Now}
}

// canonicalFilters renders a filter map deterministically so equal filters
// always hit the same cache key.
func canonicalFilters(filters map[string]string) string {
	if len(filters) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(filters))
	for k, v := range filters {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%q", k, filters[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Search fans the filters out over every adapter and concatenates raw
// records in completion order. Results are cached; only a fresh hit
// short-circuits the fan-out, anything staler is recomputed.
func (e *Engine) Search(ctx context.Context, filters map[string]string) []domain.RawRecord {
	key := "src.search:" + canonicalFilters(filters)

	var cached []domain.RawRecord
	if fresh, _ := e.cache.GetJSON(key, &cached); fresh {
		return cached
	}

	records, failures := source.Gather(ctx, e.log, e.adapters, filters)
	for _, f := range failures {
		e.log.Warnw("source unavailable", "source", f.Adapter, "err", f.Err)
	}

	e.cache.SetJSON(key, records, cache.DefaultFresh, cache.DefaultStaleExtra)
	return records
}

// CollectRegion searches broadly (empty filters) and keeps only the records
// that mention the configured region, normalized. A location filter, when
// present, narrows further by substring. The result is written through to
// the cache for later readers but a cached value never short-circuits the
// collection itself.
func (e *Engine) CollectRegion(ctx context.Context, filters map[string]string) []domain.Listing {
	raw := e.Search(ctx, map[string]string{})

	var out []domain.Listing
	for _, rec := range raw {
		if rec.Link() == "" || !e.inRegion(rec) {
			continue
		}
		out = append(out, e.normalize(rec, e.opts.DefaultRegion))
	}

	if location := strings.ToLower(strings.TrimSpace(filters["location"])); location != "" {
		filtered := out[:0]
		for _, l := range out {
			if locationsContain(l.Locations, location) {
				filtered = append(filtered, l)
			}
		}
		out = filtered
	}

	e.cache.SetJSON("region:"+canonicalFilters(filters), out, cache.DefaultFresh, cache.DefaultStaleExtra)
	return out
}

func locationsContain(locations []string, needle string) bool {
	for _, loc := range locations {
		if strings.Contains(strings.ToLower(loc), needle) {
			return true
		}
	}
	return false
}
