package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"listado-engine/internal/cache"
)

const (
	cacheKeyPrefix = "provider:"
	resultFresh    = 30 * time.Minute
	resultStale    = 15 * time.Minute
)

// Hit is one search result from either the primary provider or the
// scrape fallback.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source"`
}

// Result is what SearchBoosted hands back. Results may legitimately be
// empty: a failed refresh collapses to no hits, never to an error.
type Result struct {
	FromCache    bool   `json:"fromCache"`
	Results      []Hit  `json:"results"`
	BoostedQuery string `json:"boostedQuery"`
}

type Options struct {
	Endpoint         string
	FallbackEndpoint string
	APIKey           func() string // resolved per refresh so key rotation sticks
	ProviderTimeout  time.Duration
	FallbackTimeout  time.Duration
	DefaultDomains   []string
	DefaultKeywords  []string
}

// Client wraps the paid search provider behind the query booster, the SWR
// cache, the admission gates and the scrape fallback.
type Client struct {
	cache     *cache.Cache
	admission *Admission
	log       *zap.SugaredLogger

	endpoint         string
	fallbackEndpoint string
	apiKey           func() string
	hc               *http.Client
	fallbackHC       *http.Client

	defaultDomains  []string
	defaultKeywords []string

	refreshes singleflight.Group
}

func NewClient(opts Options, admission *Admission, c *cache.Cache, log *zap.SugaredLogger) *Client {
	apiKey := opts.APIKey
	if apiKey == nil {
		apiKey = func() string { return "" }
	}
	return &Client{
		cache:            c,
		admission:        admission,
		log:              log,
		endpoint:         opts.Endpoint,
		fallbackEndpoint: opts.FallbackEndpoint,
		apiKey:           apiKey,
		hc:               &http.Client{Timeout: opts.ProviderTimeout},
		fallbackHC:       &http.Client{Timeout: opts.FallbackTimeout},
		defaultDomains:   opts.DefaultDomains,
		defaultKeywords:  opts.DefaultKeywords,
	}
}

// SearchBoosted resolves a boosted query through the cache:
// fresh hit → cached results; stale-but-servable hit → cached results plus a
// fire-and-forget refresh; miss → synchronous refresh. The caller never
// waits on a background refresh and never sees one fail.
func (c *Client) SearchBoosted(ctx context.Context, query string, topK int, domains, keywords []string) Result {
	if topK <= 0 {
		topK = 5
	}
	if domains == nil {
		domains = c.defaultDomains
	}
	if keywords == nil {
		keywords = c.defaultKeywords
	}

	boosted := BoostQuery(query, domains, keywords)
	key := fmt.Sprintf("%s%s:%d", cacheKeyPrefix, boosted, topK)

	var hits []Hit
	fresh, servable := c.cache.GetJSON(key, &hits)
	if fresh {
		return Result{FromCache: true, Results: hits, BoostedQuery: boosted}
	}
	if servable {
		go c.refreshDetached(boosted, topK, key)
		return Result{FromCache: true, Results: hits, BoostedQuery: boosted}
	}

	got, _, _ := c.refreshes.Do(key, func() (any, error) {
		return c.refresh(ctx, boosted, topK, key), nil
	})
	return Result{FromCache: false, Results: got.([]Hit), BoostedQuery: boosted}
}

// Usage exposes the admission snapshot for the status endpoint.
func (c *Client) Usage() (period string, used, quota int) {
	return c.admission.Usage()
}

func (c *Client) refreshDetached(boosted string, topK int, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, _, _ = c.refreshes.Do(key, func() (any, error) {
		return c.refresh(ctx, boosted, topK, key), nil
	})
}

// refresh tries the primary provider, then the scrape fallback. Whatever
// happens it returns a (possibly empty) hit list. Only non-empty results
// are written back; a failed attempt must not clobber a still-servable
// stale entry.
func (c *Client) refresh(ctx context.Context, boosted string, topK int, key string) []Hit {
	var hits []Hit

	if apiKey := c.apiKey(); apiKey != "" {
		var err error
		hits, err = c.fetchPrimary(ctx, apiKey, boosted, topK)
		if err != nil {
			c.log.Debugw("primary provider failed, falling back", "err", err)
			hits = nil
		}
	}

	if len(hits) == 0 {
		var err error
		hits, err = c.fetchFallback(ctx, boosted, topK)
		if err != nil {
			c.log.Debugw("fallback scrape failed", "err", err)
			return nil
		}
	}

	if len(hits) > 0 {
		c.cache.SetJSON(key, hits, resultFresh, resultStale)
	}
	return hits
}

func (c *Client) fetchPrimary(ctx context.Context, apiKey, boosted string, topK int) ([]Hit, error) {
	if err := c.admission.Admit(ctx); err != nil {
		return nil, fmt.Errorf("admission: %w", err)
	}

	count := topK
	if count < 1 {
		count = 1
	}
	if count > 10 {
		count = 10
	}

	u := fmt.Sprintf("%s?q=%s&count=%d", c.endpoint, url.QueryEscape(boosted), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Subscription-Token", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider status %d", resp.StatusCode)
	}

	var body struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("provider decode: %w", err)
	}

	results := body.Web.Results
	if len(results) > topK {
		results = results[:topK]
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		hits = append(hits, Hit{Title: r.Title, URL: r.URL, Snippet: r.Description, Source: "provider"})
	}
	return hits, nil
}
