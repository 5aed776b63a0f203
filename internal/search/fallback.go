package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// fetchFallback scrapes the HTML mirror of a public search engine for the
// boosted query. Pages without result anchors yield an empty list, not an
// error; only transport/status problems are reported.
func (c *Client) fetchFallback(ctx context.Context, boosted string, topK int) ([]Hit, error) {
	u := c.fallbackEndpoint + "?q=" + url.QueryEscape(boosted)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.fallbackHC.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fallback get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fallback status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fallback parse: %w", err)
	}

	var hits []Hit
	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		target := decodeRedirect(href)
		title := strings.Join(strings.Fields(a.Text()), " ")
		if title == "" || target == "" {
			return true
		}
		hits = append(hits, Hit{Title: title, URL: target, Source: "fallback"})
		return len(hits) < topK
	})

	// snippets live next to the anchors; best effort
	doc.Find("a.result__snippet").Each(func(i int, s *goquery.Selection) {
		if i < len(hits) && hits[i].Snippet == "" {
			hits[i].Snippet = strings.TrimSpace(s.Text())
		}
	})

	return hits, nil
}

// decodeRedirect unwraps /l/?uddg=<urlencoded> style redirect links.
func decodeRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		if dec, err := url.QueryUnescape(uddg); err == nil && dec != "" {
			return dec
		}
	}
	return href
}
