package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listado-engine/internal/domain"
)

// Adapter is one independent listing source. Fetch may fail; the caller
// swallows the failure and keeps the siblings' results.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, filters map[string]string) ([]domain.RawRecord, error)
}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36 Listado/1.0"

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// fetchDoc downloads and parses one page. Non-200 statuses are errors so
// the adapter's whole fetch registers as a failure upstream.
func fetchDoc(ctx context.Context, hc *http.Client, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9,en;q=0.8")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// pageImages collects the og:image plus the first few inline images,
// resolved against base the same way links are.
func pageImages(doc *goquery.Document, base string) []string {
	var images []string
	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && og != "" {
		images = append(images, absURL(base, og))
	}
	doc.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if src == "" {
			return true
		}
		if u := absURL(base, src); !contains(images, u) {
			images = append(images, u)
		}
		return len(images) < 5
	})
	return images
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func absURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

func anyContains(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
