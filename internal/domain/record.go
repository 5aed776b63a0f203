package domain

import (
	"strings"
	"time"
)

// RawRecord is the open key/value payload a source adapter hands back.
// Shape varies per source; the only expectation is that link or source
// carries a usable URL. It never travels past normalization.
type RawRecord map[string]any

// Well-known raw keys. Adapters fill whichever of these they can.
const (
	KeyOrg      = "org"
	KeyRole     = "role"
	KeyLocation = "location"
	KeyNeed     = "need"
	KeyHours    = "hours"
	KeyDetails  = "details"
	KeySalary   = "salary"
	KeyScore    = "score"
	KeySource   = "source"
	KeyLink     = "link"
	KeyImages   = "images"
	KeyPostedAt = "posted_at"
)

func (r RawRecord) Str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func (r RawRecord) Float(key string, fallback float64) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func (r RawRecord) StrList(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Link returns the dedup identity: link if present, else source URL.
func (r RawRecord) Link() string {
	if l := r.Str(KeyLink); l != "" {
		return l
	}
	return r.Str(KeySource)
}

// Listing is the canonical record every path downstream of normalization
// consumes. Immutable once built.
type Listing struct {
	Title        string    `json:"title"`
	Org          string    `json:"org"`
	Link         string    `json:"link"`
	Locations    []string  `json:"locations"`
	Categories   []string  `json:"categories"`
	Availability string    `json:"availability"`
	Salary       string    `json:"salary"`
	Details      string    `json:"details"`
	Source       string    `json:"source"`
	Images       []string  `json:"images,omitempty"`
	PostedAt     time.Time `json:"postedAt"`
	RankScore    float64   `json:"rankScore"`
}

// HasCategory reports whether the listing carries the category (case-insensitive).
func (l Listing) HasCategory(name string) bool {
	for _, c := range l.Categories {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
