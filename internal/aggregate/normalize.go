package aggregate

import (
	"sort"
	"strings"
	"time"

	"listado-engine/internal/domain"
)

// inRegion reports whether any region token appears in the record's
// descriptive fields, link and source URL included.
func (e *Engine) inRegion(rec domain.RawRecord) bool {
	var b strings.Builder
	for _, key := range []string{
		domain.KeyOrg, domain.KeyRole, domain.KeyLocation,
		domain.KeyNeed, domain.KeyHours, domain.KeySource, domain.KeyLink,
	} {
		b.WriteString(rec.Str(key))
		b.WriteByte(' ')
	}
	text := strings.ToLower(b.String())
	for _, tok := range e.opts.RegionTokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// inferCategories matches the role+need text against the keyword table.
// Records matching nothing fall into "general". Output order is stable.
func (e *Engine) inferCategories(rec domain.RawRecord) []string {
	text := strings.ToLower(rec.Str(domain.KeyRole) + " " + rec.Str(domain.KeyNeed))

	var cats []string
	for name, keywords := range e.opts.Categories {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				cats = append(cats, name)
				break
			}
		}
	}
	if len(cats) == 0 {
		return []string{"general"}
	}
	sort.Strings(cats)
	return cats
}

// extractSalary prefers an explicit salary field, then scans role/need/details
// for currency markers, then falls back to the unpaid placeholder.
func extractSalary(rec domain.RawRecord) string {
	if s := strings.TrimSpace(rec.Str(domain.KeySalary)); s != "" {
		return s
	}
	for _, key := range []string{domain.KeyRole, domain.KeyNeed, domain.KeyDetails} {
		txt := rec.Str(key)
		if strings.Contains(txt, "$") || strings.Contains(txt, "MXN") || strings.Contains(txt, "USD") {
			return txt
		}
	}
	return "No remunerado / N/A"
}

// normalize shapes one raw record into a Listing. defaultLocation fills in
// when the record carries no location of its own.
func (e *Engine) normalize(rec domain.RawRecord, defaultLocation string) domain.Listing {
	title := rec.Str(domain.KeyRole)
	if title == "" {
		title = rec.Str(domain.KeyOrg)
	}
	if title == "" {
		title = "Voluntariado"
	}

	locations := rec.StrList(domain.KeyLocation)
	if len(locations) == 0 {
		if loc := rec.Str(domain.KeyLocation); loc != "" {
			locations = []string{loc}
		} else {
			locations = []string{defaultLocation}
		}
	}

	// UTC everywhere so a cached listing round-trips byte-identical.
	postedAt := e.now().UTC()
	if raw := rec.Str(domain.KeyPostedAt); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			postedAt = t.UTC()
		}
	}

	return domain.Listing{
		Title:        title,
		Org:          rec.Str(domain.KeyOrg),
		Link:         rec.Link(),
		Locations:    locations,
		Categories:   e.inferCategories(rec),
		Availability: availabilityOrDefault(rec),
		Salary:       extractSalary(rec),
		Details:      rec.Str(domain.KeyNeed),
		Source:       rec.Str(domain.KeySource),
		Images:       rec.StrList(domain.KeyImages),
		PostedAt:     postedAt,
		RankScore:    rec.Float(domain.KeyScore, 0.5),
	}
}

func availabilityOrDefault(rec domain.RawRecord) string {
	if h := rec.Str(domain.KeyHours); h != "" {
		return h
	}
	return "variable"
}

// isSafe reports whether the listing's source or link starts inside one of
// the trusted origins.
func (e *Engine) isSafe(l domain.Listing) bool {
	for _, origin := range e.opts.SafeSources {
		if strings.Contains(l.Source, origin) || strings.Contains(l.Link, origin) {
			return true
		}
	}
	return false
}
