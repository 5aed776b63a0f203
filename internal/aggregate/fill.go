package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"listado-engine/internal/cache"
	"listado-engine/internal/domain"
)

const fillArchiveKey = "fills"

// FillSummary is the audit entry appended to the archive after each fill.
type FillSummary struct {
	Categories []string       `json:"categories"`
	Location   string         `json:"location"`
	Counts     map[string]int `json:"counts"`
	At         string         `json:"at"`
}

// FillByCategory returns up to minPer listings per category, regional
// results first, backfilled from the global pool when a bucket comes up
// short. Each bucket is deduplicated by link and location-matching global
// listings are preferred during backfill.
func (e *Engine) FillByCategory(ctx context.Context, categories []string, location string, minPer int, safeOnly bool) map[string][]domain.Listing {
	if minPer <= 0 {
		minPer = 10
	}

	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	key := fmt.Sprintf("fill:%s:%s:%d:%t", strings.Join(sorted, ","), strings.ToLower(location), minPer, safeOnly)

	var cached map[string][]domain.Listing
	if fresh, _ := e.cache.GetJSON(key, &cached); fresh {
		return cached
	}

	filters := map[string]string{}
	if location != "" {
		filters["location"] = location
	}
	regional := e.CollectRegion(ctx, filters)

	byCategory := make(map[string][]domain.Listing, len(categories))
	seen := make(map[string]map[string]bool, len(categories))
	for _, cat := range categories {
		seen[cat] = make(map[string]bool)
		var items []domain.Listing
		for _, l := range regional {
			if len(items) >= minPer {
				break
			}
			if !l.HasCategory(cat) || seen[cat][l.Link] {
				continue
			}
			if safeOnly && !e.isSafe(l) {
				continue
			}
			seen[cat][l.Link] = true
			items = append(items, l)
		}
		byCategory[cat] = items
	}

	needMore := false
	for _, cat := range categories {
		if len(byCategory[cat]) < minPer {
			needMore = true
			break
		}
	}

	if needMore {
		raw := e.Search(ctx, map[string]string{})
		global := make([]domain.Listing, 0, len(raw))
		for _, rec := range raw {
			if rec.Link() == "" {
				continue
			}
			global = append(global, e.normalize(rec, e.opts.GlobalFallback))
		}

		loc := strings.ToLower(location)
		for _, cat := range categories {
			if len(byCategory[cat]) >= minPer {
				continue
			}

			var extra []domain.Listing
			for _, l := range global {
				if !l.HasCategory(cat) || seen[cat][l.Link] {
					continue
				}
				if safeOnly && !e.isSafe(l) {
					continue
				}
				seen[cat][l.Link] = true
				extra = append(extra, l)
			}
			if loc != "" {
				sort.SliceStable(extra, func(i, j int) bool {
					return locationsContain(extra[i].Locations, loc) && !locationsContain(extra[j].Locations, loc)
				})
			}

			needed := minPer - len(byCategory[cat])
			if len(extra) > needed {
				extra = extra[:needed]
			}
			byCategory[cat] = append(byCategory[cat], extra...)
		}
	}

	e.cache.SetJSON(key, byCategory, cache.DefaultFresh, cache.DefaultStaleExtra)

	counts := make(map[string]int, len(byCategory))
	for cat, items := range byCategory {
		counts[cat] = len(items)
	}
	e.cache.AppendArchive(fillArchiveKey, FillSummary{
		Categories: categories,
		Location:   location,
		Counts:     counts,
		At:         e.now().UTC().Format("2006-01-02T15:04:05"),
	})

	return byCategory
}

// FillByArea expands each area into its constituent categories, fills them,
// then flattens into one deduplicated bucket per area. An unknown area maps
// to itself as a single category. Dedup is by link, first occurrence wins.
func (e *Engine) FillByArea(ctx context.Context, areas []string, location string, minPer int, safeOnly bool) map[string][]domain.Listing {
	if minPer <= 0 {
		minPer = 10
	}

	result := make(map[string][]domain.Listing, len(areas))
	for _, raw := range areas {
		area := strings.ToLower(strings.TrimSpace(raw))
		if area == "" {
			continue
		}

		categories, ok := e.opts.Areas[area]
		if !ok {
			categories = []string{area}
		}
		byCategory := e.FillByCategory(ctx, categories, location, minPer, safeOnly)

		seen := make(map[string]bool)
		var deduped []domain.Listing
		for _, cat := range categories {
			for _, l := range byCategory[cat] {
				id := l.Link
				if id == "" {
					id = l.Source
				}
				if id == "" || seen[id] {
					continue
				}
				seen[id] = true
				deduped = append(deduped, l)
			}
		}
		if len(deduped) > minPer {
			deduped = deduped[:minPer]
		}
		result[area] = deduped
	}
	return result
}

// FillHistory returns the most recent fill summaries, newest first.
func (e *Engine) FillHistory(limit int) []FillSummary {
	raws := e.cache.Archive(fillArchiveKey, limit)
	out := make([]FillSummary, 0, len(raws))
	for _, raw := range raws {
		var s FillSummary
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
