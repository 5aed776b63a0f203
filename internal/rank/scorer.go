package rank

import (
	"sort"
	"strings"

	"listado-engine/internal/domain"
)

type Scorer interface {
	Score(l domain.Listing, filters map[string]string) float64
}

// BoostScorer starts from the listing's own rank score and adds small
// boosts for matching the caller's location and field filters.
type BoostScorer struct{}

func (BoostScorer) Score(l domain.Listing, filters map[string]string) float64 {
	score := l.RankScore
	if score == 0 {
		score = 0.5
	}

	if loc := strings.ToLower(filters["location"]); loc != "" {
		for _, candidate := range l.Locations {
			if strings.Contains(strings.ToLower(candidate), loc) {
				score += 0.1
				break
			}
		}
	}
	if field := filters["field"]; field != "" && l.HasCategory(field) {
		score += 0.1
	}
	return score
}

// Rank sorts listings by descending score. The sort is stable so equal
// scores keep discovery order.
func Rank(listings []domain.Listing, filters map[string]string, scorer Scorer) []domain.Listing {
	if scorer == nil {
		scorer = BoostScorer{}
	}
	out := append([]domain.Listing(nil), listings...)
	sort.SliceStable(out, func(i, j int) bool {
		return scorer.Score(out[i], filters) > scorer.Score(out[j], filters)
	})
	return out
}
