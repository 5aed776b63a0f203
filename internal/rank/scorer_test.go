package rank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"listado-engine/internal/domain"
)

func TestBoostScorer(t *testing.T) {
	l := domain.Listing{
		RankScore:  0.6,
		Locations:  []string{"Monterrey"},
		Categories: []string{"salud"},
	}

	s := BoostScorer{}
	require.InDelta(t, 0.6, s.Score(l, nil), 1e-9)
	require.InDelta(t, 0.7, s.Score(l, map[string]string{"location": "monterrey"}), 1e-9)
	require.InDelta(t, 0.8, s.Score(l, map[string]string{"location": "monterrey", "field": "salud"}), 1e-9)

	// zero score falls back to the neutral baseline
	require.InDelta(t, 0.5, s.Score(domain.Listing{}, nil), 1e-9)
}

func TestRankStableForEqualScores(t *testing.T) {
	listings := []domain.Listing{
		{Link: "a", RankScore: 0.5},
		{Link: "b", RankScore: 0.5},
		{Link: "c", RankScore: 0.9},
	}

	got := Rank(listings, nil, nil)
	require.Equal(t, "c", got[0].Link)
	require.Equal(t, "a", got[1].Link) // discovery order preserved on ties
	require.Equal(t, "b", got[2].Link)

	// input slice untouched
	require.Equal(t, "a", listings[0].Link)
}

func TestRankAppliesFilterBoosts(t *testing.T) {
	listings := []domain.Listing{
		{Link: "global", RankScore: 0.6, Locations: []string{"Global"}},
		{Link: "local", RankScore: 0.55, Locations: []string{"CDMX"}},
	}

	got := Rank(listings, map[string]string{"location": "cdmx"}, nil)
	require.Equal(t, "local", got[0].Link)
}
