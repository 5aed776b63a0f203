package source

import (
	"context"
	"strings"
	"time"

	"listado-engine/internal/domain"
	"listado-engine/internal/search"
)

// Provider turns boosted web-search hits into raw records so the search
// client participates in fan-out like any scraped source.
type Provider struct {
	Client *search.Client
	TopK   int
}

func NewProvider(client *search.Client) *Provider {
	return &Provider{Client: client, TopK: 8}
}

func (s *Provider) Name() string { return "provider" }

func (s *Provider) Fetch(ctx context.Context, filters map[string]string) ([]domain.RawRecord, error) {
	terms := []string{"voluntariado"}
	if need := strings.TrimSpace(filters["need"]); need != "" {
		terms = append(terms, need)
	}
	if loc := strings.TrimSpace(filters["location"]); loc != "" {
		terms = append(terms, loc)
	}
	query := strings.Join(terms, " ")

	res := s.Client.SearchBoosted(ctx, query, s.TopK, nil, nil)

	out := make([]domain.RawRecord, 0, len(res.Results))
	for _, hit := range res.Results {
		if hit.URL == "" {
			continue
		}
		rec := domain.RawRecord{
			domain.KeyRole:     hit.Title,
			domain.KeyDetails:  hit.Snippet,
			domain.KeyScore:    0.55,
			domain.KeySource:   hit.Source,
			domain.KeyLink:     hit.URL,
			domain.KeyPostedAt: time.Now().Format(time.RFC3339),
		}
		if loc := strings.TrimSpace(filters["location"]); loc != "" {
			rec[domain.KeyLocation] = loc
		}
		if need := strings.TrimSpace(filters["need"]); need != "" {
			rec[domain.KeyNeed] = need
		}
		out = append(out, rec)
	}
	return out, nil
}
