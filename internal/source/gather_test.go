package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"listado-engine/internal/domain"
)

type stubAdapter struct {
	name    string
	records []domain.RawRecord
	err     error
	delay   time.Duration
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context, _ map[string]string) ([]domain.RawRecord, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.records, s.err
}

func rec(link string) domain.RawRecord {
	return domain.RawRecord{domain.KeyLink: link}
}

func TestGatherConcatenatesAllAdapters(t *testing.T) {
	adapters := []Adapter{
		&stubAdapter{name: "a", records: []domain.RawRecord{rec("https://a/1"), rec("https://a/2")}},
		&stubAdapter{name: "b", records: []domain.RawRecord{rec("https://b/1")}},
	}

	records, failures := Gather(context.Background(), zap.NewNop().Sugar(), adapters, nil)
	require.Empty(t, failures)
	require.Len(t, records, 3)

	links := map[string]bool{}
	for _, r := range records {
		links[r.Link()] = true
	}
	require.True(t, links["https://a/1"])
	require.True(t, links["https://a/2"])
	require.True(t, links["https://b/1"])
}

func TestGatherFailureDoesNotAbortSiblings(t *testing.T) {
	boom := errors.New("boom")
	adapters := []Adapter{
		&stubAdapter{name: "broken", err: boom},
		&stubAdapter{name: "slow", delay: 20 * time.Millisecond, records: []domain.RawRecord{rec("https://ok/1")}},
	}

	records, failures := Gather(context.Background(), zap.NewNop().Sugar(), adapters, nil)
	require.Len(t, records, 1)
	require.Equal(t, "https://ok/1", records[0].Link())
	require.Len(t, failures, 1)
	require.Equal(t, "broken", failures[0].Adapter)
	require.ErrorIs(t, failures[0].Err, boom)
}

func TestGatherNoAdapters(t *testing.T) {
	records, failures := Gather(context.Background(), zap.NewNop().Sugar(), nil, nil)
	require.Empty(t, records)
	require.Empty(t, failures)
}
