package source

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"listado-engine/internal/domain"
)

// Failure records one adapter that could not deliver.
type Failure struct {
	Adapter string
	Err     error
}

const adapterTimeout = 2 * time.Minute

// Gather fans a query out over every adapter concurrently and concatenates
// the results in completion order. One adapter failing never aborts the
// siblings; the failures come back alongside the successes so the caller
// can log them and move on.
func Gather(ctx context.Context, log *zap.SugaredLogger, adapters []Adapter, filters map[string]string) ([]domain.RawRecord, []Failure) {
	type outcome struct {
		adapter string
		records []domain.RawRecord
		err     error
	}

	results := make(chan outcome, len(adapters))

	var g errgroup.Group
	for _, a := range adapters {
		a := a
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, adapterTimeout)
			defer cancel()

			records, err := a.Fetch(fctx, filters)
			results <- outcome{adapter: a.Name(), records: records, err: err}
			return nil // best-effort: don't cancel siblings
		})
	}
	_ = g.Wait()
	close(results)

	var records []domain.RawRecord
	var failures []Failure
	for res := range results {
		if res.err != nil {
			log.Debugw("source failed", "source", res.adapter, "err", res.err)
			failures = append(failures, Failure{Adapter: res.adapter, Err: res.err})
			continue
		}
		log.Debugw("source ok", "source", res.adapter, "records", len(res.records))
		records = append(records, res.records...)
	}
	return records, failures
}
