package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrQuotaExceeded = errors.New("monthly search quota exceeded")

// Admission is the pair of gates every primary-provider call must clear:
// a minimum inter-request interval and a monthly quota.
//
// The interval gate rides on rate.Limiter (burst 1), which serializes
// admissions on the monotonic clock, so two concurrent callers can never
// both sail through with zero wait. Quota periods are keyed by wall-clock
// year-month; the counter never decreases within a period and is consumed
// even by denied attempts.
type Admission struct {
	interval *rate.Limiter
	quota    int

	mu     sync.Mutex
	period string
	used   int

	nowWall func() time.Time
}

func NewAdmission(maxRequestsPerSecond float64, monthlyQuota int) *Admission {
	return &Admission{
		interval: rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1),
		quota:    monthlyQuota,
		nowWall:  time.Now,
	}
}

// Admit blocks until the interval gate opens, then consumes one unit of
// quota. It returns ErrQuotaExceeded once the period's quota is spent, or
// the context error if the caller gives up mid-wait.
func (a *Admission) Admit(ctx context.Context) error {
	if err := a.interval.Wait(ctx); err != nil {
		return err
	}
	return a.consumeQuota()
}

func (a *Admission) consumeQuota() error {
	period := a.nowWall().Format("2006-01")

	a.mu.Lock()
	defer a.mu.Unlock()

	if period != a.period {
		a.period = period
		a.used = 0
	}
	a.used++
	if a.used > a.quota {
		return ErrQuotaExceeded
	}
	return nil
}

// Usage reports the current period and how much of its quota is spent.
func (a *Admission) Usage() (period string, used, quota int) {
	now := a.nowWall().Format("2006-01")

	a.mu.Lock()
	defer a.mu.Unlock()

	if now != a.period {
		return now, 0, a.quota
	}
	return a.period, a.used, a.quota
}
