package search

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdmissionSerializesInterval(t *testing.T) {
	const (
		n   = 5
		rps = 20.0 // 50ms between calls
	)
	a := NewAdmission(rps, 1000)

	start := time.Now()
	stamps := make([]time.Time, 0, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, a.Admit(context.Background()))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	interval := time.Duration(float64(time.Second) / rps)
	for i := 1; i < n; i++ {
		gap := stamps[i].Sub(stamps[i-1])
		// small scheduling slack; the limiter spaces the wakeups, not our clock reads
		require.GreaterOrEqual(t, gap, interval-10*time.Millisecond,
			"admissions %d and %d too close", i-1, i)
	}
	require.GreaterOrEqual(t, time.Since(start), time.Duration(n-1)*interval-20*time.Millisecond)
}

func TestQuotaFailClosed(t *testing.T) {
	a := NewAdmission(10000, 3)
	a.nowWall = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Admit(context.Background()), "call %d should be admitted", i+1)
	}
	err := a.Admit(context.Background())
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// denial also consumed quota
	_, used, quota := a.Usage()
	require.Equal(t, 4, used)
	require.Equal(t, 3, quota)
}

func TestQuotaResetsAtNewPeriod(t *testing.T) {
	now := time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC)
	a := NewAdmission(10000, 1)
	a.nowWall = func() time.Time { return now }

	require.NoError(t, a.Admit(context.Background()))
	require.ErrorIs(t, a.Admit(context.Background()), ErrQuotaExceeded)

	now = time.Date(2025, 7, 1, 0, 0, 1, 0, time.UTC)
	require.NoError(t, a.Admit(context.Background()), "fresh period admits again")
}

func TestQuotaConcurrentIncrementsAreNotLost(t *testing.T) {
	a := NewAdmission(100000, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Admit(context.Background())
		}()
	}
	wg.Wait()

	_, used, _ := a.Usage()
	require.Equal(t, 50, used)
}
