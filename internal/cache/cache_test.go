package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testBackends(t *testing.T) map[string]struct {
	backend Backend
	clock   *clock
} {
	t.Helper()
	log := zap.NewNop().Sugar()

	memClock := &clock{t: time.Now()}
	mem := NewMemoryBackend()
	mem.now = memClock.Now

	sqlClock := &clock{t: time.Now()}
	sq, err := OpenSQLiteBackend(filepath.Join(t.TempDir(), "cache.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	sq.now = sqlClock.Now

	return map[string]struct {
		backend Backend
		clock   *clock
	}{
		"memory": {mem, memClock},
		"sqlite": {sq, sqlClock},
	}
}

func TestFreshnessWindows(t *testing.T) {
	for name, tc := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			b, clk := tc.backend, tc.clock

			b.Set("k", []byte("v"), 10*time.Second, 5*time.Second)

			val, fresh, servable := b.Get("k")
			require.Equal(t, []byte("v"), val)
			require.True(t, fresh)
			require.True(t, servable)

			clk.Advance(10 * time.Second)
			val, fresh, servable = b.Get("k")
			require.Equal(t, []byte("v"), val)
			require.False(t, fresh, "fresh window ended")
			require.True(t, servable, "still inside stale window")

			clk.Advance(5 * time.Second)
			val, fresh, servable = b.Get("k")
			require.Nil(t, val)
			require.False(t, fresh)
			require.False(t, servable)
		})
	}
}

func TestGetMissingKey(t *testing.T) {
	for name, tc := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			val, fresh, servable := tc.backend.Get("nope")
			require.Nil(t, val)
			require.False(t, fresh)
			require.False(t, servable)
		})
	}
}

func TestSetOverwrites(t *testing.T) {
	for name, tc := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			tc.backend.Set("k", []byte("old"), time.Second, 0)
			tc.backend.Set("k", []byte("new"), time.Minute, time.Minute)

			val, fresh, _ := tc.backend.Get("k")
			require.Equal(t, []byte("new"), val)
			require.True(t, fresh)
		})
	}
}

func TestZeroStaleExtraExpiresWithFresh(t *testing.T) {
	for name, tc := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			tc.backend.Set("k", []byte("v"), time.Second, 0)
			tc.clock.Advance(time.Second)

			val, _, servable := tc.backend.Get("k")
			require.Nil(t, val)
			require.False(t, servable)
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	for name, tc := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			b := tc.backend
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					for j := 0; j < 50; j++ {
						b.Set("shared", []byte(fmt.Sprintf("w%d-%d", n, j)), time.Minute, time.Minute)
						val, _, servable := b.Get("shared")
						if servable {
							require.NotEmpty(t, val)
						}
					}
				}(i)
			}
			wg.Wait()
		})
	}
}

func TestSQLitePurgeExpired(t *testing.T) {
	log := zap.NewNop().Sugar()
	clk := &clock{t: time.Now()}

	b, err := OpenSQLiteBackend(filepath.Join(t.TempDir(), "cache.db"), log)
	require.NoError(t, err)
	defer b.Close()
	b.now = clk.Now

	b.Set("a", []byte("1"), time.Second, 0)
	b.Set("b", []byte("2"), time.Hour, 0)

	clk.Advance(2 * time.Second)
	n, err := b.PurgeExpired()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, _, servable := b.Get("b")
	require.True(t, servable)
}

func TestArchiveNewestFirstAndCapped(t *testing.T) {
	c := New(NewMemoryBackend(), zap.NewNop().Sugar())

	for i := 0; i < archiveMax+20; i++ {
		c.AppendArchive("runs", map[string]int{"seq": i})
	}

	items := c.Archive("runs", 0)
	require.Len(t, items, archiveMax)

	var first struct {
		Seq int `json:"seq"`
	}
	require.NoError(t, json.Unmarshal(items[0], &first))
	require.Equal(t, archiveMax+19, first.Seq, "newest entry first")
}

func TestGetJSONCorruptEntryIsMiss(t *testing.T) {
	mem := NewMemoryBackend()
	c := New(mem, zap.NewNop().Sugar())

	mem.Set("k", []byte("{not json"), time.Minute, time.Minute)

	var dest map[string]any
	fresh, servable := c.GetJSON("k", &dest)
	require.False(t, fresh)
	require.False(t, servable)
}
