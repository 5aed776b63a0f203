package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"listado-engine/internal/domain"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func listing(link, title string, categories ...string) domain.Listing {
	return domain.Listing{
		Title:      title,
		Org:        "Org",
		Link:       link,
		Locations:  []string{"Monterrey"},
		Categories: categories,
		PostedAt:   time.Now(),
		RankScore:  0.7,
	}
}

func TestInsertListingIgnoreDedupsByLink(t *testing.T) {
	db := testDB(t)

	added, err := InsertListingIgnore(db.Pool, listing("https://x/1", "Primero", "salud"))
	require.NoError(t, err)
	require.True(t, added)

	added, err = InsertListingIgnore(db.Pool, listing("https://x/1", "Duplicado", "salud"))
	require.NoError(t, err)
	require.False(t, added)

	items, total, err := ListListings(context.Background(), db.Pool, ListOpts{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Primero", items[0].Title)
}

func TestStoreListingsCountsOnlyNewRows(t *testing.T) {
	db := testDB(t)

	stored, err := StoreListings(db.Pool, []domain.Listing{
		listing("https://x/1", "A", "salud"),
		listing("https://x/2", "B", "educación"),
		listing("https://x/1", "A otra vez", "salud"),
		{Title: "sin link"}, // skipped, no identity
	})
	require.NoError(t, err)
	require.Equal(t, 2, stored)
}

func TestListListingsFilters(t *testing.T) {
	db := testDB(t)

	_, err := StoreListings(db.Pool, []domain.Listing{
		listing("https://x/1", "Brigada", "salud"),
		listing("https://x/2", "Mentoría", "educación"),
	})
	require.NoError(t, err)

	items, total, err := ListListings(context.Background(), db.Pool, ListOpts{Category: "salud"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "https://x/1", items[0].Link)

	items, total, err = ListListings(context.Background(), db.Pool, ListOpts{Location: "monterrey"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)

	_, total, err = ListListings(context.Background(), db.Pool, ListOpts{Location: "cancún"})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestListListingsRoundTripsFields(t *testing.T) {
	db := testDB(t)

	in := domain.Listing{
		Title:        "Brigada",
		Org:          "Cruz Roja",
		Link:         "https://x/1",
		Locations:    []string{"Monterrey", "CDMX"},
		Categories:   []string{"salud"},
		Availability: "fin de semana",
		Salary:       "No remunerado / N/A",
		Details:      "salud / emergencias",
		Source:       "https://cruzrojamexicana.org.mx",
		Images:       []string{"https://x/banner.jpg"},
		PostedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		RankScore:    0.7,
	}
	_, err := InsertListingIgnore(db.Pool, in)
	require.NoError(t, err)

	items, _, err := ListListings(context.Background(), db.Pool, ListOpts{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	got := items[0]
	require.Equal(t, in.Locations, got.Locations)
	require.Equal(t, in.Images, got.Images)
	require.True(t, in.PostedAt.Equal(got.PostedAt))
	require.InDelta(t, in.RankScore, got.RankScore, 1e-9)
}

func TestAlertsSubscribeAndList(t *testing.T) {
	db := testDB(t)

	require.ErrorIs(t, SubscribeAlert(db.Pool, nil), ErrEmptyProfile)

	require.NoError(t, SubscribeAlert(db.Pool, map[string]any{"field": "salud"}))
	require.NoError(t, SubscribeAlert(db.Pool, map[string]any{"field": "ti"}))

	alerts, err := ListAlerts(context.Background(), db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	// newest first
	require.Contains(t, string(alerts[0].Profile), "ti")
}

func TestCleanupOldKeepsRecentRows(t *testing.T) {
	db := testDB(t)

	_, err := InsertListingIgnore(db.Pool, listing("https://x/1", "Reciente", "salud"))
	require.NoError(t, err)

	// backdate one row past the retention window
	old := time.Now().AddDate(0, -4, 0).Format(time.RFC3339)
	_, err = db.Pool.Exec(`
INSERT INTO listings (title, link, posted_at, stored_at) VALUES ('Viejo', 'https://x/old', ?, ?);`, old, old)
	require.NoError(t, err)

	removed, err := CleanupOld(db.Pool)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, total, err := ListListings(context.Background(), db.Pool, ListOpts{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}
