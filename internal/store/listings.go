package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"listado-engine/internal/domain"
)

type ListOpts struct {
	Category string
	Location string
	Limit    int
	Offset   int
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS listings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  org TEXT NOT NULL DEFAULT '',
  link TEXT NOT NULL,
  locations TEXT NOT NULL DEFAULT '[]',
  categories TEXT NOT NULL DEFAULT '[]',
  availability TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  details TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  images TEXT NOT NULL DEFAULT '[]',
  posted_at TEXT NOT NULL,
  rank_score REAL NOT NULL DEFAULT 0.5,
  stored_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_listings_link
ON listings(link)
WHERE link != '';
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_listings_stored_at
ON listings(stored_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS alert_subscriptions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  profile TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertListingIgnore saves one listing, skipping duplicates by link.
// Returns whether a new row was actually written.
func InsertListingIgnore(db *sql.DB, l domain.Listing) (added bool, err error) {
	locations, _ := json.Marshal(l.Locations)
	categories, _ := json.Marshal(l.Categories)
	images, _ := json.Marshal(l.Images)

	postedAt := l.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now()
	}

	_, err = db.Exec(`
INSERT OR IGNORE INTO listings
  (title, org, link, locations, categories, availability, salary, details, source, images, posted_at, rank_score, stored_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		l.Title, l.Org, l.Link, string(locations), string(categories),
		l.Availability, l.Salary, l.Details, l.Source, string(images),
		postedAt.Format(time.RFC3339), l.RankScore, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert listing: %w", err)
	}

	// INSERT OR IGNORE doesn't report rows affected reliably; changes() does.
	var changes int
	if e := db.QueryRow(`SELECT changes();`).Scan(&changes); e == nil {
		return changes > 0, nil
	}
	return true, nil
}

// StoreListings batch-saves listings and reports how many were new.
func StoreListings(db *sql.DB, listings []domain.Listing) (stored int, err error) {
	for _, l := range listings {
		if l.Link == "" {
			continue
		}
		added, err := InsertListingIgnore(db, l)
		if err != nil {
			return stored, err
		}
		if added {
			stored++
		}
	}
	return stored, nil
}

// ListListings pages through stored listings, newest first, optionally
// narrowed by category or location substring.
func ListListings(ctx context.Context, db *sql.DB, opts ListOpts) (items []domain.Listing, total int, err error) {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	var where []string
	var args []any
	if c := strings.TrimSpace(opts.Category); c != "" {
		where = append(where, `categories LIKE ?`)
		args = append(args, `%"`+c+`"%`)
	}
	if l := strings.TrimSpace(opts.Location); l != "" {
		where = append(where, `LOWER(locations) LIKE ?`)
		args = append(args, "%"+strings.ToLower(l)+"%")
	}

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	if err := db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM listings %s;`, clause), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	query := fmt.Sprintf(`
SELECT title, org, link, locations, categories, availability, salary, details, source, images, posted_at, rank_score
FROM listings
%s
ORDER BY stored_at DESC, id DESC
LIMIT ? OFFSET ?;`, clause)

	rows, err := db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.Listing
		var locations, categories, images, postedAt string
		if err := rows.Scan(
			&l.Title, &l.Org, &l.Link, &locations, &categories,
			&l.Availability, &l.Salary, &l.Details, &l.Source, &images,
			&postedAt, &l.RankScore,
		); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(locations), &l.Locations)
		_ = json.Unmarshal([]byte(categories), &l.Categories)
		_ = json.Unmarshal([]byte(images), &l.Images)
		if t, err := time.Parse(time.RFC3339, postedAt); err == nil {
			l.PostedAt = t
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

// CleanupOld drops listings stored more than three months ago.
func CleanupOld(db *sql.DB) (removed int64, err error) {
	cutoff := time.Now().AddDate(0, -3, 0).Format(time.RFC3339)
	res, err := db.Exec(`DELETE FROM listings WHERE stored_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup listings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
