package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyProfile rejects alert subscriptions with no criteria at all.
var ErrEmptyProfile = errors.New("perfil vacío")

const maxAlerts = 500

type Alert struct {
	ID        int64           `json:"id"`
	Profile   json.RawMessage `json:"profile"`
	CreatedAt time.Time       `json:"createdAt"`
}

// SubscribeAlert stores one alert profile. The table is bounded: once it
// passes 500 rows the oldest subscriptions are dropped.
func SubscribeAlert(db *sql.DB, profile map[string]any) error {
	if len(profile) == 0 {
		return ErrEmptyProfile
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal alert profile: %w", err)
	}

	if _, err := db.Exec(`
INSERT INTO alert_subscriptions (profile, created_at) VALUES (?, ?);`,
		string(raw), time.Now().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	_, err = db.Exec(`
DELETE FROM alert_subscriptions
WHERE id NOT IN (SELECT id FROM alert_subscriptions ORDER BY id DESC LIMIT ?);`, maxAlerts)
	if err != nil {
		return fmt.Errorf("trim alerts: %w", err)
	}
	return nil
}

// ListAlerts returns the newest subscriptions first.
func ListAlerts(ctx context.Context, db *sql.DB, limit int) ([]Alert, error) {
	if limit <= 0 || limit > maxAlerts {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
SELECT id, profile, created_at
FROM alert_subscriptions
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		var profile, createdAt string
		if err := rows.Scan(&a.ID, &profile, &createdAt); err != nil {
			return nil, err
		}
		a.Profile = json.RawMessage(profile)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			a.CreatedAt = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
