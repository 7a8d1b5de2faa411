package storage

import (
	"context"
	"fmt"
)

// GetOrCreateUser finds or creates a user by login name.
// Returns the user ID. Updates last_seen and display_name on each call.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (login, display_name)
		VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF($2, ''), users.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", login, err)
	}
	return id, nil
}

// ListActiveUserIDs returns users that trained or had an active mesocycle
// within the given number of days.
func (db *DB) ListActiveUserIDs(ctx context.Context, withinDays int) ([]int, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT u.id FROM users u
		WHERE EXISTS (SELECT 1 FROM mesocycles m WHERE m.user_id = u.id AND m.status = 'active')
		   OR EXISTS (SELECT 1 FROM workout_sessions s
		              WHERE s.user_id = u.id AND s.session_date >= NOW() - make_interval(days => $1))
		ORDER BY u.id`, withinDays)
	if err != nil {
		return nil, fmt.Errorf("querying active users: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
