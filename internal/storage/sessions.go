package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meltforce/trainergpt/internal/models"
)

// RecentSessions returns the user's most recent sessions that have at least
// one logged set, most recent first, with their sets in logging order.
func (db *DB) RecentSessions(ctx context.Context, userID, limit int) ([]models.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT s.id::text, s.session_date, s.session_name,
		       s.readiness_energy, s.readiness_motivation, s.readiness_soreness, s.duration_minutes
		FROM workout_sessions s
		WHERE s.user_id = $1
		  AND EXISTS (SELECT 1 FROM workout_sets ws WHERE ws.session_id = s.id)
		ORDER BY s.session_date DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.WorkoutSession
	index := map[string]int{}
	for rows.Next() {
		var s models.WorkoutSession
		var energy, motivation, soreness *int
		if err := rows.Scan(&s.ID, &s.Date, &s.SessionName, &energy, &motivation, &soreness, &s.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.PreReadiness = readiness(energy, motivation, soreness)
		index[s.ID] = len(sessions)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	setRows, err := db.Pool.Query(ctx, `
		SELECT session_id::text, exercise_name, set_number, weight_kg, reps, rir
		FROM workout_sets
		WHERE session_id = ANY($1::uuid[])
		ORDER BY logged_at, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var sessionID string
		var set models.Set
		if err := setRows.Scan(&sessionID, &set.Exercise, &set.SetNumber, &set.Weight, &set.Reps, &set.RIR); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		i := index[sessionID]
		sessions[i].Sets = append(sessions[i].Sets, set)
	}
	return sessions, setRows.Err()
}

// readiness returns nil unless all three values were recorded.
func readiness(energy, motivation, soreness *int) *models.Readiness {
	if energy == nil || motivation == nil || soreness == nil {
		return nil
	}
	return &models.Readiness{Energy: *energy, Motivation: *motivation, Soreness: *soreness}
}

// ActiveSession returns the user's most recent in-progress session, or nil.
func (db *DB) ActiveSession(ctx context.Context, userID int) (*models.ActiveSession, error) {
	var s models.ActiveSession
	err := db.Pool.QueryRow(ctx, `
		SELECT id::text, session_date, session_name FROM workout_sessions
		WHERE user_id = $1 AND duration_minutes IS NULL
		ORDER BY session_date DESC LIMIT 1`, userID).
		Scan(&s.ID, &s.Date, &s.SessionName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	return &s, nil
}

// CreateSession stores a prescribed session and its planned exercises. The
// session starts in progress and becomes the user's only active session:
// see closeOpenSessions.
func (db *DB) CreateSession(ctx context.Context, userID int, name string, readiness *models.Readiness, plan []models.PrescribedExercise) (*models.ActiveSession, error) {
	s := &models.ActiveSession{
		ID:          uuid.NewString(),
		Date:        time.Now().UTC(),
		SessionName: name,
	}
	var energy, motivation, soreness *int
	if readiness != nil {
		energy, motivation, soreness = &readiness.Energy, &readiness.Motivation, &readiness.Soreness
	}

	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if err := closeOpenSessions(ctx, tx, userID, s.Date); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO workout_sessions (id, user_id, session_date, session_name,
				readiness_energy, readiness_motivation, readiness_soreness)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, userID, s.Date, s.SessionName, energy, motivation, soreness); err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}
		if len(plan) == 0 {
			return nil
		}
		query, args := sessionExercisesInsert(s.ID, plan)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting session exercises: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// closeOpenSessions ends the user's in-progress sessions before a new one
// starts. A session with no logged sets was only prescribed and is dropped;
// one with sets is completed with its elapsed minutes, clamped to 1..600.
func closeOpenSessions(ctx context.Context, q querier, userID int, now time.Time) error {
	if _, err := q.Exec(ctx, `
		DELETE FROM workout_sessions s
		WHERE s.user_id = $1 AND s.duration_minutes IS NULL
		  AND NOT EXISTS (SELECT 1 FROM workout_sets ws WHERE ws.session_id = s.id)`, userID); err != nil {
		return fmt.Errorf("dropping unstarted sessions: %w", err)
	}
	if _, err := q.Exec(ctx, `
		UPDATE workout_sessions
		SET duration_minutes = LEAST(600, GREATEST(1, CEIL(EXTRACT(EPOCH FROM ($2::timestamptz - session_date)) / 60)))::int
		WHERE user_id = $1 AND duration_minutes IS NULL`, userID, now); err != nil {
		return fmt.Errorf("completing open sessions: %w", err)
	}
	return nil
}

// sessionExercisesInsert builds one multi-row INSERT for a session's plan.
func sessionExercisesInsert(sessionID string, plan []models.PrescribedExercise) (string, []any) {
	const cols = 9
	query := `INSERT INTO session_exercises (session_id, position, exercise_id, exercise_name,
		target_sets, rep_range_min, rep_range_max, rir_target, rest_seconds) VALUES `
	args := make([]any, 0, len(plan)*cols)
	values := make([]string, 0, len(plan))

	for i, p := range plan {
		base := i * cols
		values = append(values, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		args = append(args, sessionID, i+1, p.ExerciseID, p.ExerciseName,
			p.TargetSets, p.RepRangeMin, p.RepRangeMax, p.RIRTarget, p.RestSeconds)
	}
	return query + strings.Join(values, ","), args
}

// CompleteSession records the duration of an in-progress session, ending it.
func (db *DB) CompleteSession(ctx context.Context, userID int, sessionID string, minutes int) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE workout_sessions SET duration_minutes = $3
		WHERE id = $1::uuid AND user_id = $2 AND duration_minutes IS NULL`,
		sessionID, userID, minutes)
	if err != nil {
		return fmt.Errorf("completing session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoActiveSession
	}
	return nil
}
