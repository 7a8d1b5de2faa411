package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/trainergpt/internal/models"
)

// hardSetMaxRIR is the highest RIR at which a set still counts toward weekly volume.
const hardSetMaxRIR = 4

// lockActiveSession selects and row-locks the user's newest in-progress
// session. Concurrent LogSet transactions queue on this lock.
const lockActiveSession = `
	SELECT id::text FROM workout_sessions
	WHERE user_id = $1 AND duration_minutes IS NULL
	ORDER BY session_date DESC LIMIT 1
	FOR UPDATE`

// insertNextSet numbers the new set MAX+1 within (session, exercise). It is
// only race-free under lockActiveSession; the UNIQUE (session_id,
// exercise_id, set_number) constraint rejects any duplicate that slips by.
const insertNextSet = `
	INSERT INTO workout_sets (session_id, user_id, exercise_id, exercise_name, set_number, weight_kg, reps, rir)
	SELECT $1::uuid, $2::int, $3::text, $4::text, COALESCE(MAX(set_number), 0) + 1,
	       $5::double precision, $6::int, $7::double precision
	FROM workout_sets WHERE session_id = $1::uuid AND exercise_id = $3
	RETURNING set_number`

// LogSet appends a set to the user's active session. The session row is
// locked for the duration of the transaction so concurrent logs for the same
// session get consecutive set numbers per exercise.
func (db *DB) LogSet(ctx context.Context, userID int, exerciseName string, weight float64, reps int, rir *float64) (*models.LoggedSet, error) {
	var logged *models.LoggedSet
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var sessionID string
		err := tx.QueryRow(ctx, lockActiveSession, userID).Scan(&sessionID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoActiveSession
		}
		if err != nil {
			return fmt.Errorf("locking active session: %w", err)
		}

		ex, err := findExercise(ctx, tx, exerciseName)
		if err != nil {
			return err
		}

		var setNumber int
		err = tx.QueryRow(ctx, insertNextSet, sessionID, userID, ex.ID, ex.Name, weight, reps, rir).Scan(&setNumber)
		if err != nil {
			return fmt.Errorf("inserting set: %w", err)
		}

		logged = &models.LoggedSet{
			SessionID: sessionID,
			Exercise:  ex.Name,
			SetNumber: setNumber,
			Weight:    weight,
			Reps:      reps,
			RIR:       rir,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logged, nil
}

// WeeklyVolume counts hard sets per primary muscle group for the week
// starting at weekStart.
func (db *DB) WeeklyVolume(ctx context.Context, userID int, weekStart time.Time) (*models.VolumeSnapshot, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT m.muscle, COUNT(*)::int
		FROM workout_sets ws
		JOIN workout_sessions s ON s.id = ws.session_id
		JOIN exercises e ON e.id = ws.exercise_id
		CROSS JOIN LATERAL unnest(e.primary_muscles) AS m(muscle)
		WHERE s.user_id = $1
		  AND s.session_date >= $2::timestamptz AND s.session_date < $2::timestamptz + INTERVAL '7 days'
		  AND (ws.rir IS NULL OR ws.rir <= $3)
		GROUP BY m.muscle`, userID, weekStart, hardSetMaxRIR)
	if err != nil {
		return nil, fmt.Errorf("querying weekly volume: %w", err)
	}
	defer rows.Close()

	snap := &models.VolumeSnapshot{VolumeByGroup: map[string]int{}, WeekStart: weekStart}
	for rows.Next() {
		var group string
		var sets int
		if err := rows.Scan(&group, &sets); err != nil {
			return nil, fmt.Errorf("scanning weekly volume: %w", err)
		}
		snap.VolumeByGroup[group] = sets
		snap.TotalSets += sets
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(mav), 0)::int FROM volume_landmarks WHERE user_id = $1`, userID).Scan(&snap.TargetSets)
	if err != nil {
		return nil, fmt.Errorf("querying target sets: %w", err)
	}
	return snap, nil
}
