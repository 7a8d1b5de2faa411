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

// ImportedSession is a completed session read from a training log export.
type ImportedSession struct {
	Name            string
	Date            time.Time
	DurationMinutes int
	Sets            []ImportedSet
}

// ImportedSet is one working set. Equipment, when known, is tried as a name
// prefix before the bare exercise name.
type ImportedSet struct {
	Exercise  string
	Equipment string
	Weight    float64
	Reps      int
	RIR       *float64
}

// ImportStats reports what an import stored.
type ImportStats struct {
	SessionID    string
	SetsInserted int
	Unknown      []string
}

// ImportSession stores s as a completed session. A session with the same
// name and date is replaced, so re-importing an export is idempotent. Sets
// whose exercise is not in the library are skipped and reported.
func (db *DB) ImportSession(ctx context.Context, userID int, s ImportedSession) (ImportStats, error) {
	stats := ImportStats{SessionID: uuid.NewString()}
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM workout_sessions
			WHERE user_id = $1 AND session_date = $2 AND session_name = $3`,
			userID, s.Date, s.Name); err != nil {
			return fmt.Errorf("replacing session: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO workout_sessions (id, user_id, session_date, session_name, duration_minutes)
			VALUES ($1, $2, $3, $4, $5)`,
			stats.SessionID, userID, s.Date, s.Name, max(1, s.DurationMinutes)); err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}

		resolved := map[string]*models.Exercise{}
		unknown := map[string]bool{}
		setNumbers := map[string]int{}
		for _, set := range s.Sets {
			key := set.Equipment + "|" + set.Exercise
			ex, seen := resolved[key]
			if !seen {
				var err error
				ex, err = resolveImported(ctx, tx, set.Exercise, set.Equipment)
				if err != nil {
					return err
				}
				resolved[key] = ex
			}
			if ex == nil {
				if !unknown[set.Exercise] {
					unknown[set.Exercise] = true
					stats.Unknown = append(stats.Unknown, set.Exercise)
				}
				continue
			}

			setNumbers[ex.ID]++
			if _, err := tx.Exec(ctx, `
				INSERT INTO workout_sets (session_id, user_id, exercise_id, exercise_name, set_number, weight_kg, reps, rir, logged_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				stats.SessionID, userID, ex.ID, ex.Name, setNumbers[ex.ID], set.Weight, set.Reps, set.RIR, s.Date); err != nil {
				return fmt.Errorf("inserting set %s #%d: %w", ex.Name, setNumbers[ex.ID], err)
			}
			stats.SetsInserted++
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}

// resolveImported returns nil when no library exercise matches.
func resolveImported(ctx context.Context, q querier, name, equipment string) (*models.Exercise, error) {
	for _, candidate := range importCandidates(name, equipment) {
		ex, err := findExercise(ctx, q, candidate)
		if errors.Is(err, ErrExerciseNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ex, nil
	}
	return nil, nil
}

// importCandidates lists the names to try, most specific first. Export names
// are often plural ("Hack Squats") while the library uses the singular.
func importCandidates(name, equipment string) []string {
	name = strings.TrimSpace(name)
	var out []string
	add := func(s string) {
		for _, o := range out {
			if strings.EqualFold(o, s) {
				return
			}
		}
		out = append(out, s)
	}
	bases := []string{name}
	if singular, ok := strings.CutSuffix(name, "s"); ok && len(singular) > 2 && !strings.HasSuffix(name, "ss") {
		bases = append(bases, singular)
	}
	eq := strings.TrimSpace(equipment)
	for _, b := range bases {
		if eq != "" && !strings.EqualFold(eq, "bodyweight") {
			add(eq + " " + b)
		}
	}
	for _, b := range bases {
		add(b)
	}
	return out
}
