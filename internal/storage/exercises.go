package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/trainergpt/internal/models"
)

const exerciseColumns = `id, name, primary_muscles, secondary_muscles, equipment, movement_pattern`

// exerciseQuery builds the library search. Filters are AND-ed: primary muscle
// group and equipment match exactly ignoring case, the search term is a
// substring of the name.
func exerciseQuery(f models.ExerciseFilter) (string, []any) {
	var conds []string
	var args []any

	if g := strings.TrimSpace(f.MuscleGroup); g != "" {
		args = append(args, g)
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(primary_muscles) AS p WHERE lower(p) = lower($%d))", len(args)))
	}
	if s := strings.TrimSpace(f.SearchTerm); s != "" {
		args = append(args, s)
		conds = append(conds, fmt.Sprintf("name ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if e := strings.TrimSpace(f.Equipment); e != "" {
		args = append(args, e)
		conds = append(conds, fmt.Sprintf("lower(equipment) = lower($%d)", len(args)))
	}

	query := "SELECT " + exerciseColumns + " FROM exercises"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY name", args
}

// ListExercises searches the shared exercise library.
func (db *DB) ListExercises(ctx context.Context, f models.ExerciseFilter) ([]models.Exercise, error) {
	query, args := exerciseQuery(f)
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	out := []models.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindExercise returns the library exercise whose name contains name,
// preferring the shortest match.
func (db *DB) FindExercise(ctx context.Context, name string) (*models.Exercise, error) {
	return findExercise(ctx, db.Pool, name)
}

func findExercise(ctx context.Context, q querier, name string) (*models.Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrExerciseNotFound
	}
	row := q.QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises
		 WHERE name ILIKE '%' || $1 || '%' OR id = lower(replace($1, ' ', '_'))
		 ORDER BY length(name), name LIMIT 1`, name)
	e, err := scanExercise(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", name, ErrExerciseNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanExercise(row pgx.Row) (models.Exercise, error) {
	var e models.Exercise
	err := row.Scan(&e.ID, &e.Name, &e.MuscleGroups.Primary, &e.MuscleGroups.Secondary, &e.Equipment, &e.MovementPattern)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scanning exercise: %w", err)
	}
	return e, nil
}
