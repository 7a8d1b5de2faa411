package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meltforce/trainergpt/internal/models"
)

// GetProfile returns the user's profile or ErrNoProfile.
func (db *DB) GetProfile(ctx context.Context, userID int) (*models.UserProfile, error) {
	var p models.UserProfile
	err := db.Pool.QueryRow(ctx,
		`SELECT name, experience_level, training_age_months, available_training_days, preferred_split
		 FROM user_profiles WHERE user_id = $1`, userID).
		Scan(&p.Name, &p.ExperienceLevel, &p.TrainingAgeMonths, &p.AvailableTrainingDays, &p.PreferredSplit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile creates or replaces the user's profile.
func (db *DB) UpsertProfile(ctx context.Context, userID int, p models.UserProfile) error {
	if !p.ExperienceLevel.Valid() {
		return fmt.Errorf("unknown experience level %q", p.ExperienceLevel)
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, name, experience_level, training_age_months, available_training_days, preferred_split)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			experience_level = EXCLUDED.experience_level,
			training_age_months = EXCLUDED.training_age_months,
			available_training_days = EXCLUDED.available_training_days,
			preferred_split = EXCLUDED.preferred_split,
			updated_at = NOW()`,
		userID, p.Name, p.ExperienceLevel, p.TrainingAgeMonths, p.AvailableTrainingDays, p.PreferredSplit)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// GetLandmarks returns the user's volume landmarks keyed by muscle group.
func (db *DB) GetLandmarks(ctx context.Context, userID int) (map[string]models.Landmark, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT muscle_group, mev, mav, mrv FROM volume_landmarks WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying landmarks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Landmark)
	for rows.Next() {
		var group string
		var lm models.Landmark
		if err := rows.Scan(&group, &lm.MEV, &lm.MAV, &lm.MRV); err != nil {
			return nil, fmt.Errorf("scanning landmark: %w", err)
		}
		out[group] = lm
	}
	return out, rows.Err()
}

// SetLandmark stores one muscle group's landmarks.
func (db *DB) SetLandmark(ctx context.Context, userID int, group string, lm models.Landmark) error {
	if !lm.Valid() {
		return fmt.Errorf("%s %+v: %w", group, lm, ErrInvalidLandmark)
	}
	canonical, _ := models.NormalizeMuscleGroup(group)
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO volume_landmarks (user_id, muscle_group, mev, mav, mrv)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, muscle_group) DO UPDATE SET mev = EXCLUDED.mev, mav = EXCLUDED.mav, mrv = EXCLUDED.mrv`,
		userID, canonical, lm.MEV, lm.MAV, lm.MRV)
	if err != nil {
		return fmt.Errorf("upserting landmark: %w", err)
	}
	return nil
}

// GetActiveMesocycle returns the user's active mesocycle, or nil if none.
func (db *DB) GetActiveMesocycle(ctx context.Context, userID int) (*models.Mesocycle, error) {
	var m models.Mesocycle
	err := db.Pool.QueryRow(ctx,
		`SELECT id::text, name, current_week, total_weeks, split_type, status
		 FROM mesocycles WHERE user_id = $1 AND status = 'active'`, userID).
		Scan(&m.ID, &m.Name, &m.CurrentWeek, &m.TotalWeeks, &m.SplitType, &m.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying mesocycle: %w", err)
	}
	return &m, nil
}

// StartMesocycle completes any active mesocycle and starts a new one at week 1.
func (db *DB) StartMesocycle(ctx context.Context, userID int, name, splitType string, totalWeeks int) (*models.Mesocycle, error) {
	m := &models.Mesocycle{
		ID:          uuid.NewString(),
		Name:        name,
		CurrentWeek: 1,
		TotalWeeks:  totalWeeks,
		SplitType:   splitType,
		Status:      "active",
	}
	if !m.Valid() {
		return nil, fmt.Errorf("mesocycle needs at least one week, got %d", totalWeeks)
	}
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE mesocycles SET status = 'completed' WHERE user_id = $1 AND status = 'active'`, userID); err != nil {
			return fmt.Errorf("completing mesocycle: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO mesocycles (id, user_id, name, current_week, total_weeks, split_type, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, userID, m.Name, m.CurrentWeek, m.TotalWeeks, m.SplitType, m.Status); err != nil {
			return fmt.Errorf("inserting mesocycle: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// AdvanceMesocycleWeek moves the active mesocycle forward one week, capped at
// the final week.
func (db *DB) AdvanceMesocycleWeek(ctx context.Context, userID int) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE mesocycles SET current_week = LEAST(current_week + 1, total_weeks)
		WHERE user_id = $1 AND status = 'active'`, userID)
	if err != nil {
		return fmt.Errorf("advancing mesocycle: %w", err)
	}
	return nil
}
