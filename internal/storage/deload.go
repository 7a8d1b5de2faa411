package storage

import (
	"context"

	"github.com/meltforce/trainergpt/internal/training"
)

// DeloadInput loads what a deload check needs for one user.
func (db *DB) DeloadInput(ctx context.Context, userID int) (training.DeloadInput, error) {
	meso, err := db.GetActiveMesocycle(ctx, userID)
	if err != nil {
		return training.DeloadInput{}, err
	}
	sessions, err := db.RecentSessions(ctx, userID, 3)
	if err != nil {
		return training.DeloadInput{}, err
	}
	return training.DeloadInput{Mesocycle: meso, Sessions: sessions}, nil
}
