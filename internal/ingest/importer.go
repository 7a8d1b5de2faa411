package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/meltforce/trainergpt/internal/cache"
	"github.com/meltforce/trainergpt/internal/storage"
)

// Store persists imported sessions. *storage.DB satisfies it.
type Store interface {
	ImportSession(ctx context.Context, userID int, s storage.ImportedSession) (storage.ImportStats, error)
}

var _ Store = (*storage.DB)(nil)

// Result summarises one import.
type Result struct {
	SessionsReceived int      `json:"sessions_received"`
	SessionsImported int      `json:"sessions_imported"`
	SetsReceived     int      `json:"sets_received"`
	SetsInserted     int      `json:"sets_inserted"`
	WarmupsSkipped   int      `json:"warmups_skipped"`
	UnloadedSkipped  int      `json:"unloaded_skipped"`
	UnknownExercises []string `json:"unknown_exercises,omitempty"`
}

// Importer parses exports and stores their working sets.
type Importer struct {
	store Store
	cache *cache.Cache
	loc   *time.Location
	log   *slog.Logger
}

// NewImporter creates an importer. Export times are read in loc (nil for
// UTC); c may be nil.
func NewImporter(store Store, c *cache.Cache, loc *time.Location, log *slog.Logger) *Importer {
	return &Importer{store: store, cache: c, loc: loc, log: log}
}

// Import parses r and stores every session for userID. Warmups are not hard
// sets and are dropped, as are sets without external load, since stored sets
// need a positive weight.
func (im *Importer) Import(ctx context.Context, userID int, r io.Reader) (*Result, error) {
	sessions, err := Parse(r, im.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing export: %w", err)
	}

	res := &Result{SessionsReceived: len(sessions)}
	unknown := map[string]bool{}
	defer func() {
		if res.SessionsImported > 0 {
			im.cache.Invalidate(ctx, userID, cache.KindVolume, cache.KindWeeklySummary, cache.KindDeload)
		}
	}()

	for _, s := range sessions {
		in := storage.ImportedSession{
			Name:            s.Name,
			Date:            s.Date,
			DurationMinutes: int(s.Duration / time.Minute),
		}
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				res.SetsReceived++
				switch {
				case set.Warmup:
					res.WarmupsSkipped++
				case set.Weight <= 0 || set.Reps <= 0:
					res.UnloadedSkipped++
				default:
					in.Sets = append(in.Sets, storage.ImportedSet{
						Exercise:  ex.Name,
						Equipment: ex.Equipment,
						Weight:    set.Weight,
						Reps:      set.Reps,
						RIR:       set.RIR,
					})
				}
			}
		}
		if len(in.Sets) == 0 {
			continue
		}

		stats, err := im.store.ImportSession(ctx, userID, in)
		if err != nil {
			return res, fmt.Errorf("importing session %q on %s: %w", s.Name, s.Date.Format("2006-01-02"), err)
		}
		res.SessionsImported++
		res.SetsInserted += stats.SetsInserted
		for _, name := range stats.Unknown {
			unknown[name] = true
		}
	}

	for name := range unknown {
		res.UnknownExercises = append(res.UnknownExercises, name)
	}
	sort.Strings(res.UnknownExercises)

	im.log.Info("training log imported",
		"user_id", userID,
		"sessions", res.SessionsImported,
		"sets", res.SetsInserted,
		"unknown_exercises", len(res.UnknownExercises),
	)
	return res, nil
}
