package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/trainergpt/internal/cache"
	"github.com/meltforce/trainergpt/internal/metrics"
	"github.com/meltforce/trainergpt/internal/models"
	"github.com/meltforce/trainergpt/internal/storage"
	"github.com/meltforce/trainergpt/internal/training"
)

// historyWindow is how many recent sessions are loaded for history and trends.
const historyWindow = MaxSessions

// DataSource is the storage the StoreBackend reads and writes.
type DataSource interface {
	GetProfile(ctx context.Context, userID int) (*models.UserProfile, error)
	GetLandmarks(ctx context.Context, userID int) (map[string]models.Landmark, error)
	GetActiveMesocycle(ctx context.Context, userID int) (*models.Mesocycle, error)
	RecentSessions(ctx context.Context, userID, limit int) ([]models.WorkoutSession, error)
	WeeklyVolume(ctx context.Context, userID int, weekStart time.Time) (*models.VolumeSnapshot, error)
	ListExercises(ctx context.Context, f models.ExerciseFilter) ([]models.Exercise, error)
	CreateSession(ctx context.Context, userID int, name string, readiness *models.Readiness, plan []models.PrescribedExercise) (*models.ActiveSession, error)
	LogSet(ctx context.Context, userID int, exerciseName string, weight float64, reps int, rir *float64) (*models.LoggedSet, error)
	DeloadInput(ctx context.Context, userID int) (training.DeloadInput, error)
}

var _ DataSource = (*storage.DB)(nil)

// StoreBackend runs tools against the database for a single user, reading
// through the cache where one is configured.
type StoreBackend struct {
	ds           DataSource
	cache        *cache.Cache
	userID       int
	log          *slog.Logger
	deloadAdvice bool
	now          func() time.Time
}

// StoreOption configures a StoreBackend.
type StoreOption func(*StoreBackend)

// WithDeloadAdvice toggles the deload recommendation in getUserProfile.
func WithDeloadAdvice(enabled bool) StoreOption {
	return func(b *StoreBackend) { b.deloadAdvice = enabled }
}

// WithClock overrides the clock used to pick the current week.
func WithClock(now func() time.Time) StoreOption {
	return func(b *StoreBackend) { b.now = now }
}

// NewStoreBackend binds ds and c to userID. c may be nil.
func NewStoreBackend(ds DataSource, c *cache.Cache, userID int, log *slog.Logger, opts ...StoreOption) *StoreBackend {
	b := &StoreBackend{
		ds:           ds,
		cache:        c,
		userID:       userID,
		log:          log,
		deloadAdvice: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// profileBundle is what the profile cache kind holds.
type profileBundle struct {
	Profile   *models.UserProfile        `json:"profile"`
	Landmarks map[string]models.Landmark `json:"landmarks"`
	Mesocycle *models.Mesocycle          `json:"mesocycle"`
}

func (b *StoreBackend) profile(ctx context.Context) (profileBundle, error) {
	return cache.GetOrLoad(ctx, b.cache, b.userID, cache.KindProfile, func(ctx context.Context) (profileBundle, error) {
		var pb profileBundle
		p, err := b.ds.GetProfile(ctx, b.userID)
		switch {
		case errors.Is(err, storage.ErrNoProfile):
		case err != nil:
			return pb, err
		default:
			pb.Profile = p
		}
		if pb.Landmarks, err = b.ds.GetLandmarks(ctx, b.userID); err != nil {
			return pb, err
		}
		if pb.Mesocycle, err = b.ds.GetActiveMesocycle(ctx, b.userID); err != nil {
			return pb, err
		}
		return pb, nil
	})
}

func (b *StoreBackend) recentSessions(ctx context.Context) ([]models.WorkoutSession, error) {
	return cache.GetOrLoad(ctx, b.cache, b.userID, cache.KindWeeklySummary, func(ctx context.Context) ([]models.WorkoutSession, error) {
		return b.ds.RecentSessions(ctx, b.userID, historyWindow)
	})
}

// library is the whole exercise library, shared by every user.
func (b *StoreBackend) library(ctx context.Context) ([]models.Exercise, error) {
	return cache.GetOrLoad(ctx, b.cache, 0, cache.KindExerciseList, func(ctx context.Context) ([]models.Exercise, error) {
		return b.ds.ListExercises(ctx, models.ExerciseFilter{})
	})
}

func (b *StoreBackend) deload(ctx context.Context) (models.DeloadRecommendation, error) {
	return cache.GetOrLoad(ctx, b.cache, b.userID, cache.KindDeload, func(ctx context.Context) (models.DeloadRecommendation, error) {
		in, err := b.ds.DeloadInput(ctx, b.userID)
		if err != nil {
			return models.DeloadRecommendation{}, err
		}
		rec := training.EvaluateDeload(in)
		metrics.DeloadEvaluations.WithLabelValues(fmt.Sprint(rec.ShouldDeload)).Inc()
		return rec, nil
	})
}

func (b *StoreBackend) WorkoutHistory(ctx context.Context, args HistoryArgs) (*HistoryResult, error) {
	sessions, err := b.recentSessions(ctx)
	if err != nil {
		return nil, err
	}
	var lookup training.GroupLookup
	if args.MuscleGroup != "" && args.ExerciseName == "" {
		lib, err := b.library(ctx)
		if err != nil {
			return nil, err
		}
		lookup = GroupLookupFrom(lib)
	}
	return HistoryFrom(sessions, args, lookup), nil
}

func (b *StoreBackend) VolumeThisWeek(ctx context.Context, args VolumeArgs) (*VolumeResult, error) {
	weekStart := training.WeekStart(b.now())
	load := func(ctx context.Context) (*models.VolumeSnapshot, error) {
		return b.ds.WeeklyVolume(ctx, b.userID, weekStart)
	}
	snap, err := cache.GetOrLoad(ctx, b.cache, b.userID, cache.KindVolume, load)
	if err != nil {
		return nil, err
	}
	// A snapshot cached last week is stale once the week rolls over.
	if snap == nil || !snap.WeekStart.Equal(weekStart) {
		if snap, err = load(ctx); err != nil {
			return nil, err
		}
		b.cache.Put(ctx, b.userID, cache.KindVolume, snap)
	}

	pb, err := b.profile(ctx)
	if err != nil {
		return nil, err
	}
	return VolumeFrom(snap.VolumeByGroup, pb.Landmarks, weekStart, args.MuscleGroup), nil
}

func (b *StoreBackend) ProgressionTrend(ctx context.Context, args ProgressionArgs) (*ProgressionResult, error) {
	sessions, err := b.recentSessions(ctx)
	if err != nil {
		return nil, err
	}
	return ProgressionFrom(sessions, args), nil
}

func (b *StoreBackend) UserProfile(ctx context.Context) (*ProfileResult, error) {
	pb, err := b.profile(ctx)
	if err != nil {
		return nil, err
	}
	if pb.Profile == nil {
		return EmptyProfile(), nil
	}

	res := &ProfileResult{
		Profile:         pb.Profile,
		VolumeLandmarks: pb.Landmarks,
		ActiveMesocycle: pb.Mesocycle,
	}
	if res.VolumeLandmarks == nil {
		res.VolumeLandmarks = map[string]models.Landmark{}
	}
	if b.deloadAdvice {
		rec, err := b.deload(ctx)
		if err != nil {
			return nil, err
		}
		res.DeloadRecommendation = &rec
	}
	return res, nil
}

func (b *StoreBackend) ExerciseLibrary(ctx context.Context, args LibraryArgs) (*LibraryResult, error) {
	lib, err := b.library(ctx)
	if err != nil {
		return nil, err
	}
	return LibraryFrom(FilterExercises(lib, args.Filter())), nil
}

func (b *StoreBackend) PrescribeWorkout(ctx context.Context, args PrescribeArgs) (*PrescribeResult, error) {
	s, err := b.ds.CreateSession(ctx, b.userID, args.SessionName, nil, args.Exercises)
	if err != nil {
		return nil, err
	}
	b.cache.Invalidate(ctx, b.userID, cache.KindProfile, cache.KindWeeklySummary)
	return PrescriptionFrom(s.ID, args), nil
}

func (b *StoreBackend) LogWorkoutSet(ctx context.Context, args LogSetArgs) (*LogSetResult, error) {
	logged, err := b.ds.LogSet(ctx, b.userID, args.ExerciseName, args.Weight, args.Reps, args.RIR)
	if err != nil {
		return nil, err
	}
	b.cache.Invalidate(ctx, b.userID, cache.KindVolume, cache.KindWeeklySummary, cache.KindDeload)
	return LogSetFrom(logged), nil
}
