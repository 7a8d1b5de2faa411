package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/meltforce/trainergpt/internal/models"
	"github.com/meltforce/trainergpt/internal/training"
)

// The helpers below turn loaded data into tool results. Both backends share
// them so fixture runs and database runs produce the same shapes.

// HistoryFrom summarizes sessions for getWorkoutHistory.
func HistoryFrom(sessions []models.WorkoutSession, args HistoryArgs, lookup training.GroupLookup) *HistoryResult {
	summaries := training.SummarizeSessions(sessions, training.HistoryFilter{
		MuscleGroup:  args.MuscleGroup,
		ExerciseName: args.ExerciseName,
	}, lookup, args.LastNSessions)
	return &HistoryResult{Sessions: summaries, TotalSessions: len(summaries)}
}

// VolumeFrom compares a week's volume with landmarks for getVolumeThisWeek.
func VolumeFrom(volume map[string]int, landmarks map[string]models.Landmark, weekStart time.Time, group string) *VolumeResult {
	return &VolumeResult{
		WeekStart:    weekStart.Format("2006-01-02"),
		MuscleGroups: training.CompareVolume(volume, landmarks, strings.TrimSpace(group)),
	}
}

// ProgressionFrom builds the trend and recommendation for getProgressionTrend.
func ProgressionFrom(sessions []models.WorkoutSession, args ProgressionArgs) *ProgressionResult {
	res := &ProgressionResult{
		Exercise:        args.ExerciseName,
		RepRangeOptimal: training.DefaultRepRange,
		Trend:           training.Trend(sessions, args.ExerciseName, args.LastNSessions),
	}
	if len(res.Trend) == 0 {
		msg := training.NoDataMessage(args.ExerciseName)
		res.Trend = []training.TrendPoint{}
		res.Recommendation = &msg
		return res
	}
	res.Recommendation = training.Recommend(res.Trend, training.DefaultRepRange)
	return res
}

// FilterExercises applies library filters in memory. Filters are conjunctive;
// muscle group and equipment match exactly ignoring case, the search term is
// a substring match on the name.
func FilterExercises(exercises []models.Exercise, f models.ExerciseFilter) []models.Exercise {
	wantGroup := ""
	if g := strings.TrimSpace(f.MuscleGroup); g != "" {
		wantGroup, _ = models.NormalizeMuscleGroup(g)
	}
	out := []models.Exercise{}
	for _, e := range exercises {
		if wantGroup != "" && !hasPrimary(e, wantGroup) {
			continue
		}
		if f.SearchTerm != "" && !training.ContainsFold(e.Name, f.SearchTerm) {
			continue
		}
		if f.Equipment != "" && !strings.EqualFold(e.Equipment, strings.TrimSpace(f.Equipment)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasPrimary(e models.Exercise, group string) bool {
	for _, g := range e.MuscleGroups.Primary {
		if n, _ := models.NormalizeMuscleGroup(g); n == group {
			return true
		}
	}
	return false
}

// LibraryFrom trims exercises to the getExerciseLibrary shape.
func LibraryFrom(exercises []models.Exercise) *LibraryResult {
	entries := make([]LibraryEntry, 0, len(exercises))
	for _, e := range exercises {
		entries = append(entries, LibraryEntry{ID: e.ID, Name: e.Name, Equipment: e.Equipment})
	}
	return &LibraryResult{Exercises: entries, Count: len(entries)}
}

// GroupLookupFrom resolves exercise names against a library, exact name
// first, then the shortest library name containing it.
func GroupLookupFrom(exercises []models.Exercise) training.GroupLookup {
	byName := make(map[string]models.MuscleGroups, len(exercises))
	for _, e := range exercises {
		byName[strings.ToLower(e.Name)] = e.MuscleGroups
	}
	return func(name string) (models.MuscleGroups, bool) {
		if g, ok := byName[strings.ToLower(name)]; ok {
			return g, true
		}
		var best *models.Exercise
		for i := range exercises {
			e := &exercises[i]
			if training.ContainsFold(e.Name, name) && (best == nil || len(e.Name) < len(best.Name)) {
				best = e
			}
		}
		if best == nil {
			return models.MuscleGroups{}, false
		}
		return best.MuscleGroups, true
	}
}

// PrescriptionFrom builds the prescribeWorkout result for a created session.
func PrescriptionFrom(sessionID string, args PrescribeArgs) *PrescribeResult {
	total := 0
	for _, e := range args.Exercises {
		total += e.TargetSets
	}
	return &PrescribeResult{
		Success:       true,
		SessionID:     sessionID,
		SessionName:   args.SessionName,
		ExerciseCount: len(args.Exercises),
		TotalSets:     total,
		Message:       fmt.Sprintf("Created %q with %d exercises and %d total sets.", args.SessionName, len(args.Exercises), total),
	}
}

// LogSetFrom builds the logWorkoutSet result for a stored set.
func LogSetFrom(s *models.LoggedSet) *LogSetResult {
	return &LogSetResult{
		Success:   true,
		Exercise:  s.Exercise,
		SetNumber: s.SetNumber,
		Weight:    s.Weight,
		Reps:      s.Reps,
		RIR:       s.RIR,
	}
}
