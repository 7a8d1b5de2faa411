package training

import (
	"math"
	"sort"
	"strings"

	"github.com/meltforce/trainergpt/internal/models"
)

// ExerciseSummary aggregates one exercise's sets within a session.
type ExerciseSummary struct {
	Exercise  string   `json:"exercise"`
	Sets      int      `json:"sets"`
	AvgWeight int      `json:"avgWeight"`
	AvgReps   float64  `json:"avgReps"`
	AvgRIR    *float64 `json:"avgRir"`
}

// SessionSummary is one session reduced to per-exercise aggregates.
type SessionSummary struct {
	Date        string            `json:"date"`
	SessionName string            `json:"sessionName"`
	Exercises   []ExerciseSummary `json:"exercises"`
}

// HistoryFilter selects which sets count. ExerciseName takes precedence
// over MuscleGroup.
type HistoryFilter struct {
	MuscleGroup  string
	ExerciseName string
}

// GroupLookup resolves the muscle groups an exercise trains. A nil lookup
// disables muscle group filtering.
type GroupLookup func(exercise string) (models.MuscleGroups, bool)

// SortRecentFirst orders sessions by date, most recent first.
func SortRecentFirst(sessions []models.WorkoutSession) []models.WorkoutSession {
	out := make([]models.WorkoutSession, len(sessions))
	copy(out, sessions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// SummarizeSessions summarizes the most recent lastN sessions, most recent
// first. Sessions with no matching sets still appear with empty summaries.
func SummarizeSessions(sessions []models.WorkoutSession, filter HistoryFilter, lookup GroupLookup, lastN int) []SessionSummary {
	sorted := SortRecentFirst(sessions)
	if lastN > 0 && len(sorted) > lastN {
		sorted = sorted[:lastN]
	}

	out := make([]SessionSummary, 0, len(sorted))
	for _, s := range sorted {
		var matching []models.Set
		for _, set := range s.Sets {
			if filter.matches(set.Exercise, lookup) {
				matching = append(matching, set)
			}
		}
		out = append(out, SessionSummary{
			Date:        s.Date.Format("2006-01-02"),
			SessionName: s.SessionName,
			Exercises:   summarizeSets(matching),
		})
	}
	return out
}

func (f HistoryFilter) matches(exercise string, lookup GroupLookup) bool {
	if f.ExerciseName != "" {
		return ContainsFold(exercise, f.ExerciseName)
	}
	if f.MuscleGroup == "" || lookup == nil {
		return true
	}
	groups, ok := lookup(exercise)
	if !ok {
		return false
	}
	return TrainsGroup(groups, f.MuscleGroup)
}

// TrainsGroup reports whether group is among the primary or secondary groups.
func TrainsGroup(groups models.MuscleGroups, group string) bool {
	want, _ := models.NormalizeMuscleGroup(group)
	for _, list := range [][]string{groups.Primary, groups.Secondary} {
		for _, g := range list {
			got, _ := models.NormalizeMuscleGroup(g)
			if got == want {
				return true
			}
		}
	}
	return false
}

// summarizeSets groups sets by exercise in order of first appearance.
func summarizeSets(sets []models.Set) []ExerciseSummary {
	order := []string{}
	byExercise := map[string][]models.Set{}
	for _, s := range sets {
		if _, ok := byExercise[s.Exercise]; !ok {
			order = append(order, s.Exercise)
		}
		byExercise[s.Exercise] = append(byExercise[s.Exercise], s)
	}

	out := make([]ExerciseSummary, 0, len(order))
	for _, name := range order {
		a := aggregate(byExercise[name])
		out = append(out, ExerciseSummary{
			Exercise:  name,
			Sets:      a.count,
			AvgWeight: int(math.Round(a.avgWeight)),
			AvgReps:   Round1(a.avgReps),
			AvgRIR:    a.avgRIR,
		})
	}
	return out
}

type setAggregate struct {
	count     int
	avgWeight float64
	avgReps   float64
	avgRIR    *float64
}

func aggregate(sets []models.Set) setAggregate {
	var a setAggregate
	if len(sets) == 0 {
		return a
	}
	var weight, reps, rir float64
	var rirCount int
	for _, s := range sets {
		weight += s.Weight
		reps += float64(s.Reps)
		if s.RIR != nil {
			rir += *s.RIR
			rirCount++
		}
	}
	a.count = len(sets)
	a.avgWeight = weight / float64(len(sets))
	a.avgReps = reps / float64(len(sets))
	if rirCount > 0 {
		v := Round1(rir / float64(rirCount))
		a.avgRIR = &v
	}
	return a
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}
