package training

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meltforce/trainergpt/internal/models"
)

const (
	deloadWindow     = 3
	stalledThreshold = 2
	lowReadiness     = 2.0
)

// DeloadInput is the data a deload check needs.
type DeloadInput struct {
	Mesocycle *models.Mesocycle
	Sessions  []models.WorkoutSession
}

// EvaluateDeload runs the threshold checks: final mesocycle week reached,
// performance stalled or regressing at low RIR on several exercises, and low
// pre-session readiness across recent sessions. Any one firing recommends a
// deload.
func EvaluateDeload(in DeloadInput) models.DeloadRecommendation {
	rec := models.DeloadRecommendation{}
	if in.Mesocycle != nil {
		rec.CurrentWeek = in.Mesocycle.CurrentWeek
		rec.TotalWeeks = in.Mesocycle.TotalWeeks
		rec.MesocycleName = in.Mesocycle.Name
	}

	recent := SortRecentFirst(in.Sessions)
	if len(recent) > deloadWindow {
		recent = recent[:deloadWindow]
	}

	var reasons []string
	if m := in.Mesocycle; m != nil && m.TotalWeeks > 0 && m.CurrentWeek >= m.TotalWeeks {
		reasons = append(reasons, fmt.Sprintf("week %d of %d in %s is the planned deload week", m.CurrentWeek, m.TotalWeeks, m.Name))
	}
	if names := stalledExercises(recent); len(names) >= stalledThreshold {
		reasons = append(reasons, "reps are stalled or falling at RIR 1 or less on "+strings.Join(names, ", "))
	}
	if avg, ok := averageReadiness(recent); ok && avg <= lowReadiness {
		reasons = append(reasons, fmt.Sprintf("pre-session readiness averaged %.1f/5 over the last %d sessions", avg, len(recent)))
	}

	if len(reasons) > 0 {
		reason := strings.Join(reasons, "; ")
		rec.ShouldDeload = true
		rec.Reason = &reason
	}
	return rec
}

// stalledExercises finds exercises whose latest session gained no reps over
// the oldest in the window at the same or lower weight, with RIR 1 or less.
func stalledExercises(recent []models.WorkoutSession) []string {
	history := map[string][]setAggregate{}
	for _, s := range recent {
		bySet := map[string][]models.Set{}
		for _, set := range s.Sets {
			bySet[set.Exercise] = append(bySet[set.Exercise], set)
		}
		for name, sets := range bySet {
			history[name] = append(history[name], aggregate(sets))
		}
	}

	var out []string
	for name, pts := range history {
		if len(pts) < 2 {
			continue
		}
		latest, oldest := pts[0], pts[len(pts)-1]
		if latest.avgRIR == nil || *latest.avgRIR > 1 {
			continue
		}
		if latest.avgReps <= oldest.avgReps && latest.avgWeight <= oldest.avgWeight {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func averageReadiness(recent []models.WorkoutSession) (float64, bool) {
	var sum float64
	var n int
	for _, s := range recent {
		if s.PreReadiness != nil {
			sum += s.PreReadiness.Score()
			n++
		}
	}
	if n < 2 {
		return 0, false
	}
	return sum / float64(n), true
}
