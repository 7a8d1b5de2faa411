package training

import (
	"fmt"

	"github.com/meltforce/trainergpt/internal/models"
)

// DefaultRepRange is the hypertrophy rep range used for recommendations.
var DefaultRepRange = [2]int{8, 12}

// TrendPoint is one session's aggregate for a single exercise.
type TrendPoint struct {
	Date      string   `json:"date"`
	SetCount  int      `json:"setCount"`
	AvgWeight float64  `json:"avgWeight"`
	AvgReps   float64  `json:"avgReps"`
	AvgRIR    *float64 `json:"avgRir"`
}

// Trend returns per-session aggregates for sets whose exercise contains
// exerciseName, most recent first, capped at lastN.
func Trend(sessions []models.WorkoutSession, exerciseName string, lastN int) []TrendPoint {
	var out []TrendPoint
	for _, s := range SortRecentFirst(sessions) {
		var matching []models.Set
		for _, set := range s.Sets {
			if ContainsFold(set.Exercise, exerciseName) {
				matching = append(matching, set)
			}
		}
		if len(matching) == 0 {
			continue
		}
		a := aggregate(matching)
		out = append(out, TrendPoint{
			Date:      s.Date.Format("2006-01-02"),
			SetCount:  a.count,
			AvgWeight: Round1(a.avgWeight),
			AvgReps:   Round1(a.avgReps),
			AvgRIR:    a.avgRIR,
		})
		if lastN > 0 && len(out) == lastN {
			break
		}
	}
	return out
}

// Recommend applies the progression rules to the most recent trend point.
// It returns nil when no rule fires. The three RIR rules need a recorded RIR;
// when the latest point has none, only the weight-increase rule can fire.
func Recommend(trend []TrendPoint, repRange [2]int) *string {
	if len(trend) == 0 {
		return nil
	}
	latest := trend[0]
	bottom, top := float64(repRange[0]), float64(repRange[1])

	var msg string
	switch {
	case latest.AvgRIR != nil && latest.AvgReps >= top && *latest.AvgRIR <= 2:
		msg = fmt.Sprintf("Top of the rep range reached (%.1f reps at %.1f RIR). Increase the weight by 2.5-5%% next session.",
			latest.AvgReps, *latest.AvgRIR)
	case latest.AvgRIR != nil && *latest.AvgRIR >= 3:
		msg = fmt.Sprintf("Average RIR is %.1f. Keep the weight and push sets closer to failure (0-2 RIR).", *latest.AvgRIR)
	case latest.AvgRIR != nil && latest.AvgReps < bottom && *latest.AvgRIR <= 0:
		msg = fmt.Sprintf("Reps dropped below %d at 0 RIR. Reduce the weight by 5-10%%.", repRange[0])
	case len(trend) > 1 && latest.AvgWeight > trend[1].AvgWeight:
		msg = fmt.Sprintf("Average weight went from %.1f to %.1f. Progressive overload is on track.",
			trend[1].AvgWeight, latest.AvgWeight)
	default:
		return nil
	}
	return &msg
}

// NoDataMessage is the recommendation returned when no session matches.
func NoDataMessage(exerciseName string) string {
	return fmt.Sprintf("No data found for %s.", exerciseName)
}
