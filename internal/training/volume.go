// Package training holds the pure computations behind the coaching tools:
// weekly volume against landmarks, session summaries, progression trends and
// deload checks. Nothing in here performs I/O.
package training

import (
	"strings"
	"time"

	"github.com/meltforce/trainergpt/internal/models"
)

// Status classifies a weekly set count against a muscle group's landmarks.
type Status string

const (
	BelowMEV    Status = "below_mev"
	AtMEV       Status = "at_mev"
	InRange     Status = "in_range"
	AboveMRV    Status = "above_mrv"
	NoLandmarks Status = "no_landmarks"
)

// Rank orders the landmark statuses from least to most volume.
// NoLandmarks ranks -1 because it sits outside the scale.
func (s Status) Rank() int {
	switch s {
	case BelowMEV:
		return 0
	case AtMEV:
		return 1
	case InRange:
		return 2
	case AboveMRV:
		return 3
	}
	return -1
}

// VolumeStatus classifies sets against lm. at_mev covers mev <= sets < mav.
func VolumeStatus(sets int, lm models.Landmark) Status {
	switch {
	case sets < lm.MEV:
		return BelowMEV
	case sets < lm.MAV:
		return AtMEV
	case sets <= lm.MRV:
		return InRange
	default:
		return AboveMRV
	}
}

// Comparison is one muscle group's weekly volume next to its landmarks.
// Landmark fields are omitted and SetsRemaining is null when the group has none.
type Comparison struct {
	Sets          int    `json:"sets"`
	Status        Status `json:"status"`
	SetsRemaining *int   `json:"setsRemaining"`
	MEV           *int   `json:"mev,omitempty"`
	MAV           *int   `json:"mav,omitempty"`
	MRV           *int   `json:"mrv,omitempty"`
}

// Compare builds the comparison for a single group. lm may be nil.
func Compare(sets int, lm *models.Landmark) Comparison {
	if lm == nil {
		return Comparison{Sets: sets, Status: NoLandmarks}
	}
	remaining := max(0, lm.MRV-sets)
	mev, mav, mrv := lm.MEV, lm.MAV, lm.MRV
	return Comparison{
		Sets:          sets,
		Status:        VolumeStatus(sets, *lm),
		SetsRemaining: &remaining,
		MEV:           &mev,
		MAV:           &mav,
		MRV:           &mrv,
	}
}

// CompareVolume compares weekly volume with landmarks. With an empty group it
// returns the union of every group present in either map; otherwise only the
// requested group, matched case-insensitively.
func CompareVolume(volume map[string]int, landmarks map[string]models.Landmark, group string) map[string]Comparison {
	out := make(map[string]Comparison)

	if group != "" {
		name := resolveGroup(group, volume, landmarks)
		out[name] = compareKey(name, volume, landmarks)
		return out
	}

	for g := range volume {
		out[g] = compareKey(g, volume, landmarks)
	}
	for g := range landmarks {
		if _, ok := out[g]; !ok {
			out[g] = compareKey(g, volume, landmarks)
		}
	}
	return out
}

func compareKey(g string, volume map[string]int, landmarks map[string]models.Landmark) Comparison {
	if lm, ok := landmarks[g]; ok {
		return Compare(volume[g], &lm)
	}
	return Compare(volume[g], nil)
}

// resolveGroup finds the key used in the maps for a requested group name.
func resolveGroup(group string, volume map[string]int, landmarks map[string]models.Landmark) string {
	canonical, _ := models.NormalizeMuscleGroup(group)
	for _, candidate := range []string{group, canonical} {
		if _, ok := volume[candidate]; ok {
			return candidate
		}
		if _, ok := landmarks[candidate]; ok {
			return candidate
		}
	}
	for k := range volume {
		if strings.EqualFold(k, group) {
			return k
		}
	}
	for k := range landmarks {
		if strings.EqualFold(k, group) {
			return k
		}
	}
	return canonical
}

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
