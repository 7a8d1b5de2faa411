package models

import "strings"

// Canonical muscle group names used for landmarks and volume tallies.
const (
	MuscleChest      = "chest"
	MuscleBack       = "back"
	MuscleShoulders  = "shoulders"
	MuscleBiceps     = "biceps"
	MuscleTriceps    = "triceps"
	MuscleQuads      = "quads"
	MuscleHamstrings = "hamstrings"
	MuscleGlutes     = "glutes"
	MuscleCalves     = "calves"
	MuscleAbs        = "abs"
)

// muscleGroupMap maps lowercased gym vocabulary to canonical group names.
var muscleGroupMap = map[string]string{
	"chest":     MuscleChest,
	"pecs":      MuscleChest,
	"pec":       MuscleChest,
	"pectorals": MuscleChest,

	"back":       MuscleBack,
	"lats":       MuscleBack,
	"lat":        MuscleBack,
	"upper back": MuscleBack,
	"traps":      MuscleBack,

	"shoulders":  MuscleShoulders,
	"shoulder":   MuscleShoulders,
	"delts":      MuscleShoulders,
	"deltoids":   MuscleShoulders,
	"side delts": MuscleShoulders,
	"rear delts": MuscleShoulders,

	"biceps": MuscleBiceps,
	"bis":    MuscleBiceps,

	"triceps": MuscleTriceps,
	"tris":    MuscleTriceps,

	"quads":      MuscleQuads,
	"quadriceps": MuscleQuads,
	"hamstrings": MuscleHamstrings,
	"hams":       MuscleHamstrings,
	"glutes":     MuscleGlutes,
	"glute":      MuscleGlutes,
	"calves":     MuscleCalves,
	"calf":       MuscleCalves,

	"abs":        MuscleAbs,
	"core":       MuscleAbs,
	"abdominals": MuscleAbs,
}

// NormalizeMuscleGroup maps a muscle group name as a user or model might write it
// to its canonical name. Returns the canonical name and true if recognized, or the
// trimmed lowercase input and false if unknown.
func NormalizeMuscleGroup(raw string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := muscleGroupMap[lower]; ok {
		return canonical, true
	}
	return lower, false
}
