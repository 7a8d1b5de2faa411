// Package tools is the catalogue of coaching operations the agent may call.
// Each tool has a typed argument struct, validated before execution, and a
// typed result. Execution is delegated to a Backend, which is either the
// database (StoreBackend) or a fixture set in the eval harness.
package tools

// Name identifies one tool in the catalogue.
type Name string

const (
	GetWorkoutHistory   Name = "getWorkoutHistory"
	GetVolumeThisWeek   Name = "getVolumeThisWeek"
	GetProgressionTrend Name = "getProgressionTrend"
	GetUserProfile      Name = "getUserProfile"
	GetExerciseLibrary  Name = "getExerciseLibrary"
	PrescribeWorkout    Name = "prescribeWorkout"
	LogWorkoutSet       Name = "logWorkoutSet"
)

// Names lists every tool in catalogue order.
var Names = []Name{
	GetWorkoutHistory,
	GetVolumeThisWeek,
	GetProgressionTrend,
	GetUserProfile,
	GetExerciseLibrary,
	PrescribeWorkout,
	LogWorkoutSet,
}

// ParseName returns the tool called s.
func ParseName(s string) (Name, bool) {
	for _, n := range Names {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// Mutating reports whether the tool changes persisted state.
func (n Name) Mutating() bool {
	return n == PrescribeWorkout || n == LogWorkoutSet
}
