package coach

import "github.com/meltforce/trainergpt/internal/tools"

// PrescriptionOrder is the relative order of calls required before a prescription.
var PrescriptionOrder = []tools.Name{
	tools.GetUserProfile,
	tools.GetWorkoutHistory,
	tools.GetExerciseLibrary,
	tools.PrescribeWorkout,
}

// IsSubsequence reports whether order appears in calls in sequence, other
// calls allowed in between.
func IsSubsequence(calls, order []tools.Name) bool {
	i := 0
	for _, c := range calls {
		if i < len(order) && c == order[i] {
			i++
		}
	}
	return i == len(order)
}

// FollowsPrescriptionOrder reports whether every prescribeWorkout call in
// calls is preceded by profile, history and library calls in that order.
func FollowsPrescriptionOrder(calls []tools.Name) bool {
	for i, c := range calls {
		if c == tools.PrescribeWorkout && !IsSubsequence(calls[:i+1], PrescriptionOrder) {
			return false
		}
	}
	return true
}
