package models

import "testing"

// TestNormalizeMuscleGroup verifies canonical names pass through and common
// gym vocabulary maps onto them.
func TestNormalizeMuscleGroup(t *testing.T) {
	cases := []struct {
		input string
		want  string
		known bool
	}{
		{"chest", "chest", true},
		{"Pecs", "chest", true},
		{"  lats ", "back", true},
		{"Delts", "shoulders", true},
		{"quadriceps", "quads", true},
		{"Forearms", "forearms", false},
	}
	for _, tc := range cases {
		got, known := NormalizeMuscleGroup(tc.input)
		if known != tc.known {
			t.Errorf("NormalizeMuscleGroup(%q) known = %v, want %v", tc.input, known, tc.known)
		}
		if got != tc.want {
			t.Errorf("NormalizeMuscleGroup(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// TestLandmarkValid verifies the mev <= mav <= mrv ordering rule.
func TestLandmarkValid(t *testing.T) {
	cases := []struct {
		lm   Landmark
		want bool
	}{
		{Landmark{MEV: 8, MAV: 14, MRV: 22}, true},
		{Landmark{MEV: 8, MAV: 8, MRV: 8}, true},
		{Landmark{MEV: 10, MAV: 8, MRV: 22}, false},
		{Landmark{MEV: 8, MAV: 24, MRV: 22}, false},
		{Landmark{MEV: -1, MAV: 4, MRV: 6}, false},
	}
	for _, tc := range cases {
		if got := tc.lm.Valid(); got != tc.want {
			t.Errorf("%+v.Valid() = %v, want %v", tc.lm, got, tc.want)
		}
	}
}

// TestMesocycleValid verifies that the current week must lie within the block.
func TestMesocycleValid(t *testing.T) {
	if !(Mesocycle{CurrentWeek: 5, TotalWeeks: 5}).Valid() {
		t.Error("week 5 of 5 should be valid")
	}
	if (Mesocycle{CurrentWeek: 6, TotalWeeks: 5}).Valid() {
		t.Error("week 6 of 5 should be invalid")
	}
	if (Mesocycle{CurrentWeek: 0, TotalWeeks: 5}).Valid() {
		t.Error("week 0 should be invalid")
	}
}

// TestReadinessScore verifies soreness counts inversely.
func TestReadinessScore(t *testing.T) {
	fresh := Readiness{Energy: 5, Motivation: 5, Soreness: 1}
	if got := fresh.Score(); got != 5 {
		t.Errorf("fresh score = %v, want 5", got)
	}
	beat := Readiness{Energy: 1, Motivation: 1, Soreness: 5}
	if got := beat.Score(); got != 1 {
		t.Errorf("beat-up score = %v, want 1", got)
	}
}

// TestSessionActive verifies that a session without duration is in progress.
func TestSessionActive(t *testing.T) {
	if !(WorkoutSession{}).Active() {
		t.Error("session without duration should be active")
	}
	d := 60
	if (WorkoutSession{DurationMinutes: &d}).Active() {
		t.Error("session with duration should not be active")
	}
}

// TestExperienceLevelValid verifies the closed set of levels.
func TestExperienceLevelValid(t *testing.T) {
	for _, l := range []ExperienceLevel{Beginner, Intermediate, Advanced} {
		if !l.Valid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if ExperienceLevel("elite").Valid() {
		t.Error(`"elite" should be invalid`)
	}
}
