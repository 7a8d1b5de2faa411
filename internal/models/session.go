package models

import "time"

// WorkoutSession is one training session and the sets logged in it.
// A session without a duration is still in progress.
type WorkoutSession struct {
	ID              string     `json:"id" yaml:"id"`
	Date            time.Time  `json:"date" yaml:"date"`
	SessionName     string     `json:"sessionName" yaml:"sessionName"`
	PreReadiness    *Readiness `json:"preReadiness" yaml:"preReadiness"`
	DurationMinutes *int       `json:"durationMinutes,omitempty" yaml:"durationMinutes"`
	Sets            []Set      `json:"sets" yaml:"sets"`
}

// Active reports whether the session has not been completed yet.
func (s WorkoutSession) Active() bool {
	return s.DurationMinutes == nil
}

// Set is a single logged set. SetNumber is 1-based per exercise within a session.
type Set struct {
	Exercise  string   `json:"exercise" yaml:"exercise"`
	SetNumber int      `json:"setNumber" yaml:"setNumber"`
	Weight    float64  `json:"weight" yaml:"weight"`
	Reps      int      `json:"reps" yaml:"reps"`
	RIR       *float64 `json:"rir" yaml:"rir"`
}

// ActiveSession marks the in-progress session of a user.
type ActiveSession struct {
	ID              string    `json:"id" yaml:"id"`
	Date            time.Time `json:"date" yaml:"date"`
	SessionName     string    `json:"sessionName" yaml:"sessionName"`
	DurationMinutes *int      `json:"durationMinutes"`
}

// PrescribedExercise is one line of a prescribed workout.
type PrescribedExercise struct {
	ExerciseID   string `json:"exerciseId" validate:"required"`
	ExerciseName string `json:"exerciseName" validate:"required"`
	TargetSets   int    `json:"targetSets" validate:"min=1,max=10"`
	RepRangeMin  int    `json:"repRangeMin" validate:"min=1"`
	RepRangeMax  int    `json:"repRangeMax" validate:"gtefield=RepRangeMin"`
	RIRTarget    int    `json:"rirTarget" validate:"min=0,max=5"`
	RestSeconds  int    `json:"restSeconds" validate:"min=0"`
}

// LoggedSet is the stored result of a successful set log.
type LoggedSet struct {
	SessionID string
	Exercise  string
	SetNumber int
	Weight    float64
	Reps      int
	RIR       *float64
}
