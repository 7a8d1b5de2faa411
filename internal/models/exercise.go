package models

// MuscleGroups lists the primary and secondary muscle groups an exercise trains.
type MuscleGroups struct {
	Primary   []string `json:"primary" yaml:"primary"`
	Secondary []string `json:"secondary" yaml:"secondary"`
}

// Exercise is shared, read-only reference data.
type Exercise struct {
	ID              string       `json:"id" yaml:"id"`
	Name            string       `json:"name" yaml:"name"`
	MuscleGroups    MuscleGroups `json:"muscleGroups" yaml:"muscleGroups"`
	Equipment       string       `json:"equipment" yaml:"equipment"`
	MovementPattern string       `json:"movementPattern" yaml:"movementPattern"`
}

// ExerciseFilter narrows a library search. Empty fields do not filter.
type ExerciseFilter struct {
	MuscleGroup string
	SearchTerm  string
	Equipment   string
}
