package models

// ExperienceLevel is the lifter's self-reported training experience.
type ExperienceLevel string

const (
	Beginner     ExperienceLevel = "beginner"
	Intermediate ExperienceLevel = "intermediate"
	Advanced     ExperienceLevel = "advanced"
)

// Valid reports whether l is one of the known experience levels.
func (l ExperienceLevel) Valid() bool {
	switch l {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// UserProfile holds the training background of a single user.
type UserProfile struct {
	Name                  string          `json:"name" yaml:"name"`
	ExperienceLevel       ExperienceLevel `json:"experienceLevel" yaml:"experienceLevel"`
	TrainingAgeMonths     int             `json:"trainingAgeMonths" yaml:"trainingAgeMonths"`
	AvailableTrainingDays int             `json:"availableTrainingDays" yaml:"availableTrainingDays"`
	PreferredSplit        string          `json:"preferredSplit" yaml:"preferredSplit"`
}

// Landmark holds weekly hard-set thresholds for one muscle group.
type Landmark struct {
	MEV int `json:"mev" yaml:"mev"`
	MAV int `json:"mav" yaml:"mav"`
	MRV int `json:"mrv" yaml:"mrv"`
}

// Valid reports whether the thresholds are non-negative and ascending.
func (l Landmark) Valid() bool {
	return l.MEV >= 0 && l.MEV <= l.MAV && l.MAV <= l.MRV
}

// Mesocycle summarises the user's current training block.
type Mesocycle struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	CurrentWeek int    `json:"currentWeek" yaml:"currentWeek"`
	TotalWeeks  int    `json:"totalWeeks" yaml:"totalWeeks"`
	SplitType   string `json:"splitType" yaml:"splitType"`
	Status      string `json:"status" yaml:"status"`
}

// Valid reports whether the week counter lies within the block.
func (m Mesocycle) Valid() bool {
	return m.TotalWeeks > 0 && m.CurrentWeek >= 1 && m.CurrentWeek <= m.TotalWeeks
}

// Readiness is the pre-session self assessment, each value on a 1-5 scale.
type Readiness struct {
	Energy     int `json:"energy" yaml:"energy"`
	Motivation int `json:"motivation" yaml:"motivation"`
	Soreness   int `json:"soreness" yaml:"soreness"`
}

// Score folds the three values into one 1-5 number where higher means fresher.
// Soreness counts inversely.
func (r Readiness) Score() float64 {
	return (float64(r.Energy) + float64(r.Motivation) + float64(6-r.Soreness)) / 3
}
