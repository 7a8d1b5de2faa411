package tools

import (
	"github.com/meltforce/trainergpt/internal/models"
	"github.com/meltforce/trainergpt/internal/training"
)

const (
	// DefaultHistorySessions is used when getWorkoutHistory omits lastNSessions.
	DefaultHistorySessions = 3
	// DefaultTrendSessions is used when getProgressionTrend omits lastNSessions.
	DefaultTrendSessions = 4
	// MaxSessions caps lastNSessions for both history tools.
	MaxSessions = 20
)

// defaulter is implemented by argument structs with optional fields.
type defaulter interface {
	applyDefaults()
}

type HistoryArgs struct {
	MuscleGroup   string `json:"muscleGroup,omitempty"`
	ExerciseName  string `json:"exerciseName,omitempty"`
	LastNSessions int    `json:"lastNSessions,omitempty" validate:"min=1,max=20"`
}

func (a *HistoryArgs) applyDefaults() {
	if a.LastNSessions == 0 {
		a.LastNSessions = DefaultHistorySessions
	}
}

type HistoryResult struct {
	Sessions      []training.SessionSummary `json:"sessions"`
	TotalSessions int                       `json:"totalSessions"`
}

type VolumeArgs struct {
	MuscleGroup string `json:"muscleGroup,omitempty"`
}

type VolumeResult struct {
	WeekStart    string                         `json:"weekStart"`
	MuscleGroups map[string]training.Comparison `json:"muscleGroups"`
}

type ProgressionArgs struct {
	ExerciseName  string `json:"exerciseName" validate:"required"`
	LastNSessions int    `json:"lastNSessions,omitempty" validate:"min=1,max=20"`
}

func (a *ProgressionArgs) applyDefaults() {
	if a.LastNSessions == 0 {
		a.LastNSessions = DefaultTrendSessions
	}
}

type ProgressionResult struct {
	Exercise        string                `json:"exercise"`
	RepRangeOptimal [2]int                `json:"repRangeOptimal"`
	Trend           []training.TrendPoint `json:"trend"`
	Recommendation  *string               `json:"recommendation"`
}

// ProfileArgs is empty: getUserProfile takes no arguments.
type ProfileArgs struct{}

// ProfileResult is the profile plus landmarks, mesocycle and deload advice.
// Every field is null or empty when the user has no profile.
type ProfileResult struct {
	Profile              *models.UserProfile          `json:"profile"`
	VolumeLandmarks      map[string]models.Landmark   `json:"volumeLandmarks"`
	ActiveMesocycle      *models.Mesocycle            `json:"activeMesocycle"`
	DeloadRecommendation *models.DeloadRecommendation `json:"deloadRecommendation"`
}

// EmptyProfile is the getUserProfile result for a user without a profile.
func EmptyProfile() *ProfileResult {
	return &ProfileResult{VolumeLandmarks: map[string]models.Landmark{}}
}

type LibraryArgs struct {
	MuscleGroup string `json:"muscleGroup,omitempty"`
	SearchTerm  string `json:"searchTerm,omitempty"`
	Equipment   string `json:"equipment,omitempty"`
}

// Filter converts the arguments to a storage filter.
func (a LibraryArgs) Filter() models.ExerciseFilter {
	return models.ExerciseFilter{MuscleGroup: a.MuscleGroup, SearchTerm: a.SearchTerm, Equipment: a.Equipment}
}

// LibraryEntry is the trimmed exercise shape returned to the agent.
type LibraryEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Equipment string `json:"equipment"`
}

type LibraryResult struct {
	Exercises []LibraryEntry `json:"exercises"`
	Count     int            `json:"count"`
}

type PrescribeArgs struct {
	SessionName string                      `json:"sessionName" validate:"required"`
	Exercises   []models.PrescribedExercise `json:"exercises" validate:"required,min=1,dive"`
}

type PrescribeResult struct {
	Success       bool   `json:"success"`
	SessionID     string `json:"sessionId"`
	SessionName   string `json:"sessionName"`
	ExerciseCount int    `json:"exerciseCount"`
	TotalSets     int    `json:"totalSets"`
	Message       string `json:"message"`
}

type LogSetArgs struct {
	ExerciseName string   `json:"exerciseName" validate:"required"`
	Weight       float64  `json:"weight" validate:"gt=0"`
	Reps         int      `json:"reps" validate:"gt=0"`
	RIR          *float64 `json:"rir,omitempty" validate:"omitempty,min=0,max=10"`
}

type LogSetResult struct {
	Success   bool     `json:"success"`
	Exercise  string   `json:"exercise,omitempty"`
	SetNumber int      `json:"setNumber,omitempty"`
	Weight    float64  `json:"weight,omitempty"`
	Reps      int      `json:"reps,omitempty"`
	RIR       *float64 `json:"rir,omitempty"`
	Error     string   `json:"error,omitempty"`
}
