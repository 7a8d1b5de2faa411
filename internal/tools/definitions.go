package tools

import "github.com/mark3labs/mcp-go/mcp"

var toolGetWorkoutHistory = mcp.NewTool(string(GetWorkoutHistory),
	mcp.WithDescription("Recent workout sessions, most recent first, summarised per exercise (sets, average weight, reps and RIR). Filter by exercise name or muscle group."),
	mcp.WithString("muscleGroup", mcp.Description("Only include exercises training this muscle group (e.g. chest, quads)")),
	mcp.WithString("exerciseName", mcp.Description("Only include exercises whose name contains this text (e.g. 'bench')")),
	mcp.WithNumber("lastNSessions", mcp.Description("Number of sessions to return. Defaults to 3."), mcp.Min(1), mcp.Max(MaxSessions)),
)

var toolGetVolumeThisWeek = mcp.NewTool(string(GetVolumeThisWeek),
	mcp.WithDescription("Hard sets per muscle group this week compared with the user's MEV/MAV/MRV landmarks. Check this before adding volume."),
	mcp.WithString("muscleGroup", mcp.Description("Only return this muscle group. Omit for all groups.")),
)

var toolGetProgressionTrend = mcp.NewTool(string(GetProgressionTrend),
	mcp.WithDescription("Session-by-session trend for one exercise with a progression recommendation (add weight, push closer to failure, reduce weight)."),
	mcp.WithString("exerciseName", mcp.Required(), mcp.Description("Exercise name or part of it")),
	mcp.WithNumber("lastNSessions", mcp.Description("Number of sessions in the trend. Defaults to 4."), mcp.Min(1), mcp.Max(MaxSessions)),
)

var toolGetUserProfile = mcp.NewTool(string(GetUserProfile),
	mcp.WithDescription("The user's training profile, volume landmarks, active mesocycle and deload recommendation. Call this first before prescribing a workout."),
)

var toolGetExerciseLibrary = mcp.NewTool(string(GetExerciseLibrary),
	mcp.WithDescription("Search the exercise library. All filters are optional and combined. Use the returned ids when prescribing."),
	mcp.WithString("muscleGroup", mcp.Description("Primary muscle group (exact match)")),
	mcp.WithString("searchTerm", mcp.Description("Text contained in the exercise name")),
	mcp.WithString("equipment", mcp.Description("Equipment (e.g. barbell, dumbbell, cable, machine, bodyweight)")),
)

var toolPrescribeWorkout = mcp.NewTool(string(PrescribeWorkout),
	mcp.WithDescription("Create a planned workout session. Only call after getUserProfile, getWorkoutHistory and getExerciseLibrary, and never when it would push a muscle group above its MRV."),
	mcp.WithString("sessionName", mcp.Required(), mcp.Description("Short session name, e.g. 'Push A'")),
	mcp.WithArray("exercises", mcp.Required(), mcp.Description("Exercises in order"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"exerciseId":   map[string]any{"type": "string", "description": "Library exercise id"},
				"exerciseName": map[string]any{"type": "string"},
				"targetSets":   map[string]any{"type": "integer", "minimum": 1, "maximum": 10, "description": "Usually 2-5"},
				"repRangeMin":  map[string]any{"type": "integer", "minimum": 1},
				"repRangeMax":  map[string]any{"type": "integer", "minimum": 1},
				"rirTarget":    map[string]any{"type": "integer", "minimum": 0, "maximum": 5, "description": "Reps in reserve, usually 0-4"},
				"restSeconds":  map[string]any{"type": "integer", "minimum": 0},
			},
			"required": []string{"exerciseId", "exerciseName", "targetSets", "repRangeMin", "repRangeMax", "rirTarget"},
		}),
	),
)

var toolLogWorkoutSet = mcp.NewTool(string(LogWorkoutSet),
	mcp.WithDescription("Log a completed set in the active workout session. Effort is recorded as RIR (reps in reserve), never RPE."),
	mcp.WithString("exerciseName", mcp.Required(), mcp.Description("Exercise name or part of it")),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight lifted"), mcp.Min(0)),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions completed"), mcp.Min(1)),
	mcp.WithNumber("rir", mcp.Description("Reps in reserve, 0 = failure"), mcp.Min(0), mcp.Max(10)),
)

var definitions = map[Name]mcp.Tool{
	GetWorkoutHistory:   toolGetWorkoutHistory,
	GetVolumeThisWeek:   toolGetVolumeThisWeek,
	GetProgressionTrend: toolGetProgressionTrend,
	GetUserProfile:      toolGetUserProfile,
	GetExerciseLibrary:  toolGetExerciseLibrary,
	PrescribeWorkout:    toolPrescribeWorkout,
	LogWorkoutSet:       toolLogWorkoutSet,
}

// Definitions returns the declared schema of every tool in catalogue order.
func Definitions() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(Names))
	for _, n := range Names {
		out = append(out, definitions[n])
	}
	return out
}

// Definition returns the declared schema of one tool.
func Definition(n Name) (mcp.Tool, bool) {
	t, ok := definitions[n]
	return t, ok
}
