package coach

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltforce/trainergpt/internal/tools"
)

func TestPolicyRules(t *testing.T) {
	p := Policy()
	for _, want := range []string{"getUserProfile, then getWorkoutHistory, then getExerciseLibrary", "RIR", "MRV", "shouldDeload", "75 words", "experience", "inconsistency"} {
		assert.Contains(t, p, want)
	}
	for i := 1; i <= 8; i++ {
		assert.Contains(t, p, "\n"+string(rune('0'+i))+". ")
	}
}

func TestLoad(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Policy(), p)

	path := filepath.Join(t.TempDir(), "policy.md")
	require.NoError(t, os.WriteFile(path, []byte("custom rules"), 0o644))
	p, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom rules", p)

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestWithContext(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	out := WithContext("rules", SessionContext{Now: now, ActiveSession: "Push A"})
	assert.True(t, strings.HasPrefix(out, "rules"))
	assert.Contains(t, out, "2026-10-17 (Saturday)")
	assert.Contains(t, out, `"Push A"`)

	out = WithContext("rules", SessionContext{Now: now})
	assert.Contains(t, out, "No workout session is in progress")
}

func TestIsSubsequence(t *testing.T) {
	tests := []struct {
		name  string
		calls []tools.Name
		want  bool
	}{
		{"exact", PrescriptionOrder, true},
		{"interleaved", []tools.Name{tools.GetUserProfile, tools.GetVolumeThisWeek, tools.GetWorkoutHistory, tools.GetProgressionTrend, tools.GetExerciseLibrary, tools.PrescribeWorkout}, true},
		{"history before profile", []tools.Name{tools.GetWorkoutHistory, tools.GetUserProfile, tools.GetExerciseLibrary, tools.PrescribeWorkout}, false},
		{"missing library", []tools.Name{tools.GetUserProfile, tools.GetWorkoutHistory, tools.PrescribeWorkout}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSubsequence(tt.calls, PrescriptionOrder))
		})
	}
}

func TestFollowsPrescriptionOrder(t *testing.T) {
	assert.True(t, FollowsPrescriptionOrder([]tools.Name{tools.GetVolumeThisWeek}))
	assert.True(t, FollowsPrescriptionOrder(PrescriptionOrder))
	assert.False(t, FollowsPrescriptionOrder([]tools.Name{tools.PrescribeWorkout, tools.GetUserProfile, tools.GetWorkoutHistory, tools.GetExerciseLibrary, tools.PrescribeWorkout}))
}
