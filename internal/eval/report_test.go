package eval

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(runID string, started time.Time, outcomes map[string]bool) Report {
	var results []Result
	for _, id := range []string{"policy-001", "tool-001"} {
		passed, ok := outcomes[id]
		if !ok {
			continue
		}
		cat := CategoryPolicy
		if id == "tool-001" {
			cat = CategoryToolUsage
		}
		r := Result{ScenarioID: id, Name: id, Category: cat, Passed: passed, Phase: PhaseReport}
		r.Assertions = []Verdict{{Assertion: "a", Passed: passed}}
		if !passed {
			r.ToolCheck.Missing = []string{"getVolumeThisWeek"}
		}
		results = append(results, r)
	}
	return Report{RunID: runID, StartedAt: started, Model: "coach", JudgeModel: "judge", Results: results, Summary: Summarize(results)}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		{Category: CategoryPolicy, Passed: true, Assertions: []Verdict{{Passed: true}, {Passed: false}}},
		{Category: CategoryPolicy, Passed: false},
		{Category: CategoryEdgeCase, Passed: true, Assertions: []Verdict{{Passed: true}}},
	})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, CategorySummary{Total: 2, Passed: 1}, s.ByCategory[CategoryPolicy])
	assert.Equal(t, CategorySummary{Total: 1, Passed: 1}, s.ByCategory[CategoryEdgeCase])
	assert.Equal(t, 3, s.AssertionsTotal)
	assert.Equal(t, 2, s.AssertionsPassed)
	assert.InDelta(t, 2.0/3.0, s.AssertionPassRate, 1e-9)

	empty := Summarize(nil)
	assert.Equal(t, 1.0, empty.AssertionPassRate)
}

func TestAllPassed(t *testing.T) {
	now := time.Now()
	assert.True(t, sampleReport("r", now, map[string]bool{"policy-001": true}).AllPassed())
	assert.False(t, sampleReport("r", now, map[string]bool{"policy-001": true, "tool-001": false}).AllPassed())
	assert.False(t, Report{}.AllPassed())
}

func TestWriteArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	started := time.Date(2026, 10, 17, 9, 5, 3, 0, time.UTC)
	rep := sampleReport("run-1", started, map[string]bool{"policy-001": true})

	path, err := WriteArtifact(dir, rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "eval-results-20261017_090503.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Report
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "policy-001", got.Results[0].ScenarioID)
}

func TestHistoryLastOutcomes(t *testing.T) {
	h, err := OpenHistory(t.TempDir())
	require.NoError(t, err)
	defer h.Close()

	first := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	require.NoError(t, h.Record(sampleReport("run-1", first, map[string]bool{"policy-001": true, "tool-001": false})))
	require.NoError(t, h.Record(sampleReport("run-2", second, map[string]bool{"policy-001": false})))

	got, err := h.LastOutcomes()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"policy-001": false, "tool-001": false}, got)
}

func TestPersist(t *testing.T) {
	dir := t.TempDir()
	h, err := OpenHistory(dir)
	require.NoError(t, err)
	defer h.Close()

	rep := sampleReport("run-1", time.Now(), map[string]bool{"tool-001": true})
	path, err := Persist(dir, rep, h)
	require.NoError(t, err)
	assert.FileExists(t, path)

	got, err := h.LastOutcomes()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"tool-001": true}, got)
}

func TestPrintReport(t *testing.T) {
	rep := sampleReport("run-2", time.Now(), map[string]bool{"policy-001": false, "tool-001": true})

	var buf bytes.Buffer
	PrintReport(&buf, rep, map[string]bool{"policy-001": true})
	out := buf.String()

	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "REGRESSION")
	assert.Contains(t, out, "getVolumeThisWeek")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
	assert.Contains(t, out, "Policy assertions: 1/2")
}
