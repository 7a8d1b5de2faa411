package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TRAINERGPT_LLM_API_KEY", "")
	t.Setenv("TRAINERGPT_LLM_BASE_URL", "")
	t.Setenv("TRAINERGPT_EVAL_SCENARIO_DIR", "")
	t.Setenv("TRAINERGPT_EVAL_OUTPUT_DIR", t.TempDir())
	t.Setenv("TRAINERGPT_EVAL_HISTORY_DIR", t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListScenarios(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "--list")
	require.NoError(t, err)
	for _, id := range []string{"policy-002", "policy-003", "tool-001", "edge-003"} {
		assert.Contains(t, out, id)
	}

	out, err = execute(t, "--list", "--category", "edge-case")
	require.NoError(t, err)
	assert.Contains(t, out, "edge-003")
	assert.NotContains(t, out, "policy-002")
}

func TestSelectionErrors(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "--list", "policy-999")
	assert.ErrorContains(t, err, "policy-999")

	_, err = execute(t, "--list", "--category", "cardio")
	assert.ErrorContains(t, err, "unknown category")

	_, err = execute(t, "tool-001")
	assert.ErrorContains(t, err, "llm.api_key")
}

// fakeOpenAI answers every chat completion with the same text.
func fakeOpenAI(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunFailingScenarioWritesArtifact(t *testing.T) {
	isolateEnv(t)
	outDir := t.TempDir()
	histDir := t.TempDir()
	t.Setenv("TRAINERGPT_EVAL_OUTPUT_DIR", outDir)
	t.Setenv("TRAINERGPT_EVAL_HISTORY_DIR", histDir)
	t.Setenv("TRAINERGPT_LLM_BASE_URL", fakeOpenAI(t, "VERDICT: FALSE\nREASONING: no tools were used").URL)

	out, err := execute(t, "tool-001")
	require.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "tool-001")

	matches, err := filepath.Glob(filepath.Join(outDir, "eval-results-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	b, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `"tool-001"`))

	_, err = os.Stat(filepath.Join(histDir, "history.db"))
	assert.NoError(t, err)
}
