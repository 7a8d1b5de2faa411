package eval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func toolCallResponse(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:       id,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: name, Arguments: args},
			}},
		},
		FinishReason: openai.FinishReasonToolCalls,
	}}}
}

// coachScript plays the coach: it calls the volume tool once, then replies
// with the text keyed by the first user message. Requests without tools are
// judge requests and always pass.
func coachScript(replies map[string]string) clientFunc {
	return func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		if len(req.Tools) == 0 {
			return textResponse("VERDICT: TRUE\nREASONING: ok"), nil
		}
		last := req.Messages[len(req.Messages)-1]
		if last.Role != openai.ChatMessageRoleTool {
			return toolCallResponse("call-1", "getVolumeThisWeek", `{}`), nil
		}
		var user string
		for _, m := range req.Messages {
			if m.Role == openai.ChatMessageRoleUser {
				user = m.Content
				break
			}
		}
		return textResponse(replies[user]), nil
	}
}

func volumeScenario(id, message string) Scenario {
	return Scenario{
		ID:       id,
		Name:     id,
		Category: CategoryPolicy,
		Messages: []Message{{Role: "user", Content: message}},
		Fixtures: Fixtures{Volume: map[string]int{"chest": 22}},
		Expect: Expectation{
			ToolCalls:           []string{"getVolumeThisWeek"},
			MustNotCall:         []string{"prescribeWorkout"},
			ResponseContains:    []string{"MRV"},
			ResponseNotContains: []string{"RPE"},
			Assertions:          []string{"offers an alternative"},
		},
	}
}

func TestRunnerGradesScenarios(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := coachScript(map[string]string{
		"good": "Chest is at MRV this week. Let's add rows instead.",
		"bad":  "Sure, 4 more sets at RPE 9.",
	})
	r := NewRunner(client, NewJudge(client, "judge", 2, discardLogger()),
		RunnerConfig{Model: "coach", MaxSteps: 5, Timeout: 5 * time.Second, Concurrency: 3}, discardLogger())

	results := r.Run(context.Background(), []Scenario{
		volumeScenario("a", "good"),
		volumeScenario("b", "bad"),
		volumeScenario("c", "good"),
	})
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].ScenarioID, results[1].ScenarioID, results[2].ScenarioID})

	good := results[0]
	assert.True(t, good.Passed, good.Error)
	assert.Equal(t, PhaseReport, good.Phase)
	assert.True(t, good.ToolCheck.Passed)
	assert.True(t, good.TextCheck.Passed)
	require.Len(t, good.Assertions, 1)
	assert.True(t, good.Assertions[0].Passed)
	require.Len(t, good.ToolCalls, 1)
	assert.Equal(t, "getVolumeThisWeek", good.ToolCalls[0].Tool)

	bad := results[1]
	assert.False(t, bad.Passed)
	assert.Equal(t, []string{"MRV"}, bad.TextCheck.Missing)
	assert.Equal(t, []string{"RPE"}, bad.TextCheck.Forbidden)
	assert.True(t, bad.ToolCheck.Passed)
}

func TestRunnerWithoutJudgeFailsAssertions(t *testing.T) {
	client := coachScript(map[string]string{"good": "Chest is at MRV. Try rows."})
	r := NewRunner(client, nil, RunnerConfig{Model: "coach", MaxSteps: 5}, discardLogger())

	res := r.RunScenario(context.Background(), volumeScenario("a", "good"))
	assert.False(t, res.Passed)
	require.Len(t, res.Assertions, 1)
	assert.False(t, res.Assertions[0].Passed)
	assert.NotEmpty(t, res.Assertions[0].Error)
}

func TestRunnerOrderAndLength(t *testing.T) {
	client := coachScript(map[string]string{"long": strings.Repeat("word ", 80) + "MRV"})
	r := NewRunner(client, nil, RunnerConfig{Model: "coach", MaxSteps: 5}, discardLogger())

	s := volumeScenario("a", "long")
	s.Expect.Assertions = nil
	s.Expect.MaxWords = 75
	s.Expect.Order = []string{"getUserProfile", "getVolumeThisWeek"}

	res := r.RunScenario(context.Background(), s)
	assert.False(t, res.Passed)
	assert.Equal(t, s.Expect.Order, res.ToolCheck.OutOfOrder)
	assert.Equal(t, 81, res.TextCheck.Words)
	assert.False(t, res.TextCheck.Passed)
}

// batchedReads requests the three prescription reads in one step, then
// prescribes, then answers.
func batchedReads() clientFunc {
	return func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		toolMsgs := 0
		for _, m := range req.Messages {
			if m.Role == openai.ChatMessageRoleTool {
				toolMsgs++
			}
		}
		switch toolMsgs {
		case 0:
			resp := toolCallResponse("call-1", "getUserProfile", `{}`)
			msg := &resp.Choices[0].Message
			msg.ToolCalls = append(msg.ToolCalls,
				openai.ToolCall{ID: "call-2", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "getWorkoutHistory", Arguments: `{}`}},
				openai.ToolCall{ID: "call-3", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "getExerciseLibrary", Arguments: `{}`}},
			)
			return resp, nil
		case 3:
			return toolCallResponse("call-4", "prescribeWorkout", `{"sessionName":"Push","exercises":[{"exerciseId":"barbell_bench_press","exerciseName":"Barbell Bench Press","targetSets":3,"repRangeMin":6,"repRangeMax":10,"rirTarget":2,"restSeconds":120}]}`), nil
		default:
			return textResponse("Push day is ready."), nil
		}
	}
}

func TestRunnerOrderFollowsRequestOrder(t *testing.T) {
	r := NewRunner(batchedReads(), nil, RunnerConfig{Model: "coach", MaxSteps: 7}, discardLogger())
	order := []string{"getUserProfile", "getWorkoutHistory", "getExerciseLibrary", "prescribeWorkout"}
	s := Scenario{
		ID:       "order",
		Name:     "order",
		Category: CategoryPolicy,
		Messages: []Message{{Role: "user", Content: "plan my push day"}},
		Expect:   Expectation{ToolCalls: order, Order: order},
	}

	for range 100 {
		res := r.RunScenario(context.Background(), s)
		require.True(t, res.Passed, "error=%q outOfOrder=%v", res.Error, res.ToolCheck.OutOfOrder)
		names := make([]string, len(res.ToolCalls))
		for i, c := range res.ToolCalls {
			names[i] = c.Tool
		}
		require.Equal(t, order, names)
	}
}

func TestRunnerTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	blocking := clientFunc(func(ctx context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		<-ctx.Done()
		return openai.ChatCompletionResponse{}, ctx.Err()
	})
	r := NewRunner(blocking, nil, RunnerConfig{Model: "coach", MaxSteps: 5, Timeout: 50 * time.Millisecond}, discardLogger())

	res := r.RunScenario(context.Background(), volumeScenario("slow", "good"))
	assert.False(t, res.Passed)
	assert.NotEqual(t, PhaseReport, res.Phase)
	assert.Contains(t, res.Error, "timed out")
	assert.GreaterOrEqual(t, res.Elapsed, 50*time.Millisecond)
}

func TestRunnerTransportError(t *testing.T) {
	failing := clientFunc(func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, assert.AnError
	})
	r := NewRunner(failing, nil, RunnerConfig{Model: "coach", MaxSteps: 5}, discardLogger())

	res := r.RunScenario(context.Background(), volumeScenario("a", "good"))
	assert.False(t, res.Passed)
	assert.Equal(t, PhaseRun, res.Phase)
	assert.NotEmpty(t, res.Error)
}

func TestRunnerSystemPromptCarriesActiveSession(t *testing.T) {
	var system string
	client := clientFunc(func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		system = req.Messages[0].Content
		return textResponse("ok"), nil
	})
	r := NewRunner(client, nil, RunnerConfig{Model: "coach", MaxSteps: 5}, discardLogger())

	s := volumeScenario("a", "hi")
	s.Expect = Expectation{}
	s.Fixtures.ActiveSession = nil
	res := r.RunScenario(context.Background(), s)
	assert.True(t, res.Passed, res.Error)
	assert.Contains(t, system, "No workout session is in progress")
	assert.Contains(t, system, "Today is ")
}
