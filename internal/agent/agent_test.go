package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltforce/trainergpt/internal/tools"
)

// scriptedClient replays responses in order and records every request.
type scriptedClient struct {
	mu        sync.Mutex
	responses []openai.ChatCompletionResponse
	err       error
	requests  []openai.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	if len(c.responses) == 0 {
		return text("done"), nil
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	return r, nil
}

func text(s string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s},
	}}}
}

func toolCalls(calls ...openai.ToolCall) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls},
	}}}
}

func call(id, name, args string) openai.ToolCall {
	return openai.ToolCall{ID: id, Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: name, Arguments: args}}
}

// fakeExecutor answers every tool with its own name.
type fakeExecutor struct {
	mu    sync.Mutex
	names []string
	wait  func(name string)
}

func (e *fakeExecutor) Call(_ context.Context, name string, _ json.RawMessage) tools.Result {
	if e.wait != nil {
		e.wait(name)
	}
	e.mu.Lock()
	e.names = append(e.names, name)
	e.mu.Unlock()
	if _, ok := tools.ParseName(name); !ok {
		return tools.Failed("unknown tool " + name)
	}
	return tools.Result{Value: map[string]string{"tool": name}}
}

func (e *fakeExecutor) Definitions() []mcp.Tool {
	return tools.Definitions()
}

func newTestAgent(t *testing.T, c ChatClient, e Executor, opts ...Option) *Agent {
	t.Helper()
	a, err := New(c, e, "test-model", slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	require.NoError(t, err)
	return a
}

func TestRun_TextOnly(t *testing.T) {
	c := &scriptedClient{responses: []openai.ChatCompletionResponse{text("Hi there")}}
	tr, err := newTestAgent(t, c, &fakeExecutor{}).Run(context.Background(), "policy", UserMessages("hello"))
	require.NoError(t, err)
	assert.Equal(t, "Hi there", tr.Text)
	assert.Len(t, tr.Steps, 1)
	assert.Empty(t, tr.Calls)
	assert.False(t, tr.StepsExhausted)

	require.Len(t, c.requests, 1)
	req := c.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "policy", req.Messages[0].Content)
	assert.Len(t, req.Tools, len(tools.Names))
}

func TestRun_ToolResultFedBack(t *testing.T) {
	c := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCalls(call("c1", "getVolumeThisWeek", `{}`)),
		text("Chest is at 12 sets."),
	}}
	var observed []string
	a := newTestAgent(t, c, &fakeExecutor{}, WithToolCallHook(func(tc ToolCall) { observed = append(observed, tc.Name) }))

	tr, err := a.Run(context.Background(), "policy", UserMessages("How's my volume?"))
	require.NoError(t, err)
	assert.Equal(t, "Chest is at 12 sets.", tr.Text)
	assert.Equal(t, []tools.Name{tools.GetVolumeThisWeek}, tr.ToolNames())
	assert.Equal(t, []string{"getVolumeThisWeek"}, observed)

	require.Len(t, c.requests, 2)
	second := c.requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "c1", last.ToolCallID)
	assert.JSONEq(t, `{"tool":"getVolumeThisWeek"}`, last.Content)
}

func TestRun_ParallelCallsJoinedInOrder(t *testing.T) {
	var arrived atomic.Int32
	barrier := make(chan struct{})
	var sequential atomic.Bool
	e := &fakeExecutor{wait: func(string) {
		if arrived.Add(1) == 2 {
			close(barrier)
		}
		select {
		case <-barrier:
		case <-time.After(2 * time.Second):
			sequential.Store(true)
		}
	}}
	c := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCalls(call("a", "getUserProfile", ``), call("b", "getVolumeThisWeek", `{"muscleGroup":"chest"}`)),
		text("ok"),
	}}

	tr, err := newTestAgent(t, c, e).Run(context.Background(), "policy", UserMessages("plan"))
	require.NoError(t, err)
	assert.False(t, sequential.Load(), "calls of one step should run concurrently")
	require.Len(t, tr.Calls, 2)
	assert.Equal(t, "a", tr.Calls[0].ID)
	assert.Equal(t, "b", tr.Calls[1].ID)
	assert.JSONEq(t, `{}`, string(tr.Calls[0].Args))

	msgs := c.requests[1].Messages
	assert.Equal(t, "a", msgs[len(msgs)-2].ToolCallID)
	assert.Equal(t, "b", msgs[len(msgs)-1].ToolCallID)
}

func TestRun_StepCap(t *testing.T) {
	var responses []openai.ChatCompletionResponse
	for i := 0; i < 10; i++ {
		responses = append(responses, toolCalls(call("x", "getUserProfile", `{}`)))
	}
	c := &scriptedClient{responses: responses}

	tr, err := newTestAgent(t, c, &fakeExecutor{}, WithMaxSteps(3)).Run(context.Background(), "policy", UserMessages("loop"))
	require.NoError(t, err)
	assert.True(t, tr.StepsExhausted)
	assert.Len(t, c.requests, 3)
	assert.Len(t, tr.Calls, 3)
	assert.Empty(t, tr.Text)
}

func TestRun_ToolFailureDoesNotStopLoop(t *testing.T) {
	c := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCalls(call("1", "dropTables", `{}`)),
		text("Sorry, that did not work."),
	}}
	tr, err := newTestAgent(t, c, &fakeExecutor{}).Run(context.Background(), "policy", UserMessages("x"))
	require.NoError(t, err)
	require.Len(t, tr.Calls, 1)
	assert.False(t, tr.Calls[0].Result.OK())
	assert.Equal(t, "Sorry, that did not work.", tr.Text)

	raw, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"success":false`)
}

func TestRun_MalformedArgumentsRecorded(t *testing.T) {
	c := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCalls(call("1", "logWorkoutSet", `{"exerciseName":`)),
		text("retry"),
	}}
	tr, err := newTestAgent(t, c, &fakeExecutor{}).Run(context.Background(), "policy", UserMessages("x"))
	require.NoError(t, err)
	_, err = json.Marshal(tr)
	assert.NoError(t, err)
}

func TestRun_TransportError(t *testing.T) {
	c := &scriptedClient{err: errors.New("503 service unavailable")}
	_, err := newTestAgent(t, c, &fakeExecutor{}).Run(context.Background(), "policy", UserMessages("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestRun_NoChoices(t *testing.T) {
	c := &scriptedClient{responses: []openai.ChatCompletionResponse{{}}}
	_, err := newTestAgent(t, c, &fakeExecutor{}).Run(context.Background(), "policy", UserMessages("x"))
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestNew_InvalidMaxSteps(t *testing.T) {
	_, err := New(&scriptedClient{}, &fakeExecutor{}, "m", slog.New(slog.NewTextHandler(io.Discard, nil)), WithMaxSteps(0))
	assert.Error(t, err)
}

func TestFunctionTools(t *testing.T) {
	defs, err := FunctionTools(tools.Definitions())
	require.NoError(t, err)
	require.Len(t, defs, len(tools.Names))
	assert.Equal(t, openai.ToolTypeFunction, defs[0].Type)

	var schema map[string]any
	raw, ok := defs[2].Function.Parameters.(json.RawMessage)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"exerciseName"}, schema["required"])
}

func TestNewRateLimited(t *testing.T) {
	inner := &scriptedClient{}
	assert.Same(t, ChatClient(inner), NewRateLimited(inner, 0))

	limited := NewRateLimited(inner, 1000)
	_, err := limited.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := NewRateLimited(inner, 0.001)
	_, _ = slow.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{})
	_, err = slow.CreateChatCompletion(ctx, openai.ChatCompletionRequest{})
	assert.Error(t, err)
}
