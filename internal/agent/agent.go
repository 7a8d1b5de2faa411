// Package agent runs the bounded tool-calling loop between the model and the
// tool catalogue.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/meltforce/trainergpt/internal/metrics"
	"github.com/meltforce/trainergpt/internal/tools"
)

// DefaultMaxSteps bounds model calls per conversation turn in production.
const DefaultMaxSteps = 5

// ErrNoChoices is returned when the model response carries no message.
var ErrNoChoices = errors.New("model returned no choices")

// Executor runs tools. *tools.Catalogue satisfies it.
type Executor interface {
	Call(ctx context.Context, name string, args json.RawMessage) tools.Result
	Definitions() []mcp.Tool
}

// ToolCall is one executed tool call.
type ToolCall struct {
	ID       string          `json:"id"`
	Step     int             `json:"step"`
	Name     string          `json:"name"`
	Args     json.RawMessage `json:"args"`
	Result   tools.Result    `json:"result"`
	Duration time.Duration   `json:"durationNs"`
}

// Step is one model call and the tool calls it requested.
type Step struct {
	Index int        `json:"index"`
	Text  string     `json:"text,omitempty"`
	Calls []ToolCall `json:"calls,omitempty"`
}

// Transcript records a run. Text is the final reply, possibly empty when
// the step cap was reached.
type Transcript struct {
	Steps          []Step                         `json:"steps"`
	Calls          []ToolCall                     `json:"calls"`
	Text           string                         `json:"text"`
	StepsExhausted bool                           `json:"stepsExhausted"`
	Messages       []openai.ChatCompletionMessage `json:"-"`
}

// ToolNames returns the called tools in order.
func (t *Transcript) ToolNames() []tools.Name {
	out := make([]tools.Name, 0, len(t.Calls))
	for _, c := range t.Calls {
		out = append(out, tools.Name(c.Name))
	}
	return out
}

// Agent drives a model through tool calls until it answers in text.
type Agent struct {
	client      ChatClient
	exec        Executor
	model       string
	maxSteps    int
	temperature float32
	parallel    int
	onToolCall  func(ToolCall)
	tools       []openai.Tool
	log         *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxSteps sets the model call cap.
func WithMaxSteps(n int) Option {
	return func(a *Agent) { a.maxSteps = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(a *Agent) { a.temperature = t }
}

// WithParallelTools bounds how many tool calls of one step run at once.
func WithParallelTools(n int) Option {
	return func(a *Agent) { a.parallel = n }
}

// WithToolCallHook registers fn to observe every tool call, in request order.
func WithToolCallHook(fn func(ToolCall)) Option {
	return func(a *Agent) { a.onToolCall = fn }
}

// New creates an agent. The executor's definitions are offered to the model
// as functions.
func New(client ChatClient, exec Executor, model string, log *slog.Logger, opts ...Option) (*Agent, error) {
	a := &Agent{
		client:   client,
		exec:     exec,
		model:    model,
		maxSteps: DefaultMaxSteps,
		parallel: 4,
		log:      log,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxSteps < 1 {
		return nil, fmt.Errorf("max steps must be at least 1, got %d", a.maxSteps)
	}
	defs, err := FunctionTools(exec.Definitions())
	if err != nil {
		return nil, err
	}
	a.tools = defs
	return a, nil
}

// FunctionTools converts tool schemas to OpenAI function definitions.
func FunctionTools(defs []mcp.Tool) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		params, err := json.Marshal(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encoding schema for %s: %w", d.Name, err)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	return out, nil
}

// UserMessages wraps texts as user messages.
func UserMessages(texts ...string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(texts))
	for _, t := range texts {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t})
	}
	return out
}

// Run answers the conversation in history under the system prompt. Tool
// failures are fed back to the model; only model transport errors are returned.
func (a *Agent) Run(ctx context.Context, system string, history []openai.ChatCompletionMessage) (*Transcript, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	msgs = append(msgs, history...)

	tr := &Transcript{}
	defer func() {
		tr.Messages = msgs
		metrics.AgentSteps.Observe(float64(len(tr.Steps)))
	}()

	for step := 1; step <= a.maxSteps; step++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       a.model,
			Messages:    msgs,
			Tools:       a.tools,
			Temperature: a.temperature,
		})
		if err != nil {
			return tr, fmt.Errorf("model step %d: %w", step, err)
		}
		if len(resp.Choices) == 0 {
			return tr, fmt.Errorf("model step %d: %w", step, ErrNoChoices)
		}

		msg := resp.Choices[0].Message
		msgs = append(msgs, msg)
		tr.Text = msg.Content
		st := Step{Index: step, Text: msg.Content}

		if len(msg.ToolCalls) == 0 {
			tr.Steps = append(tr.Steps, st)
			return tr, nil
		}

		st.Calls = a.runTools(ctx, step, msg.ToolCalls)
		for _, c := range st.Calls {
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    c.Result.JSON(),
				Name:       c.Name,
				ToolCallID: c.ID,
			})
			if a.onToolCall != nil {
				a.onToolCall(c)
			}
		}
		tr.Steps = append(tr.Steps, st)
		tr.Calls = append(tr.Calls, st.Calls...)
	}

	a.log.Warn("agent step cap reached", "max_steps", a.maxSteps, "tool_calls", len(tr.Calls))
	tr.StepsExhausted = true
	return tr, nil
}

// runTools executes one step's calls concurrently and returns them in
// request order once all have finished.
func (a *Agent) runTools(ctx context.Context, step int, calls []openai.ToolCall) []ToolCall {
	out := make([]ToolCall, len(calls))
	var g errgroup.Group
	g.SetLimit(max(1, a.parallel))
	for i, tc := range calls {
		g.Go(func() error {
			start := time.Now()
			res := a.exec.Call(ctx, tc.Function.Name, json.RawMessage(tc.Function.Arguments))
			out[i] = ToolCall{
				ID:       tc.ID,
				Step:     step,
				Name:     tc.Function.Name,
				Args:     recordedArgs(tc.Function.Arguments),
				Result:   res,
				Duration: time.Since(start),
			}
			a.log.Debug("agent tool call", "step", step, "tool", tc.Function.Name, "ok", res.OK())
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// recordedArgs keeps the transcript encodable when the model sends empty or
// malformed arguments.
func recordedArgs(raw string) json.RawMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}
