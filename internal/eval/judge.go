package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/meltforce/trainergpt/internal/agent"
)

// Verdict is the judged outcome of one policy assertion.
type Verdict struct {
	Assertion string `json:"assertion"`
	Passed    bool   `json:"passed"`
	Reasoning string `json:"reasoning"`
	Error     string `json:"error,omitempty"`
}

const judgePrompt = `You are grading a fitness coaching assistant. Decide whether the assertion holds for the assistant's final response and the tools it called.

Assertion:
%s

Tool calls, in order:
%s

Final response:
"""
%s
"""

Answer in exactly this format:
VERDICT: TRUE or FALSE
REASONING: one sentence`

var (
	verdictRe   = regexp.MustCompile(`(?i)VERDICT\s*:\s*\**\s*(TRUE|FALSE)\b`)
	reasoningRe = regexp.MustCompile(`(?is)REASONING\s*:\s*(.+)`)
)

// ParseVerdict extracts the verdict and reasoning from judge output. ok is
// false when no verdict token is present; the verdict is then false and the
// raw text is returned as reasoning.
func ParseVerdict(text string) (passed bool, reasoning string, ok bool) {
	m := verdictRe.FindStringSubmatch(text)
	if m == nil {
		return false, strings.TrimSpace(text), false
	}
	passed = strings.EqualFold(m[1], "TRUE")
	if r := reasoningRe.FindStringSubmatch(text); r != nil {
		reasoning = strings.TrimSpace(r[1])
	}
	return passed, reasoning, true
}

// Judge grades assertions with a second model.
type Judge struct {
	client      agent.ChatClient
	model       string
	concurrency int
	log         *slog.Logger
}

// NewJudge creates a judge. concurrency bounds parallel assertion checks.
func NewJudge(client agent.ChatClient, model string, concurrency int, log *slog.Logger) *Judge {
	return &Judge{client: client, model: model, concurrency: max(1, concurrency), log: log}
}

// Evaluate grades one assertion. Any failure to obtain a verdict is a fail.
func (j *Judge) Evaluate(ctx context.Context, assertion, response string, calls []CallRecord) Verdict {
	v := Verdict{Assertion: assertion}
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(judgePrompt, assertion, formatCalls(calls), response)},
		},
		Temperature: 0,
	})
	if err != nil {
		v.Error = err.Error()
		v.Reasoning = "judge call failed"
		return v
	}
	if len(resp.Choices) == 0 {
		v.Error = agent.ErrNoChoices.Error()
		v.Reasoning = "judge returned no answer"
		return v
	}

	text := resp.Choices[0].Message.Content
	passed, reasoning, ok := ParseVerdict(text)
	if !ok {
		j.log.Warn("unparseable judge verdict", "assertion", assertion)
	}
	v.Passed, v.Reasoning = passed, reasoning
	return v
}

// EvaluateAll grades assertions concurrently and returns verdicts in input order.
func (j *Judge) EvaluateAll(ctx context.Context, assertions []string, response string, calls []CallRecord) []Verdict {
	out := make([]Verdict, len(assertions))
	var g errgroup.Group
	g.SetLimit(j.concurrency)
	for i, a := range assertions {
		g.Go(func() error {
			out[i] = j.Evaluate(ctx, a, response, calls)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func formatCalls(calls []CallRecord) string {
	if len(calls) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, c := range calls {
		args, _ := json.Marshal(c.Args)
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, c.Tool, args)
	}
	return strings.TrimRight(b.String(), "\n")
}
