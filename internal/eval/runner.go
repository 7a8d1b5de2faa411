package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/meltforce/trainergpt/internal/agent"
	"github.com/meltforce/trainergpt/internal/coach"
)

// ErrScenarioTimeout marks a scenario that exceeded its wall-clock budget.
var ErrScenarioTimeout = errors.New("scenario timed out")

// Phase is a step of the per-scenario state machine.
type Phase string

const (
	PhaseSetup  Phase = "setup"
	PhaseRun    Phase = "run"
	PhaseJudge  Phase = "judge"
	PhaseReport Phase = "report"
)

// Result is the graded outcome of one scenario. Deterministic checks and
// judged assertions are kept apart so a failure names its check.
type Result struct {
	ScenarioID     string        `json:"scenarioId"`
	Name           string        `json:"name"`
	Category       Category      `json:"category"`
	Passed         bool          `json:"passed"`
	Phase          Phase         `json:"phase"`
	Error          string        `json:"error,omitempty"`
	ElapsedMS      int64         `json:"elapsedMs"`
	Response       string        `json:"response"`
	StepsExhausted bool          `json:"stepsExhausted"`
	ToolCalls      []CallRecord  `json:"toolCalls"`
	ToolCheck      ToolCheck     `json:"toolCheck"`
	TextCheck      TextCheck     `json:"textCheck"`
	Assertions     []Verdict     `json:"assertions"`
	Elapsed        time.Duration `json:"-"`
}

// AssertionsPassed counts judged assertions that passed.
func (r Result) AssertionsPassed() int {
	n := 0
	for _, v := range r.Assertions {
		if v.Passed {
			n++
		}
	}
	return n
}

// RunnerConfig holds the runner's limits.
type RunnerConfig struct {
	Model       string
	Temperature float32
	MaxSteps    int
	Timeout     time.Duration
	Concurrency int
	Policy      string
}

// Runner drives scenarios through Setup, Run, Judge and Report.
type Runner struct {
	client agent.ChatClient
	judge  *Judge
	cfg    RunnerConfig
	log    *slog.Logger
	now    func() time.Time
}

// NewRunner creates a runner. An empty policy uses the built-in one.
func NewRunner(client agent.ChatClient, judge *Judge, cfg RunnerConfig, log *slog.Logger) *Runner {
	if cfg.Policy == "" {
		cfg.Policy = coach.Policy()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{client: client, judge: judge, cfg: cfg, log: log, now: time.Now}
}

// Run executes scenarios with bounded concurrency. Results keep input order;
// a failing scenario never stops the others.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, len(scenarios))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, s := range scenarios {
		g.Go(func() error {
			results[i] = r.RunScenario(ctx, s)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RunScenario runs one scenario under the configured timeout.
func (r *Runner) RunScenario(ctx context.Context, s Scenario) Result {
	start := time.Now()
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	done := make(chan Result, 1)
	go func() {
		done <- r.execute(ctx, s)
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Result{ScenarioID: s.ID, Name: s.Name, Category: s.Category, Phase: PhaseRun}
	}
	if err := ctx.Err(); err != nil && res.Phase != PhaseReport {
		res.Passed = false
		if errors.Is(err, context.DeadlineExceeded) {
			res.Error = fmt.Sprintf("%v after %s", ErrScenarioTimeout, r.cfg.Timeout)
		} else {
			res.Error = err.Error()
		}
		r.log.Warn("scenario aborted", "scenario", s.ID, "phase", res.Phase, "error", res.Error)
	}
	res.Elapsed = time.Since(start)
	res.ElapsedMS = res.Elapsed.Milliseconds()
	return res
}

func (r *Runner) execute(ctx context.Context, s Scenario) Result {
	res := Result{ScenarioID: s.ID, Name: s.Name, Category: s.Category, Phase: PhaseSetup}

	h, err := NewHarness(s.Fixtures, r.now(), r.log)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	a, err := agent.New(r.client, h, r.cfg.Model, r.log,
		agent.WithMaxSteps(r.cfg.MaxSteps),
		agent.WithTemperature(r.cfg.Temperature),
		agent.WithToolCallHook(h.Record),
	)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Phase = PhaseRun
	system := coach.WithContext(r.cfg.Policy, coach.SessionContext{Now: r.now(), ActiveSession: h.ActiveSessionName()})
	tr, err := a.Run(ctx, system, conversation(s.Messages))
	res.ToolCalls = h.CallLog().Calls()
	if err != nil {
		res.Error = err.Error()
		r.log.Error("scenario run failed", "scenario", s.ID, "error", err)
		return res
	}
	res.Response = tr.Text
	res.StepsExhausted = tr.StepsExhausted

	res.Phase = PhaseJudge
	names := h.CallLog().Names()
	res.ToolCheck = CheckToolCalls(s.Expect.ToolCalls, s.Expect.MustNotCall, names)
	res.ToolCheck.CheckOrder(s.Expect.Order, names)
	res.TextCheck = CheckText(tr.Text, s.Expect.ResponseContains, s.Expect.ResponseNotContains)
	res.TextCheck.CheckLength(s.Expect.MaxWords)
	switch {
	case len(s.Expect.Assertions) == 0:
	case r.judge == nil:
		for _, a := range s.Expect.Assertions {
			res.Assertions = append(res.Assertions, Verdict{Assertion: a, Reasoning: "no judge configured", Error: "no judge"})
		}
	default:
		res.Assertions = r.judge.EvaluateAll(ctx, s.Expect.Assertions, tr.Text, res.ToolCalls)
	}

	res.Phase = PhaseReport
	res.Passed = res.ToolCheck.Passed && res.TextCheck.Passed && res.AssertionsPassed() == len(res.Assertions)
	return res
}

func conversation(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
