package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/meltforce/trainergpt/internal/agent"
	"github.com/meltforce/trainergpt/internal/coach"
	"github.com/meltforce/trainergpt/internal/config"
	"github.com/meltforce/trainergpt/internal/eval"
)

type options struct {
	configPath string
	category   string
	list       bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "trainergpt-eval [scenario-id]",
		Short: "Run the TrainerGPT coaching eval scenarios",
		Long: `Runs scripted coaching conversations against the configured model with
fixture data, checks tool usage and reply text, and asks a judge model to
grade the policy assertions. With no arguments every scenario runs.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return run(cmd.Context(), opts, id, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to config file (defaults and TRAINERGPT_* env when empty)")
	cmd.Flags().StringVar(&opts.category, "category", "", "run only this category (policy, tool-usage, edge-case, communication)")
	cmd.Flags().BoolVar(&opts.list, "list", false, "list scenarios and exit")
	return cmd
}

func loadScenarios(dir string) ([]eval.Scenario, error) {
	if dir == "" {
		return eval.Builtin()
	}
	return eval.LoadScenarios(os.DirFS(dir))
}

func run(ctx context.Context, opts options, id string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	log := cfg.Log.NewLogger(stderr)

	category := eval.Category(opts.category)
	if category != "" && !category.Valid() {
		return fmt.Errorf("unknown category %q", opts.category)
	}

	all, err := loadScenarios(cfg.Eval.ScenarioDir)
	if err != nil {
		return err
	}
	selected, err := eval.Select(all, id, category)
	if err != nil {
		return err
	}

	if opts.list {
		printScenarios(stdout, selected)
		return nil
	}

	if err := cfg.ValidateLLM(); err != nil {
		return err
	}
	policy, err := coach.Load(cfg.Agent.PolicyFile)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := agent.NewRateLimited(agent.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL), cfg.LLM.RequestsPerSecond)
	judgeModel := cfg.LLM.JudgeModel
	if judgeModel == "" {
		judgeModel = cfg.LLM.Model
	}
	judge := eval.NewJudge(client, judgeModel, cfg.Eval.JudgeConcurrency, log)
	runner := eval.NewRunner(client, judge, eval.RunnerConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxSteps:    cfg.Eval.MaxSteps,
		Timeout:     cfg.Eval.ScenarioTimeout,
		Concurrency: cfg.Eval.Concurrency,
		Policy:      policy,
	}, log)

	hist, previous := openHistory(cfg.Eval.HistoryDir, log)
	if hist != nil {
		defer hist.Close()
	}

	log.Info("eval run starting", "scenarios", len(selected), "model", cfg.LLM.Model, "judge", judgeModel)
	started := time.Now()
	results := runner.Run(ctx, selected)

	rep := eval.Report{
		RunID:      uuid.NewString(),
		StartedAt:  started,
		Model:      cfg.LLM.Model,
		JudgeModel: judgeModel,
		Results:    results,
		Summary:    eval.Summarize(results),
	}
	eval.PrintReport(stdout, rep, previous)

	path, err := eval.Persist(cfg.Eval.OutputDir, rep, hist)
	if err != nil {
		log.Error("saving results", "error", err)
	}
	if path != "" {
		fmt.Fprintf(stdout, "\nResults written to %s\n", path)
	}

	if !rep.AllPassed() {
		return errFailed
	}
	return nil
}

// openHistory returns the run history and the previous outcome of every
// scenario. A history that cannot be opened only disables regression marks.
func openHistory(dir string, log *slog.Logger) (*eval.History, map[string]bool) {
	if dir == "" {
		return nil, nil
	}
	h, err := eval.OpenHistory(dir)
	if err != nil {
		log.Warn("run history unavailable", "error", err)
		return nil, nil
	}
	previous, err := h.LastOutcomes()
	if err != nil {
		log.Warn("reading run history", "error", err)
	}
	return h, previous
}

func printScenarios(w io.Writer, scenarios []eval.Scenario) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tNAME")
	for _, s := range scenarios {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Category, s.Name)
	}
	tw.Flush()
}
