package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
)

// CategorySummary counts results in one category.
type CategorySummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
}

// Summary aggregates a run.
type Summary struct {
	Total             int                          `json:"total"`
	Passed            int                          `json:"passed"`
	Failed            int                          `json:"failed"`
	ByCategory        map[Category]CategorySummary `json:"byCategory"`
	AssertionsTotal   int                          `json:"assertionsTotal"`
	AssertionsPassed  int                          `json:"assertionsPassed"`
	AssertionPassRate float64                      `json:"assertionPassRate"`
}

// Summarize counts passes overall, per category and per judged assertion.
// The pass rate is 1 when no assertions were judged.
func Summarize(results []Result) Summary {
	s := Summary{ByCategory: map[Category]CategorySummary{}}
	for _, r := range results {
		s.Total++
		cs := s.ByCategory[r.Category]
		cs.Total++
		if r.Passed {
			s.Passed++
			cs.Passed++
		}
		s.ByCategory[r.Category] = cs
		s.AssertionsTotal += len(r.Assertions)
		s.AssertionsPassed += r.AssertionsPassed()
	}
	s.Failed = s.Total - s.Passed
	s.AssertionPassRate = 1
	if s.AssertionsTotal > 0 {
		s.AssertionPassRate = float64(s.AssertionsPassed) / float64(s.AssertionsTotal)
	}
	return s
}

// Report is one eval run, as written to the results artifact.
type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	Model      string    `json:"model"`
	JudgeModel string    `json:"judgeModel"`
	Results    []Result  `json:"results"`
	Summary    Summary   `json:"summary"`
}

// AllPassed reports whether every scenario passed.
func (r Report) AllPassed() bool {
	return len(r.Results) > 0 && r.Summary.Failed == 0
}

// ArtifactName is the results file name for a run started at t.
func ArtifactName(t time.Time) string {
	return "eval-results-" + t.Format("20060102_150405") + ".json"
}

// WriteArtifact writes the report as JSON into dir and returns the path.
func WriteArtifact(dir string, rep Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	path := filepath.Join(dir, ArtifactName(rep.StartedAt))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("writing results: %w", err)
	}
	return path, nil
}

// Persist writes the artifact and, when h is set, records the run in
// history. Both are attempted; their errors are combined.
func Persist(dir string, rep Report, h *History) (string, error) {
	path, err := WriteArtifact(dir, rep)
	if h != nil {
		err = multierr.Append(err, h.Record(rep))
	}
	return path, err
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4"))
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E74C3C"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#16858E")).Padding(0, 1)
)

func status(ok bool) string {
	if ok {
		return passStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}

// PrintReport writes the human-readable report. previous maps scenario ids
// to their last recorded outcome and may be nil.
func PrintReport(w io.Writer, rep Report, previous map[string]bool) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("TrainerGPT eval run %s (%s)", rep.RunID, rep.Model)))
	fmt.Fprintln(w)

	for _, r := range rep.Results {
		line := fmt.Sprintf("%s %s %s %s", status(r.Passed), r.ScenarioID, r.Name, mutedStyle.Render(fmt.Sprintf("[%s, %dms]", r.Category, r.ElapsedMS)))
		if was, ok := previous[r.ScenarioID]; ok && was && !r.Passed {
			line += " " + warnStyle.Render("REGRESSION")
		}
		fmt.Fprintln(w, line)
		printDiagnostics(w, r)
	}

	s := rep.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Scenarios: %d passed, %d failed, %d total\n", s.Passed, s.Failed, s.Total)
	for _, c := range Categories {
		if cs, ok := s.ByCategory[c]; ok {
			fmt.Fprintf(&b, "  %-14s %d/%d\n", c, cs.Passed, cs.Total)
		}
	}
	fmt.Fprintf(&b, "Policy assertions: %d/%d (%.0f%%)", s.AssertionsPassed, s.AssertionsTotal, s.AssertionPassRate*100)
	fmt.Fprintln(w)
	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

func printDiagnostics(w io.Writer, r Result) {
	indent := "    "
	if r.Error != "" {
		fmt.Fprintf(w, "%serror (%s): %s\n", indent, r.Phase, r.Error)
	}
	if r.StepsExhausted {
		fmt.Fprintf(w, "%sstep cap reached\n", indent)
	}
	if !r.ToolCheck.Passed && r.Error == "" {
		if len(r.ToolCheck.Missing) > 0 {
			fmt.Fprintf(w, "%stool check: missing %s\n", indent, strings.Join(r.ToolCheck.Missing, ", "))
		}
		if len(r.ToolCheck.Unexpected) > 0 {
			fmt.Fprintf(w, "%stool check: should not call %s\n", indent, strings.Join(r.ToolCheck.Unexpected, ", "))
		}
		if len(r.ToolCheck.OutOfOrder) > 0 {
			fmt.Fprintf(w, "%stool check: expected order %s\n", indent, strings.Join(r.ToolCheck.OutOfOrder, " -> "))
		}
	}
	if len(r.TextCheck.Missing) > 0 {
		fmt.Fprintf(w, "%stext check: missing %q\n", indent, r.TextCheck.Missing)
	}
	if len(r.TextCheck.Forbidden) > 0 {
		fmt.Fprintf(w, "%stext check: contains forbidden %q\n", indent, r.TextCheck.Forbidden)
	}
	if r.TextCheck.MaxWords > 0 && r.TextCheck.Words > r.TextCheck.MaxWords {
		fmt.Fprintf(w, "%stext check: %d words, limit %d\n", indent, r.TextCheck.Words, r.TextCheck.MaxWords)
	}
	for _, v := range r.Assertions {
		if v.Passed {
			continue
		}
		fmt.Fprintf(w, "%sjudged: %s %s\n", indent, status(false), v.Assertion)
		if v.Reasoning != "" {
			fmt.Fprintf(w, "%s  %s\n", indent, mutedStyle.Render(v.Reasoning))
		}
	}
}
