package eval

import (
	"fmt"
	"strings"

	"github.com/meltforce/trainergpt/internal/coach"
	"github.com/meltforce/trainergpt/internal/tools"
)

// ToolCheck is the deterministic verdict on which tools were called.
type ToolCheck struct {
	Passed     bool           `json:"passed"`
	Missing    []string       `json:"missing,omitempty"`
	Unexpected []string       `json:"unexpected,omitempty"`
	OutOfOrder []string       `json:"outOfOrder,omitempty"`
	Observed   map[string]int `json:"observed"`
}

// CheckToolCalls requires each expected name to be called at least as many
// times as it is listed, and every mustNotCall name to be absent.
func CheckToolCalls(expected, mustNotCall, calls []string) ToolCheck {
	observed := map[string]int{}
	for _, c := range calls {
		observed[c]++
	}

	want := map[string]int{}
	var order []string
	for _, e := range expected {
		if want[e] == 0 {
			order = append(order, e)
		}
		want[e]++
	}

	res := ToolCheck{Observed: observed}
	for _, name := range order {
		switch got, need := observed[name], want[name]; {
		case got >= need:
		case need == 1:
			res.Missing = append(res.Missing, name)
		default:
			res.Missing = append(res.Missing, fmt.Sprintf("%s (expected %d, saw %d)", name, need, got))
		}
	}
	for _, name := range mustNotCall {
		if n := observed[name]; n > 0 {
			res.Unexpected = append(res.Unexpected, fmt.Sprintf("%s (called %d)", name, n))
		}
	}
	res.Passed = len(res.Missing) == 0 && len(res.Unexpected) == 0
	return res
}

// CheckOrder fails tc when order is not a subsequence of calls.
func (tc *ToolCheck) CheckOrder(order, calls []string) {
	if len(order) == 0 {
		return
	}
	if !coach.IsSubsequence(toolNames(calls), toolNames(order)) {
		tc.OutOfOrder = order
		tc.Passed = false
	}
}

func toolNames(names []string) []tools.Name {
	out := make([]tools.Name, len(names))
	for i, n := range names {
		out[i] = tools.Name(n)
	}
	return out
}

// TextCheck is the deterministic verdict on the reply text.
type TextCheck struct {
	Passed    bool     `json:"passed"`
	Missing   []string `json:"missing,omitempty"`
	Forbidden []string `json:"forbidden,omitempty"`
	Words     int      `json:"words"`
	MaxWords  int      `json:"maxWords,omitempty"`
}

// CheckText requires every contains string and no notContains string in
// response, ignoring case.
func CheckText(response string, contains, notContains []string) TextCheck {
	lower := strings.ToLower(response)
	var res TextCheck
	for _, s := range contains {
		if !strings.Contains(lower, strings.ToLower(s)) {
			res.Missing = append(res.Missing, s)
		}
	}
	for _, s := range notContains {
		if strings.Contains(lower, strings.ToLower(s)) {
			res.Forbidden = append(res.Forbidden, s)
		}
	}
	res.Words = len(strings.Fields(response))
	res.Passed = len(res.Missing) == 0 && len(res.Forbidden) == 0
	return res
}

// CheckLength fails tc when the reply has more than maxWords words.
func (tc *TextCheck) CheckLength(maxWords int) {
	if maxWords <= 0 {
		return
	}
	tc.MaxWords = maxWords
	if tc.Words > maxWords {
		tc.Passed = false
	}
}
