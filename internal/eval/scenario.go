// Package eval replays scripted conversations against the agent with fixture
// data and grades the result: deterministic checks on tool calls and reply
// text, then judged checks on natural-language policy assertions.
package eval

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meltforce/trainergpt/internal/models"
	"github.com/meltforce/trainergpt/internal/tools"
)

// Category groups scenarios in reports and on the command line.
type Category string

const (
	CategoryPolicy        Category = "policy"
	CategoryToolUsage     Category = "tool-usage"
	CategoryEdgeCase      Category = "edge-case"
	CategoryCommunication Category = "communication"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryPolicy, CategoryToolUsage, CategoryEdgeCase, CategoryCommunication}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// ErrNoScenarios is returned when a selection matches nothing.
var ErrNoScenarios = errors.New("no matching scenarios")

// Message is one scripted conversation turn.
type Message struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// Fixtures is the data the fixture backend serves for one scenario.
type Fixtures struct {
	Profile       *models.UserProfile          `yaml:"profile"`
	Landmarks     map[string]models.Landmark   `yaml:"landmarks"`
	Mesocycle     *models.Mesocycle            `yaml:"mesocycle"`
	History       []models.WorkoutSession      `yaml:"history"`
	Volume        map[string]int               `yaml:"volume"`
	Exercises     []models.Exercise            `yaml:"exercises"`
	ActiveSession *models.ActiveSession        `yaml:"activeSession"`
	Deload        *models.DeloadRecommendation `yaml:"deload"`
}

// Expectation is what a scenario requires of the run.
type Expectation struct {
	ToolCalls           []string `yaml:"toolCalls" json:"toolCalls"`
	Order               []string `yaml:"order" json:"order"`
	MustNotCall         []string `yaml:"mustNotCall" json:"mustNotCall"`
	ResponseContains    []string `yaml:"responseContains" json:"responseContains"`
	ResponseNotContains []string `yaml:"responseNotContains" json:"responseNotContains"`
	Assertions          []string `yaml:"assertions" json:"assertions"`
	MaxWords            int      `yaml:"maxWords" json:"maxWords"`
}

// Scenario is one scripted conversation with fixtures and expectations.
type Scenario struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Category    Category    `yaml:"category"`
	Description string      `yaml:"description"`
	Messages    []Message   `yaml:"messages"`
	Fixtures    Fixtures    `yaml:"fixtures"`
	Expect      Expectation `yaml:"expect"`
}

func (s Scenario) validate() error {
	if s.ID == "" {
		return errors.New("missing id")
	}
	if !s.Category.Valid() {
		return fmt.Errorf("%s: unknown category %q", s.ID, s.Category)
	}
	if len(s.Messages) == 0 {
		return fmt.Errorf("%s: no messages", s.ID)
	}
	for _, m := range s.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("%s: unsupported message role %q", s.ID, m.Role)
		}
	}
	for _, list := range [][]string{s.Expect.ToolCalls, s.Expect.Order, s.Expect.MustNotCall} {
		for _, n := range list {
			if _, ok := tools.ParseName(n); !ok {
				return fmt.Errorf("%s: unknown tool %q", s.ID, n)
			}
		}
	}
	for name, lm := range s.Fixtures.Landmarks {
		if !lm.Valid() {
			return fmt.Errorf("%s: landmark %s violates mev <= mav <= mrv", s.ID, name)
		}
	}
	return nil
}

//go:embed scenarios/*.yaml
var builtinFS embed.FS

//go:embed library.yaml
var libraryYAML []byte

// Builtin returns the scenarios compiled into the binary, sorted by id.
func Builtin() ([]Scenario, error) {
	sub, err := fs.Sub(builtinFS, "scenarios")
	if err != nil {
		return nil, err
	}
	return LoadScenarios(sub)
}

// LoadScenarios parses every .yaml file in fsys, sorted by id.
func LoadScenarios(fsys fs.FS) ([]Scenario, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading scenarios: %w", err)
	}

	var out []Scenario
	seen := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		b, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		var s Scenario
		if err := yaml.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario %s: %w", e.Name(), err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario id %s", s.ID)
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Select picks one scenario by id, or every scenario in a category, or all
// when both are empty. An empty selection is ErrNoScenarios.
func Select(all []Scenario, id string, category Category) ([]Scenario, error) {
	var out []Scenario
	for _, s := range all {
		switch {
		case id != "" && !strings.EqualFold(s.ID, id):
			continue
		case category != "" && s.Category != category:
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		switch {
		case id != "":
			return nil, fmt.Errorf("scenario %q: %w", id, ErrNoScenarios)
		case category != "":
			return nil, fmt.Errorf("category %q: %w", category, ErrNoScenarios)
		}
		return nil, ErrNoScenarios
	}
	return out, nil
}

// DefaultLibrary returns the exercise library used when a scenario has none.
func DefaultLibrary() ([]models.Exercise, error) {
	var lib []models.Exercise
	if err := yaml.Unmarshal(libraryYAML, &lib); err != nil {
		return nil, fmt.Errorf("parsing exercise library: %w", err)
	}
	return lib, nil
}
