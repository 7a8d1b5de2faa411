package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/trainergpt/internal/agent"
	"github.com/meltforce/trainergpt/internal/models"
	"github.com/meltforce/trainergpt/internal/tools"
	"github.com/meltforce/trainergpt/internal/training"
)

// CallRecord is one tool invocation seen by the harness.
type CallRecord struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// CallLog is the ordered, concurrency-safe record of tool invocations.
type CallLog struct {
	mu    sync.Mutex
	calls []CallRecord
}

func (l *CallLog) add(name string, args json.RawMessage) {
	if len(strings.TrimSpace(string(args))) == 0 || !json.Valid(args) {
		quoted, _ := json.Marshal(string(args))
		args = quoted
	}
	l.mu.Lock()
	l.calls = append(l.calls, CallRecord{Tool: name, Args: args})
	l.mu.Unlock()
}

// Calls returns a copy of the log.
func (l *CallLog) Calls() []CallRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CallRecord, len(l.calls))
	copy(out, l.calls)
	return out
}

// Names returns the called tool names in order.
func (l *CallLog) Names() []string {
	calls := l.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Tool
	}
	return out
}

// Harness owns one scenario's fixtures, the mutable session state the
// fixture backend builds up, and the call log. It is the agent's executor:
// calls are dispatched through the real catalogue and recorded by Record,
// which the runner installs as the agent's tool-call hook.
type Harness struct {
	fixtures  Fixtures
	library   []models.Exercise
	now       time.Time
	log       CallLog
	catalogue *tools.Catalogue

	mu     sync.Mutex
	active *models.ActiveSession
	logged []models.Set
	volume map[string]int
}

// NewHarness builds a harness over a scenario's fixtures.
func NewHarness(f Fixtures, now time.Time, log *slog.Logger) (*Harness, error) {
	lib := f.Exercises
	if len(lib) == 0 {
		var err error
		if lib, err = DefaultLibrary(); err != nil {
			return nil, err
		}
	}
	h := &Harness{
		fixtures: f,
		library:  lib,
		now:      now,
		active:   f.ActiveSession,
		volume:   make(map[string]int, len(f.Volume)),
	}
	for g, n := range f.Volume {
		h.volume[g] = n
	}
	h.catalogue = tools.New(&fixtureBackend{h: h}, log)
	return h, nil
}

// Call runs the invocation against the fixtures. Calls from one model step
// run concurrently, so logging happens in Record instead.
func (h *Harness) Call(ctx context.Context, name string, args json.RawMessage) tools.Result {
	return h.catalogue.Call(ctx, name, args)
}

// Record appends a finished call to the log. The agent invokes its hook in
// request order, after each step's calls have joined.
func (h *Harness) Record(c agent.ToolCall) {
	h.log.add(c.Name, c.Args)
}

// Definitions returns the catalogue's tool schemas.
func (h *Harness) Definitions() []mcp.Tool {
	return h.catalogue.Definitions()
}

// CallLog returns the harness call log.
func (h *Harness) CallLog() *CallLog {
	return &h.log
}

// ActiveSessionName is the name of the in-progress session, if any.
func (h *Harness) ActiveSessionName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return ""
	}
	return h.active.SessionName
}

// sessions is the fixture history plus the sets logged during the run.
func (h *Harness) sessions() []models.WorkoutSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.WorkoutSession, 0, len(h.fixtures.History)+1)
	out = append(out, h.fixtures.History...)
	if h.active != nil && len(h.logged) > 0 {
		out = append(out, models.WorkoutSession{
			ID:          h.active.ID,
			Date:        h.now,
			SessionName: h.active.SessionName,
			Sets:        append([]models.Set(nil), h.logged...),
		})
	}
	return out
}

// fixtureBackend serves tools from a Harness.
type fixtureBackend struct {
	h *Harness
}

func (b *fixtureBackend) WorkoutHistory(_ context.Context, args tools.HistoryArgs) (*tools.HistoryResult, error) {
	return tools.HistoryFrom(b.h.sessions(), args, tools.GroupLookupFrom(b.h.library)), nil
}

func (b *fixtureBackend) VolumeThisWeek(_ context.Context, args tools.VolumeArgs) (*tools.VolumeResult, error) {
	b.h.mu.Lock()
	volume := make(map[string]int, len(b.h.volume))
	for g, n := range b.h.volume {
		volume[g] = n
	}
	b.h.mu.Unlock()
	return tools.VolumeFrom(volume, b.h.fixtures.Landmarks, training.WeekStart(b.h.now), args.MuscleGroup), nil
}

func (b *fixtureBackend) ProgressionTrend(_ context.Context, args tools.ProgressionArgs) (*tools.ProgressionResult, error) {
	return tools.ProgressionFrom(b.h.sessions(), args), nil
}

func (b *fixtureBackend) UserProfile(context.Context) (*tools.ProfileResult, error) {
	f := b.h.fixtures
	if f.Profile == nil {
		return tools.EmptyProfile(), nil
	}
	res := &tools.ProfileResult{
		Profile:         f.Profile,
		VolumeLandmarks: f.Landmarks,
		ActiveMesocycle: f.Mesocycle,
	}
	if res.VolumeLandmarks == nil {
		res.VolumeLandmarks = map[string]models.Landmark{}
	}
	rec := models.DeloadRecommendation{}
	if f.Deload != nil {
		rec = *f.Deload
	} else if f.Mesocycle != nil {
		rec.CurrentWeek, rec.TotalWeeks, rec.MesocycleName = f.Mesocycle.CurrentWeek, f.Mesocycle.TotalWeeks, f.Mesocycle.Name
	}
	res.DeloadRecommendation = &rec
	return res, nil
}

func (b *fixtureBackend) ExerciseLibrary(_ context.Context, args tools.LibraryArgs) (*tools.LibraryResult, error) {
	return tools.LibraryFrom(tools.FilterExercises(b.h.library, args.Filter())), nil
}

func (b *fixtureBackend) PrescribeWorkout(_ context.Context, args tools.PrescribeArgs) (*tools.PrescribeResult, error) {
	id := uuid.NewString()
	b.h.mu.Lock()
	b.h.active = &models.ActiveSession{ID: id, Date: b.h.now, SessionName: args.SessionName}
	b.h.logged = nil
	b.h.mu.Unlock()
	return tools.PrescriptionFrom(id, args), nil
}

func (b *fixtureBackend) LogWorkoutSet(_ context.Context, args tools.LogSetArgs) (*tools.LogSetResult, error) {
	ex := findExercise(b.h.library, args.ExerciseName)

	b.h.mu.Lock()
	defer b.h.mu.Unlock()
	if b.h.active == nil {
		return nil, tools.ErrNoActiveSession
	}
	if ex == nil {
		return nil, fmt.Errorf("%q: %w", args.ExerciseName, tools.ErrExerciseNotFound)
	}

	setNumber := 1
	for _, s := range b.h.logged {
		if s.Exercise == ex.Name {
			setNumber++
		}
	}
	set := models.Set{Exercise: ex.Name, SetNumber: setNumber, Weight: args.Weight, Reps: args.Reps, RIR: args.RIR}
	b.h.logged = append(b.h.logged, set)
	if args.RIR == nil || *args.RIR <= 4 {
		for _, g := range ex.MuscleGroups.Primary {
			b.h.volume[g]++
		}
	}
	return tools.LogSetFrom(&models.LoggedSet{
		SessionID: b.h.active.ID,
		Exercise:  ex.Name,
		SetNumber: setNumber,
		Weight:    args.Weight,
		Reps:      args.Reps,
		RIR:       args.RIR,
	}), nil
}

// findExercise matches name as a substring of a library name, or a library
// id, preferring the shortest name.
func findExercise(lib []models.Exercise, name string) *models.Exercise {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	id := strings.ReplaceAll(strings.ToLower(name), " ", "_")
	var best *models.Exercise
	for i := range lib {
		e := &lib[i]
		if !training.ContainsFold(e.Name, name) && e.ID != id {
			continue
		}
		if best == nil || len(e.Name) < len(best.Name) {
			best = e
		}
	}
	return best
}
