package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/trainergpt/internal/metrics"
	"github.com/meltforce/trainergpt/internal/storage"
)

// Precondition failures a Backend may return. The catalogue turns them into
// messages the agent can relay.
var (
	ErrNoActiveSession  = storage.ErrNoActiveSession
	ErrExerciseNotFound = storage.ErrExerciseNotFound
)

// Backend executes tools for one user.
type Backend interface {
	WorkoutHistory(ctx context.Context, args HistoryArgs) (*HistoryResult, error)
	VolumeThisWeek(ctx context.Context, args VolumeArgs) (*VolumeResult, error)
	ProgressionTrend(ctx context.Context, args ProgressionArgs) (*ProgressionResult, error)
	UserProfile(ctx context.Context) (*ProfileResult, error)
	ExerciseLibrary(ctx context.Context, args LibraryArgs) (*LibraryResult, error)
	PrescribeWorkout(ctx context.Context, args PrescribeArgs) (*PrescribeResult, error)
	LogWorkoutSet(ctx context.Context, args LogSetArgs) (*LogSetResult, error)
}

// Result is the outcome of one tool call. Failures carry only Error and
// serialize as {"success": false, "error": ...}.
type Result struct {
	Value any
	Error string
}

// Failed returns a failure result.
func Failed(msg string) Result {
	return Result{Error: msg}
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{false, r.Error})
	}
	return json.Marshal(r.Value)
}

// JSON renders the result for a tool message.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(Failed("result could not be serialized"))
	}
	return string(b)
}

// Catalogue validates arguments and dispatches calls to a Backend.
type Catalogue struct {
	backend  Backend
	validate *validator.Validate
	log      *slog.Logger
}

// New creates a catalogue over backend.
func New(backend Backend, log *slog.Logger) *Catalogue {
	return &Catalogue{backend: backend, validate: newValidator(), log: log}
}

// Definitions returns the tool schemas offered to the model.
func (c *Catalogue) Definitions() []mcp.Tool {
	return Definitions()
}

// Call runs the named tool with JSON arguments. It never returns a Go error
// or panics: every failure becomes a failed Result.
func (c *Catalogue) Call(ctx context.Context, name string, args json.RawMessage) (res Result) {
	start := time.Now()
	n, known := ParseName(name)
	defer func() {
		if p := recover(); p != nil {
			c.log.Error("tool panic", "tool", name, "panic", p)
			res = Failed(fmt.Sprintf("%s failed unexpectedly", name))
		}
		label, outcome := string(n), "ok"
		if !known {
			label = "unknown"
		}
		if !res.OK() {
			outcome = "error"
		}
		metrics.ToolCalls.WithLabelValues(label, outcome).Inc()
		c.log.Debug("tool call", "tool", name, "ok", res.OK(), "duration", time.Since(start))
	}()

	if !known {
		return Failed(fmt.Sprintf("unknown tool %q", name))
	}

	switch n {
	case GetWorkoutHistory:
		return invoke(ctx, c, n, args, c.backend.WorkoutHistory)
	case GetVolumeThisWeek:
		return invoke(ctx, c, n, args, c.backend.VolumeThisWeek)
	case GetProgressionTrend:
		return invoke(ctx, c, n, args, c.backend.ProgressionTrend)
	case GetUserProfile:
		return invoke(ctx, c, n, args, func(ctx context.Context, _ ProfileArgs) (*ProfileResult, error) {
			return c.backend.UserProfile(ctx)
		})
	case GetExerciseLibrary:
		return invoke(ctx, c, n, args, c.backend.ExerciseLibrary)
	case PrescribeWorkout:
		return invoke(ctx, c, n, args, c.backend.PrescribeWorkout)
	case LogWorkoutSet:
		return invoke(ctx, c, n, args, c.backend.LogWorkoutSet)
	}
	return Failed(fmt.Sprintf("unknown tool %q", name))
}

func invoke[A any, R any](ctx context.Context, c *Catalogue, n Name, raw json.RawMessage, fn func(context.Context, A) (R, error)) Result {
	var args A
	if err := decodeArgs(raw, &args); err != nil {
		return Failed("invalid arguments: " + err.Error())
	}
	if d, ok := any(&args).(defaulter); ok {
		d.applyDefaults()
	}
	if err := c.validate.Struct(&args); err != nil {
		return Failed(validationMessage(err))
	}

	out, err := fn(ctx, args)
	if err != nil {
		if !errors.Is(err, ErrNoActiveSession) && !errors.Is(err, ErrExerciseNotFound) {
			c.log.Error("tool "+string(n), "error", err)
		}
		return Failed(errorMessage(n, err))
	}
	return Result{Value: out}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func errorMessage(n Name, err error) string {
	switch {
	case errors.Is(err, ErrNoActiveSession):
		return "No active workout session. Start or prescribe a workout before logging sets."
	case errors.Is(err, ErrExerciseNotFound):
		return fmt.Sprintf("No exercise in the library matches (%v). Use getExerciseLibrary to find the right name.", err)
	}
	return fmt.Sprintf("%s failed: %v", n, err)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage lists each failing field using its JSON name.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid arguments: " + err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "gtefield":
			parts = append(parts, fmt.Sprintf("%s must not be less than %s", field, lowerFirst(fe.Param())))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return "invalid arguments: " + strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
