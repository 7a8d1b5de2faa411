// Package mcp exposes the coaching tool catalogue as an MCP server, either
// over streamable HTTP inside the API server or over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/trainergpt/internal/tools"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Executor runs tools for one user. *tools.Catalogue and *HTTPClient
// satisfy it.
type Executor interface {
	Call(ctx context.Context, name string, args json.RawMessage) tools.Result
}

// ExecutorFor returns the executor bound to a user.
type ExecutorFor func(userID int) Executor

// New creates an MCP server with every coaching tool and resource registered.
func New(executorFor ExecutorFor, policy, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("TrainerGPT", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("TrainerGPT hypertrophy coaching tools. Read the profile, history and exercise library before prescribing; log sets with RIR. All data is scoped to the authenticated user."),
	)

	h := &handlers{executorFor: executorFor, policy: policy, log: log}

	defs := tools.Definitions()
	st := make([]server.ServerTool, 0, len(defs))
	for _, def := range defs {
		st = append(st, server.ServerTool{Tool: def, Handler: h.tool(def.Name)})
	}
	s.AddTools(st...)

	s.AddResources(
		server.ServerResource{Resource: resCoachingPolicy, Handler: h.coachingPolicy},
		server.ServerResource{Resource: resExerciseLibrary, Handler: h.exerciseLibrary},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	executorFor ExecutorFor
	policy      string
	log         *slog.Logger
}

func (h *handlers) tool(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetRawArguments())
		if err != nil {
			return mcp.NewToolResultError("arguments must be a JSON object"), nil
		}

		uid := UserIDFromContext(ctx)
		res := h.executorFor(uid).Call(ctx, name, args)
		if !res.OK() {
			h.log.Warn("mcp "+name, "user_id", uid, "error", res.Error)
			return mcp.NewToolResultError(res.Error), nil
		}
		return mcp.NewToolResultText(res.JSON()), nil
	}
}
