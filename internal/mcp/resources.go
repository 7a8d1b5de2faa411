package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/trainergpt/internal/tools"
)

var resCoachingPolicy = mcp.NewResource(
	"trainergpt://coaching_policy",
	"Coaching Policy",
	mcp.WithResourceDescription("The rules the coach follows: RIR-only effort, volume landmarks, deload advocacy, progressive overload and brevity"),
	mcp.WithMIMEType("text/plain"),
)

var resExerciseLibrary = mcp.NewResource(
	"trainergpt://exercise_library",
	"Exercise Library",
	mcp.WithResourceDescription("Every exercise in the shared library with primary muscle group and equipment"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) coachingPolicy(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     h.policy,
		},
	}, nil
}

func (h *handlers) exerciseLibrary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	res := h.executorFor(UserIDFromContext(ctx)).Call(ctx, string(tools.GetExerciseLibrary), nil)
	if !res.OK() {
		return nil, errors.New(res.Error)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     res.JSON(),
		},
	}, nil
}
