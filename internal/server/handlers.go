package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meltforce/trainergpt/internal/coach"
	"github.com/meltforce/trainergpt/internal/tools"
)

// maxBodyBytes caps request bodies on the chat and tool endpoints.
const maxBodyBytes = 1 << 20

// maxImportBytes caps uploaded training log exports.
const maxImportBytes = 16 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type chatMessage struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages" validate:"required,min=1,dive"`
}

type chatToolCall struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type chatResponse struct {
	Reply          string         `json:"reply"`
	ToolCalls      []chatToolCall `json:"toolCalls"`
	Steps          int            `json:"steps"`
	StepsExhausted bool           `json:"stepsExhausted"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "messages must be a non-empty list of user/assistant turns with content")
		return
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != "user" {
		writeError(w, http.StatusBadRequest, "last message must come from the user")
		return
	}

	userID := mustUserID(r)
	a, err := s.newAgent(userID)
	if err != nil {
		s.log.Error("building agent", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "agent unavailable")
		return
	}

	sc := coach.SessionContext{Now: s.now()}
	if active, err := s.store.ActiveSession(r.Context(), userID); err != nil {
		s.log.Warn("loading active session", "user_id", userID, "error", err)
	} else if active != nil {
		sc.ActiveSession = active.SessionName
	}

	tr, err := a.Run(r.Context(), coach.WithContext(s.policy, sc), toMessages(req.Messages))
	if err != nil {
		s.log.Error("agent run", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "model request failed")
		return
	}

	resp := chatResponse{
		Reply:          tr.Text,
		ToolCalls:      make([]chatToolCall, 0, len(tr.Calls)),
		Steps:          len(tr.Steps),
		StepsExhausted: tr.StepsExhausted,
	}
	for _, c := range tr.Calls {
		resp.ToolCalls = append(resp.ToolCalls, chatToolCall{Name: c.Name, Success: c.Result.OK(), Error: c.Result.Error})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools.Definitions()})
}

// handleCallTool runs one tool. Tool failures are results, so the status is
// 200 whenever the tool ran.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := tools.ParseName(name); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown tool %q", name))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	res := s.catalogueFor(mustUserID(r)).Call(r.Context(), name, body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, res.JSON())
}

// handleImport stores an Alpha Progression CSV export sent as the body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	userID := mustUserID(r)
	res, err := s.importer.Import(r.Context(), userID, http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		s.log.Error("import failed", "user_id", userID, "error", err)
		if res == nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "storing sessions failed", "result": res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "time": s.now().UTC().Format(time.RFC3339)}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.log.Warn("health check", "error", err)
			status["status"] = "degraded"
			status["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
