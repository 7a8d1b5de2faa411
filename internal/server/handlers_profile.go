package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/trainergpt/internal/cache"
	"github.com/meltforce/trainergpt/internal/models"
	"github.com/meltforce/trainergpt/internal/storage"
)

type profileRequest struct {
	Name                  string `json:"name" validate:"required,max=100"`
	ExperienceLevel       string `json:"experienceLevel" validate:"oneof=beginner intermediate advanced"`
	TrainingAgeMonths     int    `json:"trainingAgeMonths" validate:"min=0,max=1200"`
	AvailableTrainingDays int    `json:"availableTrainingDays" validate:"min=1,max=7"`
	PreferredSplit        string `json:"preferredSplit" validate:"max=50"`
}

type landmarkRequest struct {
	MEV int `json:"mev" validate:"min=0"`
	MAV int `json:"mav" validate:"gtefield=MEV"`
	MRV int `json:"mrv" validate:"gtefield=MAV"`
}

type mesocycleRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	TotalWeeks int    `json:"totalWeeks" validate:"min=1,max=16"`
	SplitType  string `json:"splitType" validate:"max=50"`
}

type completeRequest struct {
	DurationMinutes int `json:"durationMinutes" validate:"min=1,max=600"`
}

// decodeValid reads a JSON body into v and validates it, writing a 400 on
// failure.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeValid(w, r, &req) {
		return
	}
	userID := mustUserID(r)
	p := models.UserProfile{
		Name:                  req.Name,
		ExperienceLevel:       models.ExperienceLevel(req.ExperienceLevel),
		TrainingAgeMonths:     req.TrainingAgeMonths,
		AvailableTrainingDays: req.AvailableTrainingDays,
		PreferredSplit:        req.PreferredSplit,
	}
	if err := s.profiles.UpsertProfile(r.Context(), userID, p); err != nil {
		s.log.Error("saving profile", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "saving profile failed")
		return
	}
	s.cache.Invalidate(r.Context(), userID, cache.KindProfile)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutLandmark(w http.ResponseWriter, r *http.Request) {
	group, ok := models.NormalizeMuscleGroup(chi.URLParam(r, "group"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown muscle group")
		return
	}
	var req landmarkRequest
	if !decodeValid(w, r, &req) {
		return
	}
	userID := mustUserID(r)
	lm := models.Landmark{MEV: req.MEV, MAV: req.MAV, MRV: req.MRV}
	if err := s.profiles.SetLandmark(r.Context(), userID, group, lm); err != nil {
		if errors.Is(err, storage.ErrInvalidLandmark) {
			writeError(w, http.StatusBadRequest, "landmarks must satisfy mev <= mav <= mrv")
			return
		}
		s.log.Error("saving landmark", "user_id", userID, "group", group, "error", err)
		writeError(w, http.StatusInternalServerError, "saving landmark failed")
		return
	}
	s.cache.Invalidate(r.Context(), userID, cache.KindProfile, cache.KindVolume)
	writeJSON(w, http.StatusOK, map[string]any{"muscleGroup": group, "landmarks": lm})
}

func (s *Server) handleStartMesocycle(w http.ResponseWriter, r *http.Request) {
	var req mesocycleRequest
	if !decodeValid(w, r, &req) {
		return
	}
	userID := mustUserID(r)
	m, err := s.profiles.StartMesocycle(r.Context(), userID, req.Name, req.SplitType, req.TotalWeeks)
	if err != nil {
		s.log.Error("starting mesocycle", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "starting mesocycle failed")
		return
	}
	s.cache.Invalidate(r.Context(), userID, cache.KindProfile, cache.KindDeload)
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleAdvanceMesocycle(w http.ResponseWriter, r *http.Request) {
	userID := mustUserID(r)
	if err := s.profiles.AdvanceMesocycleWeek(r.Context(), userID); err != nil {
		s.log.Error("advancing mesocycle", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "advancing mesocycle failed")
		return
	}
	s.cache.Invalidate(r.Context(), userID, cache.KindProfile, cache.KindDeload)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	userID := mustUserID(r)
	active, err := s.store.ActiveSession(r.Context(), userID)
	if err != nil {
		s.log.Error("reading active session", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "reading active session failed")
		return
	}
	if active == nil {
		writeError(w, http.StatusConflict, storage.ErrNoActiveSession.Error())
		return
	}
	err = s.profiles.CompleteSession(r.Context(), userID, active.ID, req.DurationMinutes)
	if errors.Is(err, storage.ErrNoActiveSession) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.log.Error("completing session", "user_id", userID, "session_id", active.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "completing session failed")
		return
	}
	s.cache.Invalidate(r.Context(), userID, cache.KindWeeklySummary, cache.KindDeload)
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":       active.ID,
		"sessionName":     active.SessionName,
		"durationMinutes": req.DurationMinutes,
	})
}
