package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandleMe(t *testing.T) {
	s := &Server{}
	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), 4,
		UserInfo{Login: "ana@example.com", DisplayName: "Ana"})
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["login"] != "ana@example.com" || body["display_name"] != "Ana" {
		t.Errorf("body = %v", body)
	}
}

// TestHandleHealthTime verifies the health payload carries the server clock in UTC.
func TestHandleHealthTime(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	s := &Server{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, loc) },
	}
	rec := httptest.NewRecorder()

	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
	if body["time"] != "2026-10-17T07:30:00Z" {
		t.Errorf("time = %q, want 2026-10-17T07:30:00Z", body["time"])
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "messages: required")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(body) != 1 || body["error"] != "messages: required" {
		t.Errorf("body = %v", body)
	}
}
