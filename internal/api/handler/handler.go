package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

type StateReader interface {
	State(ctx context.Context, userID string) model.AttendanceRecord
	ActiveSessions() int
}

type EventReader interface {
	ListUserEvents(ctx context.Context, userID string, limit int) ([]ports.AuditEvent, error)
}

type AttendanceHandler struct {
	State  StateReader
	Events EventReader
	Health func() map[string]any
}

type AttendanceResponse struct {
	UserID         string     `json:"userId"`
	ClockedIn      bool       `json:"clockedIn"`
	ReportApproved bool       `json:"reportApproved"`
	ClockInTime    *time.Time `json:"clockInTime,omitempty"`
}

func (h *AttendanceHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	rec := h.State.State(r.Context(), userID)
	resp := AttendanceResponse{
		UserID:         userID,
		ClockedIn:      rec.ClockedIn(),
		ReportApproved: rec.ReportApproved(),
	}
	if rec.ClockedIn() {
		t := rec.ClockInTime
		resp.ClockInTime = &t
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *AttendanceHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.Events.ListUserEvents(r.Context(), userID, limit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("user_id", userID).Msg("Failed to list audit events")
		http.Error(w, "Service error listing events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []ports.AuditEvent{}
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"userId": userID, "events": events})
}

func (h *AttendanceHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.State != nil {
		body["activeSessions"] = h.State.ActiveSessions()
	}
	if h.Health != nil {
		for k, v := range h.Health() {
			body[k] = v
		}
	}
	writeJSON(r.Context(), w, http.StatusOK, body)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to write response")
	}
}
