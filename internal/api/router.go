package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"attendance.service/internal/api/handler"
)

// Deps selects the routes a process serves. Nil readers leave their routes out.
type Deps struct {
	State  handler.StateReader
	Events handler.EventReader
	// Health adds fields to the health payload.
	Health func() map[string]any
}

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(deps Deps) *mux.Router {
	h := handler.AttendanceHandler{
		State:  deps.State,
		Events: deps.Events,
		Health: deps.Health,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	if deps.State != nil {
		api.HandleFunc("/attendance/{userId}", h.GetAttendance).Methods(http.MethodGet)
	}
	if deps.Events != nil {
		api.HandleFunc("/attendance/{userId}/events", h.GetEvents).Methods(http.MethodGet)
	}
	api.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)

	return r
}
