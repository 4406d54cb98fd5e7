package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/estateone/tour-engine/internal/availability"
	"github.com/estateone/tour-engine/pkg/logging"
)

// ScheduleSource computes a day's availability. *availability.Calculator
// satisfies it.
type ScheduleSource interface {
	AvailableSlots(ctx context.Context, agentID string, date time.Time) (*availability.DaySchedule, error)
}

var _ ScheduleSource = (*availability.Calculator)(nil)

// WindowStore manages an agent's weekly windows. *availability.Store
// satisfies it.
type WindowStore interface {
	Create(ctx context.Context, w *availability.Window) error
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
}

var _ WindowStore = (*availability.Store)(nil)

// AvailabilityHandler serves agent availability lookups and the admin
// window-management endpoints.
type AvailabilityHandler struct {
	schedule ScheduleSource
	windows  WindowStore
	logger   *logging.Logger
}

// NewAvailabilityHandler creates an availability handler.
func NewAvailabilityHandler(schedule ScheduleSource, windows WindowStore, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{schedule: schedule, windows: windows, logger: logger}
}

// CreateWindowRequest defines a weekly recurring window.
type CreateWindowRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Day returns an agent's windows and conflicting bookings for one date.
// GET /agents/{agentID}/availability?date=YYYY-MM-DD&tz=IANA
func (h *AvailabilityHandler) Day(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		jsonError(w, "missing agentID", http.StatusBadRequest)
		return
	}

	tz := r.URL.Query().Get("tz")
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		jsonError(w, "unknown timezone", http.StatusBadRequest)
		return
	}

	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		jsonError(w, "missing date parameter", http.StatusBadRequest)
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, dateParam, loc)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	schedule, err := h.schedule.AvailableSlots(r.Context(), agentID, date)
	if err != nil {
		h.logger.Error("availability lookup failed", "agent_id", agentID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

// CreateWindow adds a weekly window for an agent.
// POST /admin/agents/{agentID}/availability
func (h *AvailabilityHandler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		jsonError(w, "missing agentID", http.StatusBadRequest)
		return
	}

	var req CreateWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		jsonError(w, "day_of_week must be 0-6", http.StatusBadRequest)
		return
	}
	if !validClock(req.StartTime) || !validClock(req.EndTime) {
		jsonError(w, "start_time and end_time must be HH:MM", http.StatusBadRequest)
		return
	}
	if req.StartTime >= req.EndTime {
		jsonError(w, "start_time must be before end_time", http.StatusBadRequest)
		return
	}

	window := &availability.Window{
		AgentID:   agentID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsActive:  true,
	}
	if err := h.windows.Create(r.Context(), window); err != nil {
		h.logger.Error("create window failed", "agent_id", agentID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, window)
}

// DeactivateWindow retires a weekly window.
// DELETE /admin/availability/{windowID}
func (h *AvailabilityHandler) DeactivateWindow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "windowID"))
	if err != nil {
		jsonError(w, "invalid window id", http.StatusBadRequest)
		return
	}

	ok, err := h.windows.Deactivate(r.Context(), id)
	if err != nil {
		h.logger.Error("deactivate window failed", "window_id", id, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "window not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// validClock accepts 24-hour HH:MM strings.
func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
