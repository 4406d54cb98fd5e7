package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/internal/http/middleware"
	"github.com/estateone/tour-engine/pkg/logging"
)

// AdminBookingService is the admin-facing lifecycle surface.
// *booking.Service satisfies it.
type AdminBookingService interface {
	Confirm(ctx context.Context, id uuid.UUID, adminID, adminNotes string) (*booking.Booking, error)
	ListByAgent(ctx context.Context, agentID string, from, to time.Time, statuses []booking.Status) ([]booking.Booking, error)
}

var _ AdminBookingService = (*booking.Service)(nil)

// ReminderTrigger dispatches an immediate reminder for one booking.
// *reminder.Worker satisfies it.
type ReminderTrigger interface {
	TriggerNow(ctx context.Context, id uuid.UUID) error
}

// AdminHandler serves the operator endpoints: confirmation, agent agendas
// and manual reminder dispatch.
type AdminHandler struct {
	service   AdminBookingService
	reminders ReminderTrigger
	logger    *logging.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(service AdminBookingService, reminders ReminderTrigger, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{service: service, reminders: reminders, logger: logger}
}

// ConfirmRequest carries optional operator notes on confirmation.
type ConfirmRequest struct {
	AdminNotes string `json:"admin_notes,omitempty"`
}

// Confirm marks a scheduled booking as confirmed.
// POST /admin/bookings/{bookingID}/confirm
func (h *AdminHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	var req ConfirmRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	b, err := h.service.Confirm(r.Context(), id, adminID(r), req.AdminNotes)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// Agenda returns an agent's bookings for a date range.
// GET /agents/{agentID}/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD&status=a,b
func (h *AdminHandler) Agenda(w http.ResponseWriter, r *http.Request) {
	agentID := agentParam(w, r)
	if agentID == "" {
		return
	}

	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}

	var statuses []booking.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, booking.Status(strings.TrimSpace(s)))
		}
	}

	bookings, err := h.service.ListByAgent(r.Context(), agentID, from, to, statuses)
	if err != nil {
		h.logger.Error("agent agenda failed", "agent_id", agentID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// TriggerReminder dispatches an out-of-band reminder for one booking. The
// booking must still be scheduled and unreminded.
// POST /admin/bookings/{bookingID}/remind
func (h *AdminHandler) TriggerReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	if err := h.reminders.TriggerNow(r.Context(), id); err != nil {
		serviceError(w, err)
		return
	}

	h.logger.Info("manual reminder dispatched", "booking_id", id, "admin_id", adminID(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func agentParam(w http.ResponseWriter, r *http.Request) string {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		jsonError(w, "missing agentID", http.StatusBadRequest)
	}
	return agentID
}

// dateRange parses ?from / ?to day bounds, defaulting to the next 7 days.
func dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 7)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			jsonError(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			jsonError(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		jsonError(w, "to must be after from", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// adminID pulls the operator identity from the admin JWT subject.
func adminID(r *http.Request) string {
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}
