package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/internal/http/middleware"
	"github.com/estateone/tour-engine/pkg/logging"
)

// BookingService is the lifecycle surface the HTTP layer needs.
// *booking.Service satisfies it.
type BookingService interface {
	Create(ctx context.Context, input booking.CreateInput) (*booking.Booking, error)
	Reschedule(ctx context.Context, id uuid.UUID, actor booking.Actor, newDate, newTime string) (*booking.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, actor booking.Actor) error
	Complete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID string, limit int) ([]booking.Booking, error)
}

var _ BookingService = (*booking.Service)(nil)

// BookingsHandler serves the user-facing booking endpoints.
type BookingsHandler struct {
	service BookingService
	logger  *logging.Logger
}

// NewBookingsHandler creates a bookings handler.
func NewBookingsHandler(service BookingService, logger *logging.Logger) *BookingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingsHandler{service: service, logger: logger}
}

// CreateBookingRequest is the payload for booking a tour.
type CreateBookingRequest struct {
	PropertyID    string  `json:"property_id"`
	LeadID        *string `json:"lead_id,omitempty"`
	ExpertID      *string `json:"expert_id,omitempty"`
	Platform      string  `json:"platform"`
	ScheduledAt   string  `json:"scheduled_at"`
	DurationMins  int     `json:"duration_minutes,omitempty"`
	Timezone      string  `json:"timezone,omitempty"`
	AttendeeEmail string  `json:"attendee_email"`
	AttendeeName  string  `json:"attendee_name,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// RescheduleRequest moves a booking to a new local date and time.
type RescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

// Create books a new tour.
// POST /bookings
func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := requesterID(r)
	if userID == "" {
		jsonError(w, "missing X-User-Id header", http.StatusUnauthorized)
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		jsonError(w, "scheduled_at must be RFC3339", http.StatusBadRequest)
		return
	}

	b, err := h.service.Create(r.Context(), booking.CreateInput{
		UserID:        userID,
		PropertyID:    req.PropertyID,
		LeadID:        req.LeadID,
		ExpertID:      req.ExpertID,
		Platform:      booking.Platform(req.Platform),
		ScheduledAt:   scheduledAt,
		DurationMins:  req.DurationMins,
		Timezone:      req.Timezone,
		AttendeeEmail: req.AttendeeEmail,
		AttendeeName:  req.AttendeeName,
		Notes:         req.Notes,
	})
	if err != nil {
		h.logger.Warn("booking create rejected", "user_id", userID, "error", err)
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, b)
}

// List returns the requester's bookings, newest first.
// GET /bookings?limit=N
func (h *BookingsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := requesterID(r)
	if userID == "" {
		jsonError(w, "missing X-User-Id header", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	bookings, err := h.service.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list bookings failed", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// Reschedule moves a booking. Only the owner or an admin may do this.
// POST /bookings/{bookingID}/reschedule
func (h *BookingsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	b, err := h.service.Reschedule(r.Context(), id, actor, req.NewDate, req.NewTime)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// Cancel cancels a booking. Cancelling twice is a success both times.
// POST /bookings/{bookingID}/cancel
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), id, actor); err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(booking.StatusCancelled)})
}

// Complete records that a tour took place, typically when post-tour
// feedback is submitted.
// POST /bookings/{bookingID}/complete
func (h *BookingsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	if err := h.service.Complete(r.Context(), id); err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(booking.StatusCompleted)})
}

func bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		jsonError(w, "invalid booking id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// requestActor builds the acting principal: identity from the gateway
// header, admin capability from a valid admin JWT on the request.
func requestActor(w http.ResponseWriter, r *http.Request) (booking.Actor, bool) {
	userID := requesterID(r)
	_, admin := middleware.AdminClaimsFromContext(r.Context())
	if userID == "" && !admin {
		jsonError(w, "missing X-User-Id header", http.StatusUnauthorized)
		return booking.Actor{}, false
	}
	return booking.Actor{ID: userID, Admin: admin}, true
}
