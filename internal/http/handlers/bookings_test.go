package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateone/tour-engine/internal/booking"
)

type fakeBookingService struct {
	created      *booking.Booking
	createErr    error
	rescheduled  *booking.Booking
	transitErr   error
	lastActor    booking.Actor
	lastInput    booking.CreateInput
	cancelCalled bool
}

func (f *fakeBookingService) Create(_ context.Context, input booking.CreateInput) (*booking.Booking, error) {
	f.lastInput = input
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeBookingService) Reschedule(_ context.Context, _ uuid.UUID, actor booking.Actor, _, _ string) (*booking.Booking, error) {
	f.lastActor = actor
	if f.transitErr != nil {
		return nil, f.transitErr
	}
	return f.rescheduled, nil
}

func (f *fakeBookingService) Cancel(_ context.Context, _ uuid.UUID, actor booking.Actor) error {
	f.cancelCalled = true
	f.lastActor = actor
	return f.transitErr
}

func (f *fakeBookingService) Complete(_ context.Context, _ uuid.UUID) error {
	return f.transitErr
}

func (f *fakeBookingService) ListByUser(_ context.Context, _ string, _ int) ([]booking.Booking, error) {
	return nil, nil
}

func bookingsRouter(svc BookingService) http.Handler {
	h := NewBookingsHandler(svc, nil)
	r := chi.NewRouter()
	r.Post("/bookings", h.Create)
	r.Get("/bookings", h.List)
	r.Post("/bookings/{bookingID}/reschedule", h.Reschedule)
	r.Post("/bookings/{bookingID}/cancel", h.Cancel)
	return r
}

func createPayload() string {
	return fmt.Sprintf(`{
		"property_id": "prop-1",
		"platform": "zoom",
		"scheduled_at": %q,
		"timezone": "America/New_York",
		"attendee_email": "ann@example.com",
		"attendee_name": "Ann"
	}`, time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))
}

func TestCreateRequiresIdentityHeader(t *testing.T) {
	r := bookingsRouter(&fakeBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(createPayload()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSuccess(t *testing.T) {
	svc := &fakeBookingService{created: &booking.Booking{ID: uuid.New(), UserID: "user-1", Status: booking.StatusScheduled}}
	r := bookingsRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(createPayload()))
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-1", svc.lastInput.UserID)
	assert.Equal(t, booking.PlatformZoom, svc.lastInput.Platform)

	var got booking.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, svc.created.ID, got.ID)
}

func TestCreateBadTimestamp(t *testing.T) {
	r := bookingsRouter(&fakeBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/bookings",
		strings.NewReader(`{"property_id": "prop-1", "platform": "zoom", "scheduled_at": "tomorrow", "attendee_email": "a@b.c"}`))
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateValidationMapsTo400(t *testing.T) {
	svc := &fakeBookingService{createErr: &booking.ValidationError{Field: "platform", Reason: "unknown"}}
	r := bookingsRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(createPayload()))
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "platform")
}

func TestRescheduleErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", booking.ErrNotFound, http.StatusNotFound},
		{"forbidden", booking.ErrForbidden, http.StatusForbidden},
		{"invalid state", fmt.Errorf("%w: booking is cancelled", booking.ErrInvalidState), http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeBookingService{transitErr: tc.err}
			r := bookingsRouter(svc)

			url := fmt.Sprintf("/bookings/%s/reschedule", uuid.New())
			req := httptest.NewRequest(http.MethodPost, url,
				strings.NewReader(`{"new_date": "2026-09-20", "new_time": "15:00"}`))
			req.Header.Set("X-User-Id", "user-1")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestRescheduleInvalidID(t *testing.T) {
	r := bookingsRouter(&fakeBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/bookings/not-a-uuid/reschedule",
		strings.NewReader(`{"new_date": "2026-09-20", "new_time": "15:00"}`))
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelPassesActor(t *testing.T) {
	svc := &fakeBookingService{}
	r := bookingsRouter(svc)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/bookings/%s/cancel", uuid.New()), nil)
	req.Header.Set("X-User-Id", "user-9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.cancelCalled)
	assert.Equal(t, booking.Actor{ID: "user-9"}, svc.lastActor)
}
