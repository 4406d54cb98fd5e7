package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/estateone/tour-engine/internal/observability/metrics"
	"github.com/estateone/tour-engine/internal/property"
	"github.com/estateone/tour-engine/pkg/logging"
)

// BookingStore is the persistence surface the lifecycle needs. *Store
// satisfies it; tests substitute fakes.
type BookingStore interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Booking, error)
	ListByAgent(ctx context.Context, agentID string, from, to time.Time, statuses []Status) ([]Booking, error)
	Confirm(ctx context.Context, id uuid.UUID, adminID, adminNotes string) (bool, error)
	Reschedule(ctx context.Context, id uuid.UUID, newAt time.Time, meetingURL *string) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	Complete(ctx context.Context, id uuid.UUID) (bool, error)
}

var _ BookingStore = (*Store)(nil)

// MeetingProvisioner obtains a join link for a platform. A nil URL with a
// nil error means no link is needed (phone tours). Implementations degrade
// to placeholder links internally; an error here is a programming error
// (unknown platform), not a provider outage.
type MeetingProvisioner interface {
	Provision(ctx context.Context, platform Platform, req MeetingRequest) (*string, error)
}

// Notifier announces lifecycle events. It reports success but never fails
// the calling operation.
type Notifier interface {
	Announce(ctx context.Context, kind EventKind, b *Booking, evctx EventContext) bool
}

// PropertyLookup resolves the property a tour is about.
type PropertyLookup interface {
	Lookup(ctx context.Context, id string) (*property.Property, error)
}

// Service owns the booking state machine: scheduled → confirmed →
// completed, reschedule re-entering scheduled, and cancellation from any
// non-terminal state.
type Service struct {
	store       BookingStore
	provisioner MeetingProvisioner
	notifier    Notifier
	properties  PropertyLookup
	metrics     *metrics.EngineMetrics
	logger      *logging.Logger
}

// NewService creates a booking lifecycle service.
func NewService(store BookingStore, provisioner MeetingProvisioner, notifier Notifier, properties PropertyLookup, m *metrics.EngineMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:       store,
		provisioner: provisioner,
		notifier:    notifier,
		properties:  properties,
		metrics:     m,
		logger:      logger,
	}
}

// CreateInput holds the parameters for booking a tour.
type CreateInput struct {
	UserID        string
	PropertyID    string
	LeadID        *string
	ExpertID      *string
	Platform      Platform
	ScheduledAt   time.Time
	DurationMins  int
	Timezone      string
	AttendeeEmail string
	AttendeeName  string
	Notes         string
}

// Create validates the request, provisions a meeting link, persists the
// booking, and announces it. A persistence failure is fatal; a provisioning
// failure is not — the booking proceeds with whatever link the provisioner
// produced.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Booking, error) {
	if input.UserID == "" {
		return nil, validationErr("user_id", "required")
	}
	if input.PropertyID == "" {
		return nil, validationErr("property_id", "required")
	}
	if !input.Platform.Valid() {
		return nil, validationErr("platform", fmt.Sprintf("unknown platform %q", input.Platform))
	}
	if input.AttendeeEmail == "" {
		return nil, validationErr("attendee_email", "required")
	}
	if input.DurationMins == 0 {
		input.DurationMins = DefaultDurationMins
	}
	if input.DurationMins < 0 || input.DurationMins > 8*60 {
		return nil, validationErr("duration_minutes", "must be between 1 and 480")
	}
	if input.Timezone == "" {
		input.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(input.Timezone); err != nil {
		return nil, validationErr("timezone", fmt.Sprintf("unknown timezone %q", input.Timezone))
	}
	if !input.ScheduledAt.After(time.Now()) {
		return nil, validationErr("scheduled_at", "must be in the future")
	}

	prop, err := s.properties.Lookup(ctx, input.PropertyID)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			return nil, fmt.Errorf("%w: property %s", ErrNotFound, input.PropertyID)
		}
		return nil, fmt.Errorf("booking: create: %w", err)
	}

	b := &Booking{
		UserID:        input.UserID,
		PropertyID:    input.PropertyID,
		LeadID:        input.LeadID,
		ExpertID:      input.ExpertID,
		Platform:      input.Platform,
		ScheduledAt:   input.ScheduledAt.UTC(),
		DurationMins:  input.DurationMins,
		Timezone:      input.Timezone,
		Status:        StatusScheduled,
		ReminderSent:  false,
		AttendeeEmail: input.AttendeeEmail,
		AttendeeName:  input.AttendeeName,
		Notes:         input.Notes,
	}
	b.MeetingURL = s.provisionLink(ctx, b, prop.Title)

	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition("created")
	s.logger.Info("booking created",
		"booking_id", b.ID,
		"user_id", b.UserID,
		"property_id", b.PropertyID,
		"platform", b.Platform,
		"scheduled_at", b.ScheduledAt.Format(time.RFC3339),
	)

	s.notifier.Announce(ctx, EventCreated, b, EventContext{
		PropertyTitle: prop.Title,
		PropertySlug:  prop.Slug,
	})
	return b, nil
}

// Confirm marks a scheduled booking as confirmed by an admin.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, adminID, adminNotes string) (*Booking, error) {
	ok, err := s.store.Confirm(ctx, id, adminID, adminNotes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionFailure(ctx, id, "scheduled")
	}

	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition("confirmed")
	s.logger.Info("booking confirmed", "booking_id", id, "admin_id", adminID)

	s.announceWithProperty(ctx, EventConfirmed, b, EventContext{})
	return b, nil
}

// Reschedule moves a booking to newDate+newTime interpreted in the
// booking's stored timezone. Only the owning user or an admin may
// reschedule. The meeting link is regenerated for the new instant and the
// reminder flag resets.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, actor Actor, newDate, newTime string) (*Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && b.UserID != actor.ID {
		return nil, ErrForbidden
	}

	newAt, err := parseLocalDateTime(newDate, newTime, b.Timezone)
	if err != nil {
		return nil, err
	}
	if !newAt.After(time.Now()) {
		return nil, validationErr("scheduled_at", "must be in the future")
	}

	oldAt := b.ScheduledAt
	prop, _ := s.properties.Lookup(ctx, b.PropertyID)
	title := ""
	slug := ""
	if prop != nil {
		title = prop.Title
		slug = prop.Slug
	}

	// A meeting link is never reused with a new time: provision a fresh one
	// for the new instant before committing the transition.
	moved := *b
	moved.ScheduledAt = newAt
	meetingURL := s.provisionLink(ctx, &moved, title)

	ok, err := s.store.Reschedule(ctx, id, newAt, meetingURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionFailure(ctx, id, "scheduled or confirmed")
	}

	updated, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition("rescheduled")
	s.logger.Info("booking rescheduled",
		"booking_id", id,
		"old_scheduled_at", oldAt.Format(time.RFC3339),
		"new_scheduled_at", newAt.Format(time.RFC3339),
	)

	s.notifier.Announce(ctx, EventRescheduled, updated, EventContext{
		PropertyTitle:  title,
		PropertySlug:   slug,
		OldScheduledAt: &oldAt,
	})
	return updated, nil
}

// Cancel transitions a booking → cancelled. Cancelling an already-cancelled
// booking is a no-op success so double submits never surface as failures.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) error {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Admin && b.UserID != actor.ID {
		return ErrForbidden
	}
	if b.Status == StatusCancelled {
		return nil
	}

	ok, err := s.store.Cancel(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		// Raced with another transition: a concurrent cancel is still a
		// success, anything else lost the serialization point.
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			return nil
		}
		return fmt.Errorf("%w: cannot cancel from %s", ErrInvalidState, current.Status)
	}

	b.Status = StatusCancelled
	s.metrics.ObserveTransition("cancelled")
	s.logger.Info("booking cancelled", "booking_id", id, "actor_id", actor.ID, "admin", actor.Admin)

	s.announceWithProperty(ctx, EventCancelled, b, EventContext{})
	return nil
}

// Complete records that the tour took place, valid from scheduled or
// confirmed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.Complete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return s.transitionFailure(ctx, id, "scheduled or confirmed")
	}
	s.metrics.ObserveTransition("completed")
	s.logger.Info("booking completed", "booking_id", id)
	return nil
}

// ListByUser returns a user's bookings.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Booking, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// ListByAgent returns an agent's bookings within [from, to) matching the
// given statuses. An empty status list means all states.
func (s *Service) ListByAgent(ctx context.Context, agentID string, from, to time.Time, statuses []Status) ([]Booking, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled}
	}
	return s.store.ListByAgent(ctx, agentID, from, to, statuses)
}

// provisionLink obtains a join link, absorbing provisioner errors: a failed
// video-link call must never block the booking itself.
func (s *Service) provisionLink(ctx context.Context, b *Booking, propertyTitle string) *string {
	if s.provisioner == nil {
		return nil
	}
	title := fmt.Sprintf("Property Tour — %s", propertyTitle)
	if propertyTitle == "" {
		title = "Property Tour"
	}
	url, err := s.provisioner.Provision(ctx, b.Platform, MeetingRequest{
		Title:         title,
		StartTime:     b.ScheduledAt,
		DurationMins:  b.DurationMins,
		AttendeeEmail: b.AttendeeEmail,
		AttendeeName:  b.AttendeeName,
	})
	if err != nil {
		s.logger.Error("meeting provisioning failed", "error", err, "platform", b.Platform)
		return nil
	}
	return url
}

// transitionFailure distinguishes a missing booking from a lost race or an
// illegal source state after a guarded update touched zero rows.
func (s *Service) transitionFailure(ctx context.Context, id uuid.UUID, wanted string) error {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: booking is %s, wanted %s", ErrInvalidState, current.Status, wanted)
}

func (s *Service) announceWithProperty(ctx context.Context, kind EventKind, b *Booking, evctx EventContext) {
	if evctx.PropertyTitle == "" && s.properties != nil {
		if prop, err := s.properties.Lookup(ctx, b.PropertyID); err == nil {
			evctx.PropertyTitle = prop.Title
			evctx.PropertySlug = prop.Slug
		}
	}
	s.notifier.Announce(ctx, kind, b, evctx)
}

// parseLocalDateTime combines a YYYY-MM-DD date and HH:MM time in the given
// IANA timezone into a UTC instant.
func parseLocalDateTime(date, clock, tz string) (time.Time, error) {
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, validationErr("timezone", fmt.Sprintf("unknown timezone %q", tz))
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, validationErr("date", fmt.Sprintf("want YYYY-MM-DD and HH:MM, got %q %q", date, clock))
	}
	return t.UTC(), nil
}
