package booking

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the video-conferencing platform for a tour.
type Platform string

const (
	PlatformGoogleMeet Platform = "google_meet"
	PlatformTeams      Platform = "teams"
	PlatformZoom       Platform = "zoom"
	PlatformPhone      Platform = "phone"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformGoogleMeet, PlatformTeams, PlatformZoom, PlatformPhone:
		return true
	}
	return false
}

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking is a scheduled virtual property tour. ScheduledAt is always an
// absolute UTC instant; Timezone is display-only.
type Booking struct {
	ID            uuid.UUID  `json:"id"`
	UserID        string     `json:"user_id"`
	PropertyID    string     `json:"property_id"`
	LeadID        *string    `json:"lead_id,omitempty"`
	ExpertID      *string    `json:"expert_id,omitempty"`
	Platform      Platform   `json:"platform"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	DurationMins  int        `json:"duration_minutes"`
	Timezone      string     `json:"timezone"`
	MeetingURL    *string    `json:"meeting_url,omitempty"`
	Status        Status     `json:"status"`
	ReminderSent  bool       `json:"reminder_sent"`
	AttendeeEmail string     `json:"attendee_email"`
	AttendeeName  string     `json:"attendee_name"`
	Notes         string     `json:"notes,omitempty"`
	AdminNotes    string     `json:"admin_notes,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy   *string    `json:"confirmed_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DefaultDurationMins is used when a create request omits the duration.
const DefaultDurationMins = 30

// Actor is the principal requesting a transition. Admin is an explicit
// override capability: admins may reschedule or cancel any user's booking.
type Actor struct {
	ID    string
	Admin bool
}

// EventKind names a booking lifecycle event for notification purposes.
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventConfirmed   EventKind = "confirmed"
	EventRescheduled EventKind = "rescheduled"
	EventCancelled   EventKind = "cancelled"
	EventReminder    EventKind = "reminder"
)

// EventContext carries extra data for formatting a lifecycle notification.
type EventContext struct {
	PropertyTitle  string
	PropertySlug   string
	OldScheduledAt *time.Time
}

// MeetingRequest holds the parameters for provisioning a meeting link.
type MeetingRequest struct {
	Title         string
	StartTime     time.Time
	DurationMins  int
	AttendeeEmail string
	AttendeeName  string
}
