package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/internal/observability/metrics"
	"github.com/estateone/tour-engine/pkg/logging"
)

// Dispatcher formats booking lifecycle events and hands them to the email
// sink. It never fails the calling operation: a notification failure must
// not roll back a booking state change that has already been committed.
type Dispatcher struct {
	email      EmailSender
	recipients []string // operator copies, in addition to the attendee
	baseURL    string
	timeout    time.Duration
	metrics    *metrics.EngineMetrics
	logger     *logging.Logger
}

// NewDispatcher creates a notification dispatcher. recipients are operator
// addresses copied on every event; baseURL builds property deep links.
func NewDispatcher(email EmailSender, recipients []string, baseURL string, timeout time.Duration, m *metrics.EngineMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		email:      email,
		recipients: recipients,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		metrics:    m,
		logger:     logger,
	}
}

// Announce formats and sends the event. Returns true only when every
// configured recipient was notified.
func (d *Dispatcher) Announce(ctx context.Context, kind booking.EventKind, b *booking.Booking, evctx booking.EventContext) bool {
	if d.email == nil {
		d.logger.Debug("notify: email sink not configured, skipping", "event", kind)
		return false
	}

	subject, body := d.format(kind, b, evctx)

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	failed := 0
	targets := d.targets(b)
	for _, to := range targets {
		msg := EmailMessage{
			To:      to,
			Subject: subject,
			Body:    body,
		}
		if to == b.AttendeeEmail {
			msg.ToName = b.AttendeeName
		}
		if err := d.email.Send(sendCtx, msg); err != nil {
			d.logger.Error("notify: dispatch failed",
				"event", kind,
				"booking_id", b.ID,
				"to", to,
				"error", err,
			)
			d.metrics.ObserveNotificationFailure(string(kind))
			failed++
			continue
		}
		d.logger.Info("notify: dispatched", "event", kind, "booking_id", b.ID, "to", to)
	}

	return failed == 0 && len(targets) > 0
}

func (d *Dispatcher) targets(b *booking.Booking) []string {
	var out []string
	if b.AttendeeEmail != "" {
		out = append(out, b.AttendeeEmail)
	}
	for _, r := range d.recipients {
		if r != "" && r != b.AttendeeEmail {
			out = append(out, r)
		}
	}
	return out
}

func (d *Dispatcher) format(kind booking.EventKind, b *booking.Booking, evctx booking.EventContext) (subject, body string) {
	property := evctx.PropertyTitle
	if property == "" {
		property = "the property"
	}
	when := formatLocal(b.ScheduledAt, b.Timezone)

	var sb strings.Builder
	switch kind {
	case booking.EventCreated:
		subject = fmt.Sprintf("Tour booked — %s", property)
		sb.WriteString(fmt.Sprintf("A virtual tour of %s has been booked.\n\n", property))
	case booking.EventConfirmed:
		subject = fmt.Sprintf("Tour confirmed — %s", property)
		sb.WriteString(fmt.Sprintf("Your virtual tour of %s has been confirmed by our team.\n\n", property))
	case booking.EventRescheduled:
		subject = fmt.Sprintf("Tour rescheduled — %s", property)
		if evctx.OldScheduledAt != nil {
			sb.WriteString(fmt.Sprintf("Your tour of %s has moved from %s to %s.\n\n",
				property, formatLocal(*evctx.OldScheduledAt, b.Timezone), when))
		} else {
			sb.WriteString(fmt.Sprintf("Your tour of %s has been rescheduled.\n\n", property))
		}
	case booking.EventCancelled:
		subject = fmt.Sprintf("Tour cancelled — %s", property)
		sb.WriteString(fmt.Sprintf("The virtual tour of %s scheduled for %s has been cancelled.\n\n", property, when))
	case booking.EventReminder:
		subject = fmt.Sprintf("Reminder: your tour of %s is coming up", property)
		sb.WriteString(fmt.Sprintf("This is a reminder that your virtual tour of %s is scheduled for %s.\n\n", property, when))
	default:
		subject = fmt.Sprintf("Tour update — %s", property)
	}

	if kind != booking.EventCancelled {
		sb.WriteString(fmt.Sprintf("When: %s (%s)\n", when, b.Timezone))
		sb.WriteString(fmt.Sprintf("Duration: %d minutes\n", b.DurationMins))
		sb.WriteString(fmt.Sprintf("Platform: %s\n", platformLabel(b.Platform)))
		if b.MeetingURL != nil && *b.MeetingURL != "" {
			sb.WriteString(fmt.Sprintf("Join link: %s\n", *b.MeetingURL))
		} else if b.Platform == booking.PlatformPhone {
			sb.WriteString("Our agent will call you at the scheduled time.\n")
		}
	}
	if evctx.PropertySlug != "" && d.baseURL != "" {
		sb.WriteString(fmt.Sprintf("\nProperty: %s/properties/%s\n", d.baseURL, evctx.PropertySlug))
	}
	sb.WriteString("\n— EstateOne")

	return subject, sb.String()
}

func formatLocal(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Monday, January 2 at 3:04 PM")
}

func platformLabel(p booking.Platform) string {
	switch p {
	case booking.PlatformGoogleMeet:
		return "Google Meet"
	case booking.PlatformTeams:
		return "Microsoft Teams"
	case booking.PlatformZoom:
		return "Zoom"
	case booking.PlatformPhone:
		return "Phone call"
	}
	return string(p)
}

var _ booking.Notifier = (*Dispatcher)(nil)
