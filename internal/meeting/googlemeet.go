package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/pkg/logging"
)

// Setting keys for the Google Calendar integration.
const (
	SettingGoogleClientID     = "google_client_id"
	SettingGoogleClientSecret = "google_client_secret"
	SettingGoogleRefreshToken = "google_refresh_token"
)

const (
	googleTokenURL  = "https://oauth2.googleapis.com/token"
	googleEventsURL = "https://www.googleapis.com/calendar/v3/calendars/primary/events?conferenceDataVersion=1"
)

// GoogleMeetProvider provisions Meet links by inserting a calendar event
// with a conference-data request and reading back the generated hangout
// link.
type GoogleMeetProvider struct {
	creds  CredentialSource
	client *http.Client
	logger *logging.Logger
}

// NewGoogleMeetProvider creates a Google Meet provider.
func NewGoogleMeetProvider(creds CredentialSource, client *http.Client, logger *logging.Logger) *GoogleMeetProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleMeetProvider{creds: creds, client: client, logger: logger}
}

// Platform returns the Google Meet platform tag.
func (p *GoogleMeetProvider) Platform() booking.Platform { return booking.PlatformGoogleMeet }

// Configured reports whether the Google OAuth client and refresh token are
// all present.
func (p *GoogleMeetProvider) Configured(ctx context.Context) bool {
	return allPresent(ctx, p.creds, SettingGoogleClientID, SettingGoogleClientSecret, SettingGoogleRefreshToken)
}

// PlaceholderLink returns a Meet-styled placeholder.
func (p *GoogleMeetProvider) PlaceholderLink() string { return meetPlaceholder() }

// CreateMeeting exchanges the refresh token for an access token, inserts a
// calendar event requesting a Meet conference, and returns the hangout
// link.
func (p *GoogleMeetProvider) CreateMeeting(ctx context.Context, req booking.MeetingRequest) (string, error) {
	values, err := p.creds.Values(ctx, SettingGoogleClientID, SettingGoogleClientSecret, SettingGoogleRefreshToken)
	if err != nil {
		return "", fmt.Errorf("meeting: google credentials: %w", err)
	}

	token, err := p.fetchToken(ctx, values)
	if err != nil {
		return "", err
	}

	end := req.StartTime.Add(time.Duration(req.DurationMins) * time.Minute)
	event := map[string]any{
		"summary": req.Title,
		"start":   map[string]string{"dateTime": req.StartTime.UTC().Format(time.RFC3339), "timeZone": "UTC"},
		"end":     map[string]string{"dateTime": end.UTC().Format(time.RFC3339), "timeZone": "UTC"},
		"conferenceData": map[string]any{
			"createRequest": map[string]any{
				"requestId":             uuid.NewString(),
				"conferenceSolutionKey": map[string]string{"type": "hangoutsMeet"},
			},
		},
	}
	if req.AttendeeEmail != "" {
		event["attendees"] = []map[string]string{{
			"email":       req.AttendeeEmail,
			"displayName": req.AttendeeName,
		}}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("meeting: google payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, googleEventsURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("meeting: google request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("meeting: google create: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("meeting: google create returned status %d", resp.StatusCode)
	}

	var created struct {
		HangoutLink string `json:"hangoutLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("meeting: google decode: %w", err)
	}
	if created.HangoutLink == "" {
		return "", fmt.Errorf("meeting: google response missing hangoutLink")
	}
	return created.HangoutLink, nil
}

func (p *GoogleMeetProvider) fetchToken(ctx context.Context, values map[string]string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", values[SettingGoogleClientID])
	form.Set("client_secret", values[SettingGoogleClientSecret])
	form.Set("refresh_token", values[SettingGoogleRefreshToken])

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("meeting: google token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("meeting: google token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("meeting: google token returned status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("meeting: google token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("meeting: google token response missing access_token")
	}
	return tok.AccessToken, nil
}

var _ Provider = (*GoogleMeetProvider)(nil)
