package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/pkg/logging"
)

// Setting keys for the Zoom server-to-server OAuth app.
const (
	SettingZoomAccountID    = "zoom_account_id"
	SettingZoomClientID     = "zoom_client_id"
	SettingZoomClientSecret = "zoom_client_secret"
)

const (
	zoomTokenURL   = "https://zoom.us/oauth/token"
	zoomMeetingURL = "https://api.zoom.us/v2/users/me/meetings"
)

// ZoomProvider provisions Zoom meetings via the server-to-server OAuth
// flow: an account-credentials token exchange followed by a meeting-create
// call.
type ZoomProvider struct {
	creds  CredentialSource
	client *http.Client
	logger *logging.Logger
}

// NewZoomProvider creates a Zoom provider.
func NewZoomProvider(creds CredentialSource, client *http.Client, logger *logging.Logger) *ZoomProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ZoomProvider{creds: creds, client: client, logger: logger}
}

// Platform returns the Zoom platform tag.
func (p *ZoomProvider) Platform() booking.Platform { return booking.PlatformZoom }

// Configured reports whether the Zoom account id and client credentials are
// all present.
func (p *ZoomProvider) Configured(ctx context.Context) bool {
	return allPresent(ctx, p.creds, SettingZoomAccountID, SettingZoomClientID, SettingZoomClientSecret)
}

// PlaceholderLink returns a Zoom-styled placeholder.
func (p *ZoomProvider) PlaceholderLink() string { return zoomPlaceholder() }

// CreateMeeting exchanges credentials for an access token and creates a
// meeting, returning its join URL.
func (p *ZoomProvider) CreateMeeting(ctx context.Context, req booking.MeetingRequest) (string, error) {
	values, err := p.creds.Values(ctx, SettingZoomAccountID, SettingZoomClientID, SettingZoomClientSecret)
	if err != nil {
		return "", fmt.Errorf("meeting: zoom credentials: %w", err)
	}

	token, err := p.fetchToken(ctx, values)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"topic":      req.Title,
		"type":       2, // scheduled meeting
		"start_time": req.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
		"duration":   req.DurationMins,
		"timezone":   "UTC",
		"settings": map[string]any{
			"join_before_host": true,
			"waiting_room":     false,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("meeting: zoom payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, zoomMeetingURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("meeting: zoom request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("meeting: zoom create: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("meeting: zoom create returned status %d", resp.StatusCode)
	}

	var created struct {
		JoinURL string `json:"join_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("meeting: zoom decode: %w", err)
	}
	if created.JoinURL == "" {
		return "", fmt.Errorf("meeting: zoom response missing join_url")
	}
	return created.JoinURL, nil
}

func (p *ZoomProvider) fetchToken(ctx context.Context, values map[string]string) (string, error) {
	q := url.Values{}
	q.Set("grant_type", "account_credentials")
	q.Set("account_id", values[SettingZoomAccountID])

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, zoomTokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("meeting: zoom token request: %w", err)
	}
	httpReq.SetBasicAuth(values[SettingZoomClientID], values[SettingZoomClientSecret])

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("meeting: zoom token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("meeting: zoom token returned status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("meeting: zoom token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("meeting: zoom token response missing access_token")
	}
	return tok.AccessToken, nil
}

// allPresent reports whether every key resolves to a non-empty value.
func allPresent(ctx context.Context, creds CredentialSource, keys ...string) bool {
	if creds == nil {
		return false
	}
	values, err := creds.Values(ctx, keys...)
	if err != nil {
		return false
	}
	for _, k := range keys {
		if values[k] == "" {
			return false
		}
	}
	return true
}

var _ Provider = (*ZoomProvider)(nil)
