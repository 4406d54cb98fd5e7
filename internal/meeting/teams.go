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

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/pkg/logging"
)

// Setting keys for the Microsoft Teams (Graph API) integration.
const (
	SettingTeamsTenantID     = "teams_tenant_id"
	SettingTeamsClientID     = "teams_client_id"
	SettingTeamsClientSecret = "teams_client_secret"
	SettingTeamsAccountID    = "teams_account_id"
)

const (
	teamsTokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	teamsMeetingsFormat = "https://graph.microsoft.com/v1.0/users/%s/onlineMeetings"
)

// TeamsProvider provisions Teams meetings via the Microsoft Graph
// client-credentials flow.
type TeamsProvider struct {
	creds  CredentialSource
	client *http.Client
	logger *logging.Logger
}

// NewTeamsProvider creates a Teams provider.
func NewTeamsProvider(creds CredentialSource, client *http.Client, logger *logging.Logger) *TeamsProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TeamsProvider{creds: creds, client: client, logger: logger}
}

// Platform returns the Teams platform tag.
func (p *TeamsProvider) Platform() booking.Platform { return booking.PlatformTeams }

// Configured reports whether the tenant, client credentials, and organizer
// account are all present.
func (p *TeamsProvider) Configured(ctx context.Context) bool {
	return allPresent(ctx, p.creds,
		SettingTeamsTenantID, SettingTeamsClientID, SettingTeamsClientSecret, SettingTeamsAccountID)
}

// PlaceholderLink returns a Teams-styled placeholder.
func (p *TeamsProvider) PlaceholderLink() string { return teamsPlaceholder() }

// CreateMeeting exchanges client credentials for a Graph token and creates
// an online meeting under the organizer account, returning its join URL.
func (p *TeamsProvider) CreateMeeting(ctx context.Context, req booking.MeetingRequest) (string, error) {
	values, err := p.creds.Values(ctx,
		SettingTeamsTenantID, SettingTeamsClientID, SettingTeamsClientSecret, SettingTeamsAccountID)
	if err != nil {
		return "", fmt.Errorf("meeting: teams credentials: %w", err)
	}

	token, err := p.fetchToken(ctx, values)
	if err != nil {
		return "", err
	}

	end := req.StartTime.Add(time.Duration(req.DurationMins) * time.Minute)
	payload := map[string]any{
		"subject":       req.Title,
		"startDateTime": req.StartTime.UTC().Format(time.RFC3339),
		"endDateTime":   end.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("meeting: teams payload: %w", err)
	}

	endpoint := fmt.Sprintf(teamsMeetingsFormat, values[SettingTeamsAccountID])
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("meeting: teams request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("meeting: teams create: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("meeting: teams create returned status %d", resp.StatusCode)
	}

	var created struct {
		JoinWebURL string `json:"joinWebUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("meeting: teams decode: %w", err)
	}
	if created.JoinWebURL == "" {
		return "", fmt.Errorf("meeting: teams response missing joinWebUrl")
	}
	return created.JoinWebURL, nil
}

func (p *TeamsProvider) fetchToken(ctx context.Context, values map[string]string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", values[SettingTeamsClientID])
	form.Set("client_secret", values[SettingTeamsClientSecret])
	form.Set("scope", "https://graph.microsoft.com/.default")

	endpoint := fmt.Sprintf(teamsTokenURLFormat, values[SettingTeamsTenantID])
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("meeting: teams token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("meeting: teams token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("meeting: teams token returned status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("meeting: teams token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("meeting: teams token response missing access_token")
	}
	return tok.AccessToken, nil
}

var _ Provider = (*TeamsProvider)(nil)
