package meeting

import (
	"context"
	"fmt"
	"time"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/internal/observability/metrics"
	"github.com/estateone/tour-engine/pkg/logging"
)

// CredentialSource looks up named provider settings. A provider is
// configured iff all of its required keys are present and non-empty.
type CredentialSource interface {
	Values(ctx context.Context, keys ...string) (map[string]string, error)
}

// Provider provisions meetings for a single conferencing platform.
type Provider interface {
	Platform() booking.Platform
	// Configured reports whether real provider credentials are available.
	// It is a capability check, not a network call.
	Configured(ctx context.Context) bool
	// CreateMeeting performs the real provider exchange and returns a join
	// URL.
	CreateMeeting(ctx context.Context, req booking.MeetingRequest) (string, error)
	// PlaceholderLink synthesizes a provider-styled link.
	PlaceholderLink() string
}

// Registry dispatches provisioning by platform. Phone tours need no link.
// Provider failures degrade to placeholder links and never propagate: a
// failed video-link call must not block the booking itself.
type Registry struct {
	providers map[booking.Platform]Provider
	metrics   *metrics.EngineMetrics
	logger    *logging.Logger
	timeout   time.Duration
}

// NewRegistry creates a provisioner registry from the given providers.
func NewRegistry(m *metrics.EngineMetrics, logger *logging.Logger, timeout time.Duration, providers ...Provider) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	byPlatform := make(map[booking.Platform]Provider, len(providers))
	for _, p := range providers {
		byPlatform[p.Platform()] = p
	}
	return &Registry{
		providers: byPlatform,
		metrics:   m,
		logger:    logger,
		timeout:   timeout,
	}
}

// Provision returns a join link for the platform, or nil for phone tours.
func (r *Registry) Provision(ctx context.Context, platform booking.Platform, req booking.MeetingRequest) (*string, error) {
	if platform == booking.PlatformPhone {
		return nil, nil
	}
	p, ok := r.providers[platform]
	if !ok {
		return nil, fmt.Errorf("meeting: no provider registered for platform %q", platform)
	}

	if !p.Configured(ctx) {
		r.logger.Debug("provider not configured, using placeholder link", "platform", platform)
		link := p.PlaceholderLink()
		return &link, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	url, err := p.CreateMeeting(callCtx, req)
	if err != nil {
		r.logger.Warn("meeting provisioning degraded to placeholder",
			"platform", platform,
			"error", err,
		)
		r.metrics.ObserveProvisionFallback(string(platform))
		link := p.PlaceholderLink()
		return &link, nil
	}

	r.logger.Info("meeting provisioned", "platform", platform, "start", req.StartTime.Format(time.RFC3339))
	return &url, nil
}

var _ booking.MeetingProvisioner = (*Registry)(nil)
