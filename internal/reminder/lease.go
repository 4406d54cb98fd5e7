package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/estateone/tour-engine/pkg/logging"
)

// Lease gates a tick so only one engine instance dispatches reminders when
// several run against the same store.
type Lease interface {
	// Acquire claims the key for ttl. Returns false when another holder
	// already claimed it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisLease implements Lease with a SET NX claim.
type RedisLease struct {
	client *redis.Client
	holder string
	logger *logging.Logger
}

// NewRedisLease creates a redis-backed lease. holder identifies this
// instance in the claim value for debugging.
func NewRedisLease(client *redis.Client, holder string, logger *logging.Logger) *RedisLease {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLease{client: client, holder: holder, logger: logger}
}

// Acquire claims key for ttl via SET NX.
func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, l.holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reminder: acquire lease %s: %w", key, err)
	}
	if !ok {
		l.logger.Debug("reminder: lease held elsewhere", "key", key)
	}
	return ok, nil
}

// NopLease always grants the claim. Used for single-instance deployments
// without redis.
type NopLease struct{}

// Acquire always succeeds.
func (NopLease) Acquire(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

var _ Lease = (*RedisLease)(nil)
var _ Lease = NopLease{}
