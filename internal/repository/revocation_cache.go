package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/domain"
	"github.com/aryan0dhankhar/memedata/internal/observability/metrics"
	"github.com/aryan0dhankhar/memedata/internal/reliability/circuitbreaker"
)

const revokedKeyPrefix = "revoked:"

// RevocationCache is the subset of the Redis client used for revoked jtis
type RevocationCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CachedRevocationStore fronts the durable registry with a positive-only Redis cache.
// A cache hit proves revocation; a miss or a cache error always falls through to the store.
type CachedRevocationStore struct {
	store   domain.RevocationStore
	cache   RevocationCache
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewCachedRevocationStore wraps store with cache
func NewCachedRevocationStore(
	store domain.RevocationStore,
	cache RevocationCache,
	breaker *circuitbreaker.CircuitBreaker,
	logger *slog.Logger,
) *CachedRevocationStore {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	}
	return &CachedRevocationStore{
		store:   store,
		cache:   cache,
		breaker: breaker,
		logger:  logger,
	}
}

// Revoke writes the durable row first, then caches it until the token would have expired anyway
func (c *CachedRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := c.store.Revoke(ctx, jti, expiresAt); err != nil {
		return err
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 || !c.breaker.AllowRequest() {
		return nil
	}

	if err := c.cache.Set(ctx, revokedKeyPrefix+jti, "1", ttl); err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("failed to cache revoked token",
			slog.String("jti", jti),
			slog.String("error", err.Error()),
		)
		return nil
	}
	c.breaker.RecordSuccess()

	c.logger.Debug("revoked token cached", slog.String("jti", jti), slog.Duration("ttl", ttl))
	return nil
}

// IsRevoked consults the cache, then the durable store
func (c *CachedRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !c.breaker.AllowRequest() {
		metrics.ObserveRevocationCache("skipped")
		return c.store.IsRevoked(ctx, jti)
	}

	hit, err := c.cache.Exists(ctx, revokedKeyPrefix+jti)
	switch {
	case err != nil:
		c.breaker.RecordFailure()
		metrics.ObserveRevocationCache("error")
		c.logger.Warn("revocation cache lookup failed",
			slog.String("jti", jti),
			slog.String("error", err.Error()),
		)
	case hit:
		c.breaker.RecordSuccess()
		metrics.ObserveRevocationCache("hit")
		return true, nil
	default:
		c.breaker.RecordSuccess()
		metrics.ObserveRevocationCache("miss")
	}

	return c.store.IsRevoked(ctx, jti)
}
