// resolver/resolver.go
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/boundary/cache"
	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
)

const (
	maxAttempts     = 3
	initialInterval = 500 * time.Millisecond
)

// Input patterns for the two hops of the translation chain.
const (
	SlackUserIDPattern = `^U[A-Z0-9]{2,}$`
	EmailPattern       = `^[^@\s]+@[^@\s]+\.[^@\s]+$`
)

// LookupFunc performs the underlying directory call for a key that
// passed input validation and missed the cache.
type LookupFunc func(ctx context.Context, key string) (string, error)

// CachedResolver is one hop of the identity translation chain: a
// strict input pattern, a bounded LRU cache with a short TTL, and
// retry with exponential backoff that applies only to rate limits.
// Resolved values are sensitive and are only ever logged at Debug.
type CachedResolver struct {
	name    string
	pattern *regexp.Regexp
	cache   *cache.Cache[string, string]
	lookup  LookupFunc
}

func New(name, pattern string, capacity int, ttl time.Duration, lookup LookupFunc) (*CachedResolver, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("resolver %s: invalid input pattern: %w", name, err)
	}
	c, err := cache.New[string, string](capacity, ttl)
	if err != nil {
		return nil, fmt.Errorf("resolver %s: %w", name, err)
	}
	return &CachedResolver{name: name, pattern: re, cache: c, lookup: lookup}, nil
}

func (r *CachedResolver) Resolve(ctx context.Context, key string) (string, error) {
	// Reject malformed input before spending a network call.
	if !r.pattern.MatchString(key) {
		return "", fmt.Errorf("resolver %s: malformed key: %w", r.name, boundary_errors.ErrInvalidInput)
	}

	if value, ok := r.cache.Get(key); ok {
		logger.Debug("Resolver cache hit", zap.String("resolver", r.name), zap.String("key", key))
		return value, nil
	}

	operation := func() (string, error) {
		value, err := r.lookup(ctx, key)
		if err != nil {
			// Only rate limits are retryable; everything else
			// propagates immediately.
			if !errors.Is(err, boundary_errors.ErrRateLimited) {
				return "", backoff.Permanent(err)
			}
			logger.Warn("Resolver rate limited, backing off", zap.String("resolver", r.name))
			return "", err
		}
		return value, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.RandomizationFactor = 0.5

	value, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		return "", fmt.Errorf("resolver %s: %w", r.name, err)
	}

	r.cache.Add(key, value)
	logger.Debug("Resolved key", zap.String("resolver", r.name), zap.String("key", key), zap.String("value", value))
	return value, nil
}
