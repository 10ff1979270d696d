// Package cache provides a Redis-backed read-through cache for principal
// profiles. Authorize sits on every data-access request, so profile reads
// are the hottest store query; a short TTL plus explicit invalidation on
// deactivation keeps the inactive-denial guarantee intact.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"balangay/internal/principal"
	id "balangay/pkg/domain"
)

// ProfileCache caches principal profiles in Redis.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

func key(pid id.PrincipalID) string {
	return "principal:" + pid.String()
}

// Get returns the cached profile, or (nil, nil) on a miss.
func (c *ProfileCache) Get(ctx context.Context, pid id.PrincipalID) (*principal.Principal, error) {
	raw, err := c.client.Get(ctx, key(pid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var p principal.Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		// Treat undecodable entries as a miss; the store is authoritative.
		_ = c.client.Del(ctx, key(pid)).Err()
		return nil, nil
	}
	return &p, nil
}

// Set stores the profile with the configured TTL.
func (c *ProfileCache) Set(ctx context.Context, p *principal.Principal) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, key(p.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached profile, e.g. after deactivation.
func (c *ProfileCache) Invalidate(ctx context.Context, pid id.PrincipalID) error {
	if err := c.client.Del(ctx, key(pid)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
