package authz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "authz:perms:"

// PermissionCache is a TTL-bounded redis cache for effective-permission
// sets. Staleness is bounded by the TTL; suspensions and revocations are
// reflected at the latest one TTL later on this read path. Role-level and
// role-membership checks are never cached.
type PermissionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPermissionCache constructs a cache.
func NewPermissionCache(rdb *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached permission set, if present.
func (c *PermissionCache) Get(ctx context.Context, key string) ([]string, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal(data, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

// Set stores the permission set. Failures are ignored; the cache is an
// optimization, not a source of truth.
func (c *PermissionCache) Set(ctx context.Context, key string, perms []string) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(perms)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err()
}

// Invalidate drops the cached set for one member/org pair.
func (c *PermissionCache) Invalidate(ctx context.Context, orgID, memberID string) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, cacheKeyPrefix+orgID+":"+memberID).Err()
}
