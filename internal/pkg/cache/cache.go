package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// VersionedCache stores JSON values under keys that embed a per-scope version.
// Bumping a scope makes every key built before the bump unreachable; the old
// entries expire through their TTL.
type VersionedCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New returns a cache helper. A nil client turns every call into a pass-through.
func New(client *redis.Client, prefix string, ttl time.Duration) *VersionedCache {
	return &VersionedCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *VersionedCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *VersionedCache) versionKey(scope string) string {
	return fmt.Sprintf("%s:version:%s", c.prefix, scope)
}

// Version returns the current version of scope, initialising when missing.
func (c *VersionedCache) Version(ctx context.Context, scope string) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	key := c.versionKey(scope)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX so concurrent initialisers agree on the first version
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes prefix, scope, parts and the current version of scope.
func (c *VersionedCache) BuildKey(ctx context.Context, scope string, parts ...string) (string, error) {
	if !c.enabled() {
		return strings.Join(append([]string{scope}, parts...), ":"), nil
	}
	base := strings.Join(append([]string{c.prefix, scope}, parts...), ":")
	ver, err := c.Version(ctx, scope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", base, ver), nil
}

// FetchJSON loads a cached value into dest or populates it using the loader.
func (c *VersionedCache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every key of scope.
func (c *VersionedCache) Bump(ctx context.Context, scope string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey(scope)).Err()
}
