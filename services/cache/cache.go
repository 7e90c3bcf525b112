// Package cachesvc holds the redis backed services: the levels cache and the login rate limiter.
package cachesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/level"
)

// NewClient connects to the configured redis server.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type LevelCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ level.Cache = (*LevelCache)(nil)

func NewLevelCache(client *redis.Client, conf *core.Config) *LevelCache {
	return &LevelCache{
		client: client,
		key:    fmt.Sprintf("%s:levels", conf.AppName),
		ttl:    conf.Redis.LevelCacheTTL,
	}
}

func (c *LevelCache) GetLevels(ctx context.Context) ([]level.Level, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "getting cached levels")
	}
	var levels []level.Level
	if err = json.Unmarshal(data, &levels); err != nil {
		return nil, false, errors.Wrap(err, "decoding cached levels")
	}
	return levels, true, nil
}

func (c *LevelCache) SetLevels(ctx context.Context, levels []level.Level) error {
	if levels == nil {
		levels = []level.Level{}
	}
	data, err := json.Marshal(levels)
	if err != nil {
		return errors.Wrap(err, "encoding levels")
	}
	return errors.Wrap(c.client.Set(ctx, c.key, data, c.ttl).Err(), "caching levels")
}

func (c *LevelCache) InvalidateLevels(ctx context.Context) error {
	return errors.Wrap(c.client.Del(ctx, c.key).Err(), "invalidating cached levels")
}

// LoginLimiter counts login attempts per key (e.g. email or client IP) in a fixed window.
type LoginLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewLoginLimiter(client *redis.Client, conf *core.Config) *LoginLimiter {
	return &LoginLimiter{
		client: client,
		prefix: fmt.Sprintf("%s:login_attempts:", conf.AppName),
		limit:  conf.Redis.LoginAttempts,
		window: conf.Redis.LoginWindow,
	}
}

// Hit records an attempt for key. When the limit is exceeded it returns false and the time
// left before the window resets.
func (l *LoginLimiter) Hit(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, errors.Wrap(err, "counting login attempts")
	}
	// first attempt of the window
	if count == 1 {
		if err = l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, errors.Wrap(err, "setting login window")
		}
	}
	if count > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, k).Result()
		if err != nil {
			return false, 0, errors.Wrap(err, "getting login window")
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

// Reset forgets the attempts of key, after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(l.client.Del(ctx, l.prefix+key).Err(), "resetting login attempts")
}
