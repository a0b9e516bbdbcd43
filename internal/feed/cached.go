package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "feed:fixture:"

// Cached keeps finished fixtures in Redis. A final score never changes, so only
// finished fixtures are stored; everything else goes to the upstream feed.
type Cached struct {
	next  Feed
	redis *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewCached(next Feed, client *redis.Client, ttl time.Duration, log *slog.Logger) *Cached {
	return &Cached{next: next, redis: client, ttl: ttl, log: log}
}

func (c *Cached) Fixture(ctx context.Context, id string) (Fixture, error) {
	key := cacheKeyPrefix + id

	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var f Fixture
		if jsonErr := json.Unmarshal(raw, &f); jsonErr == nil {
			return f, nil
		}
		c.log.Warn("fixture cache entry unreadable", "fixture_id", id)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("fixture cache read failed", "fixture_id", id, "error", err)
	}

	f, err := c.next.Fixture(ctx, id)
	if err != nil {
		return Fixture{}, err
	}
	if f.Finished() {
		if b, mErr := json.Marshal(f); mErr == nil {
			if setErr := c.redis.Set(ctx, key, b, c.ttl).Err(); setErr != nil {
				c.log.Warn("fixture cache write failed", "fixture_id", id, "error", setErr)
			}
		}
	}
	return f, nil
}
