package issuer

import (
	"context"
	"fmt"
	"time"

	"canteen-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	defaultThrottleLimit  = 5
	defaultThrottleWindow = 15 * time.Minute
)

// RedisThrottle counts failed logins per username in a TTL-armed Redis
// counter. When the counter reaches the limit, issuance for that
// username is refused until the window expires.
type RedisThrottle struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisThrottle(rdb *redis.Client) *RedisThrottle {
	return &RedisThrottle{
		rdb:    rdb,
		limit:  defaultThrottleLimit,
		window: defaultThrottleWindow,
	}
}

func throttleKey(username string) string {
	return fmt.Sprintf("login:failures:%s", username)
}

func (t *RedisThrottle) TooManyFailures(ctx context.Context, username string) (bool, error) {
	n, err := utils.GetCounter(ctx, t.rdb, throttleKey(username))
	if err != nil {
		return false, err
	}
	return n >= t.limit, nil
}

func (t *RedisThrottle) RecordFailure(ctx context.Context, username string) error {
	_, err := utils.IncrCounterWithTTL(ctx, t.rdb, throttleKey(username), t.window)
	return err
}

func (t *RedisThrottle) Reset(ctx context.Context, username string) error {
	return utils.DelCounter(ctx, t.rdb, throttleKey(username))
}
