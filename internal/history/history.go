// Package history keeps each user's recent search terms. Entries are
// keyed by the verified principal's user id; the service never accepts
// a caller-supplied user id.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrInvalidTerm = errors.New("history: invalid search term")

// Store is the persistence contract for search history.
type Store interface {
	Record(ctx context.Context, userID int64, term string) error
	Recent(ctx context.Context, userID int64, limit int64) ([]string, error)
	Clear(ctx context.Context, userID int64) error
}

const (
	defaultMaxEntries = 50
	defaultRetention  = 30 * 24 * time.Hour
)

// RedisStore keeps per-user history in a capped Redis list.
type RedisStore struct {
	rdb        *redis.Client
	maxEntries int64
	retention  time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb:        rdb,
		maxEntries: defaultMaxEntries,
		retention:  defaultRetention,
	}
}

func key(userID int64) string {
	return fmt.Sprintf("history:user:%d", userID)
}

func (s *RedisStore) Record(ctx context.Context, userID int64, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return ErrInvalidTerm
	}

	k := key(userID)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, k, term)
	pipe.LTrim(ctx, k, 0, s.maxEntries-1)
	pipe.Expire(ctx, k, s.retention)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Recent(ctx context.Context, userID int64, limit int64) ([]string, error) {
	if limit <= 0 || limit > s.maxEntries {
		limit = s.maxEntries
	}
	return s.rdb.LRange(ctx, key(userID), 0, limit-1).Result()
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, key(userID)).Err()
}
