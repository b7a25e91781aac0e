package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session state in Redis. Rotation uses a MULTI/EXEC
// pipeline so the three-key update is all-or-nothing.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis with short timeouts so a dead store
// surfaces as ErrStoreUnavailable instead of a hung request.
func NewRedisStore(addr string) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &RedisStore{client: client}
}

// NewRedisStoreWithClient wraps an existing client (shared with the queue).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying connection for sharing with other
// Redis-backed components.
func (s *RedisStore) Client() *redis.Client { return s.client }

// Healthy verifies redis connectivity.
func (s *RedisStore) Healthy(ctx context.Context) bool {
	if s == nil || s.client == nil {
		return false
	}
	return s.client.Ping(ctx).Err() == nil
}

func (s *RedisStore) SecretCode(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, keySecretCode).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", ErrStoreUnavailable, keySecretCode, err)
	}
	return val, nil
}

func (s *RedisStore) SecretTimestamp(ctx context.Context) (float64, error) {
	val, err := s.client.Get(ctx, keySecretTimestamp).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get %s: %v", ErrStoreUnavailable, keySecretTimestamp, err)
	}
	ts, err := strconv.ParseFloat(val, 64)
	if err != nil {
		// Unparseable timestamp reads as never-rotated; the next resolve
		// rotates and rewrites it.
		return 0, nil
	}
	return ts, nil
}

func (s *RedisStore) Rotate(ctx context.Context, code string, at time.Time) error {
	ts := strconv.FormatFloat(float64(at.UnixNano())/float64(time.Second), 'f', -1, 64)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keySecretCode, code, 0)
		pipe.Set(ctx, keySecretTimestamp, ts, 0)
		pipe.Del(ctx, keyAttendanceLog)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: rotate: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) AddPresent(ctx context.Context, identity string) error {
	if err := s.client.SAdd(ctx, keyAttendanceLog, identity).Err(); err != nil {
		return fmt.Errorf("%w: sadd %s: %v", ErrStoreUnavailable, keyAttendanceLog, err)
	}
	return nil
}

func (s *RedisStore) ListPresent(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, keyAttendanceLog).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: smembers %s: %v", ErrStoreUnavailable, keyAttendanceLog, err)
	}
	return members, nil
}
