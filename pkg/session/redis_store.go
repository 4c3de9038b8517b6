package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisKey holds the single current session for this client installation.
const redisKey = "pulse:session"

// RedisStore persists the session in Redis with a server-side TTL matching
// the sliding window, so an idle session disappears even if the process
// never comes back to clear it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Load fetches the stored session. A missing key is not an error.
func (s *RedisStore) Load(ctx context.Context) (*Session, error) {
	data, err := s.client.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		// Corrupt entries are dropped rather than surfaced.
		s.client.Del(ctx, redisKey)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// Save stores the session, resetting the server-side TTL.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, redisKey, data, s.ttl).Err()
}

// Clear removes the stored session.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, redisKey).Err()
}
