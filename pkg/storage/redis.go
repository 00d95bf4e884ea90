package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "convoflow:session:"
	userKeyPrefix    = "convoflow:user:"
)

// RedisSessionStore persists sessions in Redis as JSON values. A secondary
// key maps user+flow to the session ID so lookups work both ways. A zero
// TTL means sessions never expire.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore connects to Redis at the given URL and verifies the
// connection with a ping.
func NewRedisSessionStore(url string, ttl time.Duration) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSessionStore{client: client, ttl: ttl}, nil
}

// NewRedisSessionStoreWithClient wraps an existing client. Useful for
// tests.
func NewRedisSessionStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Get returns the session with the given ID.
func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

// GetByUser returns the user's session for the named flow.
func (r *RedisSessionStore) GetByUser(ctx context.Context, userID, flowName string) (*Session, error) {
	id, err := r.client.Get(ctx, userKeyPrefix+userKey(userID, flowName)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user session: %w", err)
	}
	return r.Get(ctx, id)
}

// Put inserts or replaces a session.
func (r *RedisSessionStore) Put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.ID, data, r.ttl)
	pipe.Set(ctx, userKeyPrefix+userKey(s.UserID, s.FlowName), s.ID, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes a session and its user mapping.
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	pipe.Del(ctx, userKeyPrefix+userKey(s.UserID, s.FlowName))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}
