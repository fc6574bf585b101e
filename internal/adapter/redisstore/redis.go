// Package redisstore implements session storage on Redis. Sessions expire through
// Redis key TTLs, so DeleteExpired has nothing to do.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"msgboard/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "msgboard:session:"

// ErrExpired is returned by Create for a session whose expiry has passed.
var ErrExpired = errors.New("session already expired")

// SessionRepo implements domain.SessionRepository on a Redis client.
type SessionRepo struct {
	client *redis.Client
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// Open parses url, connects and pings.
func Open(ctx context.Context, url string) (*SessionRepo, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &SessionRepo{client: client}, nil
}

// Close closes the underlying client.
func (r *SessionRepo) Close() error {
	return r.client.Close()
}

func sessionKey(token string) string {
	return keyPrefix + token
}

// Create stores a session that expires at expiresAt. Redis keys need a
// positive TTL, so an expiry in the past is rejected with ErrExpired.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return ErrExpired
	}
	data, err := json.Marshal(domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(token), data, ttl).Err()
}

// GetByToken retrieves a session by token, or nil if it does not exist.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	val, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKey(token)).Err()
}

// DeleteExpired is a no-op; Redis evicts expired keys itself.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	return nil
}
