package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	rediskeys "github.com/resource-mgmt/console/pkg/redis"
)

var (
	// ErrUnknownAccount is returned when no account matches.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrInvalidResetToken is returned for unknown or expired password reset tokens.
	ErrInvalidResetToken = errors.New("reset token is invalid or expired")
)

// RedisSessions stores revoked token ids and password reset tokens in Redis.
type RedisSessions struct {
	client *redis.Client
}

// NewRedisSessions creates a Redis-backed session store.
func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client}
}

// Revoke marks token id jti as revoked until its expiry.
func (s *RedisSessions) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, rediskeys.Key("revoked", jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked.
func (s *RedisSessions) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, rediskeys.Key("revoked", jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// IssueReset creates a single-use password reset token for email.
func (s *RedisSessions) IssueReset(ctx context.Context, email string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	if err := s.client.Set(ctx, rediskeys.Key("reset", token), email, ttl).Err(); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// ConsumeReset redeems a reset token and returns the email it was issued for.
func (s *RedisSessions) ConsumeReset(ctx context.Context, token string) (string, error) {
	email, err := s.client.GetDel(ctx, rediskeys.Key("reset", token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidResetToken
	}
	if err != nil {
		return "", fmt.Errorf("redeem reset token: %w", err)
	}
	return email, nil
}
