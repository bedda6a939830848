package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps revoked refresh tokens and pending OTPs.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	SaveOTP(ctx context.Context, userID int64, rec OTPRecord, ttl time.Duration) error
	LoadOTP(ctx context.Context, userID int64) (OTPRecord, bool, error)
	DeleteOTP(ctx context.Context, userID int64) error
}

// RedisStore implements TokenStore on Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ TokenStore = (*RedisStore)(nil)

func revokedKey(jti string) string { return "auth:revoked:" + jti }

func otpKey(userID int64) string { return fmt.Sprintf("auth:otp:%d", userID) }

// Revoke blacklists a token id until ttl passes.
func (s *RedisStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

// IsRevoked reports whether a token id is blacklisted.
func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveOTP stores the record, replacing any previous code.
func (s *RedisStore) SaveOTP(ctx context.Context, userID int64, rec OTPRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, otpKey(userID), raw, ttl).Err()
}

// LoadOTP returns the stored record, if any.
func (s *RedisStore) LoadOTP(ctx context.Context, userID int64) (OTPRecord, bool, error) {
	raw, err := s.client.Get(ctx, otpKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OTPRecord{}, false, nil
	}
	if err != nil {
		return OTPRecord{}, false, err
	}
	var rec OTPRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return OTPRecord{}, false, err
	}
	return rec, true, nil
}

// DeleteOTP removes the stored record.
func (s *RedisStore) DeleteOTP(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, otpKey(userID)).Err()
}
