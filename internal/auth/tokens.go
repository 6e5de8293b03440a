package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRefreshToken is returned when a presented refresh token does not match
// the one on record (expired, rotated or never issued).
var ErrRefreshToken = errors.New("refresh token not recognized")

// TokenStore keeps the current refresh token per user in Redis, expiring it
// with the token itself. Issuing a new pair rotates the stored value, so at
// most one refresh token is live per user.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore wraps a redis client.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func refreshKey(userID string) string {
	return "rollcall:refresh:" + userID
}

// SaveRefresh records the user's current refresh token until expiry.
func (t *TokenStore) SaveRefresh(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Set(ctx, refreshKey(userID), token, time.Until(expiresAt)).Err()
}

// CheckRefresh verifies that token is the user's current refresh token.
func (t *TokenStore) CheckRefresh(ctx context.Context, userID, token string) error {
	if t == nil || t.client == nil {
		return ErrRefreshToken
	}
	stored, err := t.client.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrRefreshToken
	}
	if err != nil {
		return err
	}
	if stored != token {
		return ErrRefreshToken
	}
	return nil
}
