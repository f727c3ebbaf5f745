package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// OwnerSessionKeyPrefix maps an owner to their one live session
	OwnerSessionKeyPrefix = "owner_session:"
)

// SessionStore keeps opaque bearer tokens in Redis. Each owner has at most
// one live session; signing in again replaces it and restarts the 7-day timer.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Create issues a new token for ownerID.
func (s *SessionStore) Create(ctx context.Context, ownerID uuid.UUID) (string, error) {
	if err := s.InvalidateOwner(ctx, ownerID); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, ownerID.String(), SessionDuration)
	pipe.Set(ctx, OwnerSessionKeyPrefix+ownerID.String(), token, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Validate resolves a token to its owner. Unknown or expired tokens return ok=false.
func (s *SessionStore) Validate(ctx context.Context, token string) (uuid.UUID, bool, error) {
	if token == "" {
		return uuid.Nil, false, nil
	}
	raw, err := s.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, err
	}
	return ownerID, true, nil
}

// Invalidate removes a session (sign-out).
func (s *SessionStore) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	ownerID, err := s.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if err == nil && ownerID != "" {
		s.rdb.Del(ctx, OwnerSessionKeyPrefix+ownerID)
	}
	return s.rdb.Del(ctx, SessionKeyPrefix+token).Err()
}

// InvalidateOwner drops the owner's current session, if any.
func (s *SessionStore) InvalidateOwner(ctx context.Context, ownerID uuid.UUID) error {
	ownerKey := OwnerSessionKeyPrefix + ownerID.String()
	token, err := s.rdb.Get(ctx, ownerKey).Result()
	if err == nil && token != "" {
		s.rdb.Del(ctx, SessionKeyPrefix+token)
	}
	return s.rdb.Del(ctx, ownerKey).Err()
}
