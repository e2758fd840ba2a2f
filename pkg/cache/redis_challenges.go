// Package cache holds Redis-backed stores for short-lived authentication
// state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultChallengePrefix = "dailyfresh:challenge:"

var errDuplicateChallenge = errors.New("challenge token already exists")

// ChallengeStore keeps two-factor challenges in Redis with a TTL matching
// their expiry. Consumption deletes the key, so a token is redeemable once.
type ChallengeStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewChallengeStore creates a store. An empty prefix uses the default.
func NewChallengeStore(rdb redis.Cmdable, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = defaultChallengePrefix
	}
	return &ChallengeStore{rdb: rdb, prefix: prefix}
}

type challengeRecord struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Surface   string    `json:"surface"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *ChallengeStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

// Create stores a new challenge.
func (s *ChallengeStore) Create(ctx context.Context, c *domain.Challenge) error {
	ttl := c.ExpiresAt.Sub(c.CreatedAt)
	if ttl <= 0 {
		return errors.New("challenge already expired")
	}

	payload, err := json.Marshal(challengeRecord{
		ID:        c.ID,
		AccountID: c.AccountID,
		Surface:   c.Surface,
		CreatedAt: c.CreatedAt,
		ExpiresAt: c.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, s.key(c.TokenHash), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	if !ok {
		return errDuplicateChallenge
	}
	return nil
}

// GetByTokenHash loads a pending challenge.
func (s *ChallengeStore) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Challenge, error) {
	raw, err := s.rdb.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	return decodeChallenge(tokenHash, raw)
}

// Consume atomically removes the challenge. A missing key or one past its
// expiry at now reports domain.ErrChallengeExpired.
func (s *ChallengeStore) Consume(ctx context.Context, tokenHash string, now time.Time) error {
	raw, err := s.rdb.GetDel(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrChallengeExpired
	}
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}

	c, err := decodeChallenge(tokenHash, raw)
	if err != nil {
		return err
	}
	if !now.Before(c.ExpiresAt) {
		return domain.ErrChallengeExpired
	}
	return nil
}

func decodeChallenge(tokenHash string, raw []byte) (*domain.Challenge, error) {
	var rec challengeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return &domain.Challenge{
		ID:        rec.ID,
		AccountID: rec.AccountID,
		TokenHash: tokenHash,
		Surface:   rec.Surface,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}
