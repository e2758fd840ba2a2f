package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
)

const (
	// DefaultChallengeTTL bounds how long a password-verified login may wait
	// for its second factor.
	DefaultChallengeTTL = 5 * time.Minute

	challengeTokenLen = 32
)

// ChallengeStore persists pending two-factor challenges by token hash.
type ChallengeStore interface {
	Create(ctx context.Context, challenge *domain.Challenge) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Challenge, error)
	// Consume redeems a challenge exactly once; later calls, and calls after
	// expiry, return domain.ErrChallengeExpired.
	Consume(ctx context.Context, tokenHash string, now time.Time) error
}

// HashToken hashes a token using SHA-256.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// generateToken generates a cryptographically secure random token
func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
