package domain

import (
	"time"

	"github.com/google/uuid"
)

// Challenge is a pending second-factor step. The raw token is handed to the
// client once; only its hash is stored.
type Challenge struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	TokenHash  string
	Surface    string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsValid reports whether the challenge can still be redeemed at now.
func (c *Challenge) IsValid(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}
