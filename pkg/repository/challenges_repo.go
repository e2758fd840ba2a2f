package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
)

// ChallengesRepository handles two-factor challenge persistence.
type ChallengesRepository struct {
	db Querier
}

// NewChallengesRepository creates a new challenges repository.
func NewChallengesRepository(db Querier) *ChallengesRepository {
	return &ChallengesRepository{db: db}
}

// Create stores a new challenge.
func (r *ChallengesRepository) Create(ctx context.Context, challenge *domain.Challenge) error {
	query := `
		INSERT INTO login_challenges (id, account_id, token_hash, surface, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		challenge.ID, challenge.AccountID, challenge.TokenHash, challenge.Surface,
		challenge.CreatedAt, challenge.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

// GetByTokenHash retrieves a challenge by token hash. Consumed and expired
// challenges are returned too; callers check IsValid.
func (r *ChallengesRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Challenge, error) {
	query := `
		SELECT id, account_id, token_hash, surface, created_at, expires_at, consumed_at
		FROM login_challenges
		WHERE token_hash = $1
	`
	c := &domain.Challenge{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&c.ID, &c.AccountID, &c.TokenHash, &c.Surface,
		&c.CreatedAt, &c.ExpiresAt, &c.ConsumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

// Consume marks a challenge as used. Only one caller can consume a given
// challenge, and only before it expires; everyone else gets
// domain.ErrChallengeExpired.
func (r *ChallengesRepository) Consume(ctx context.Context, tokenHash string, now time.Time) error {
	query := `
		UPDATE login_challenges
		SET consumed_at = $2
		WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2
	`
	result, err := r.db.ExecContext(ctx, query, tokenHash, now)
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrChallengeExpired
	}
	return nil
}
