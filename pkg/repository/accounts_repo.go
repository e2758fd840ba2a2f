package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/google/uuid"
)

const accountColumns = `id, email, password_hash, failed_login_attempts, lockout_until,
		       is_two_factor_enabled, two_factor_secret, role`

// AccountsRepository handles the credential columns of the users table.
type AccountsRepository struct {
	db Querier
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db Querier) *AccountsRepository {
	return &AccountsRepository{db: db}
}

// GetByEmail retrieves an account by email, compared case-insensitively.
func (r *AccountsRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM users
		WHERE lower(email) = lower($1)
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves an account by ID.
func (r *AccountsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM users
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// RecordFailedAttempt increments the failed login counter in a single
// statement and sets lockout_until to lockUntil once the new count reaches
// maxAttempts. An existing lockout is left in place below the threshold.
// It returns the counter state after the update.
func (r *AccountsRepository) RecordFailedAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (*domain.LockoutState, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    lockout_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3::timestamptz
		        ELSE lockout_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts, lockout_until
	`
	state := &domain.LockoutState{}
	err := r.db.QueryRowContext(ctx, query, id, maxAttempts, lockUntil).Scan(
		&state.FailedLoginAttempts, &state.LockoutUntil,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record failed login attempt: %w", err)
	}
	return state, nil
}

// ResetFailedAttempts resets the failed login counter and clears lockout.
func (r *AccountsRepository) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    lockout_until = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reset failed login attempts: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountsRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	var role string
	err := row.Scan(
		&account.ID, &account.Email, &account.PasswordHash,
		&account.FailedLoginAttempts, &account.LockoutUntil,
		&account.TwoFactorEnabled, &account.TwoFactorSecret, &role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	account.Role = domain.Role(role)
	return account, nil
}
