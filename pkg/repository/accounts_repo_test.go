package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var accountRowColumns = []string{
	"id", "email", "password_hash", "failed_login_attempts", "lockout_until",
	"is_two_factor_enabled", "two_factor_secret", "role",
}

func TestAccountsRepository_GetByEmail_Found(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepository(db)

	id := uuid.New()
	lockout := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(id.String(), "alice@x.com", "$2a$10$hash", 3, lockout, true, "JBSWY3DPEHPK3PXP", "CUSTOMER")

	mock.ExpectQuery(`(?s)SELECT .* FROM users\s+WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("Alice@X.com").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "Alice@X.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != id || got.Email != "alice@x.com" {
		t.Errorf("unexpected account identity: %+v", got)
	}
	if got.PasswordHash == nil || *got.PasswordHash != "$2a$10$hash" {
		t.Errorf("PasswordHash = %v, want $2a$10$hash", got.PasswordHash)
	}
	if got.FailedLoginAttempts != 3 {
		t.Errorf("FailedLoginAttempts = %d, want 3", got.FailedLoginAttempts)
	}
	if got.LockoutUntil == nil || !got.LockoutUntil.Equal(lockout) {
		t.Errorf("LockoutUntil = %v, want %v", got.LockoutUntil, lockout)
	}
	if !got.TwoFactorEnabled || got.TwoFactorSecret == nil {
		t.Error("expected two-factor fields to be populated")
	}
	if got.Role != domain.RoleCustomer {
		t.Errorf("Role = %q, want %q", got.Role, domain.RoleCustomer)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAccountsRepository_GetByEmail_NullHash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepository(db)

	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(uuid.New().String(), "social@x.com", nil, 0, nil, false, nil, "CUSTOMER")
	mock.ExpectQuery(`FROM users`).WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "social@x.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.HasPassword() {
		t.Error("account with NULL password_hash should have no password")
	}
	if got.LockoutUntil != nil {
		t.Errorf("LockoutUntil = %v, want nil", got.LockoutUntil)
	}
}

func TestAccountsRepository_GetByEmail_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepository(db)

	mock.ExpectQuery(`FROM users`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@x.com")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountsRepository_GetByID_DBError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepository(db)

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), uuid.New())
	if err == nil || errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestAccountsRepository_RecordFailedAttempt(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepository(db)

	id := uuid.New()
	lockUntil := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	// The increment and the threshold check happen in one statement.
	mock.ExpectQuery(`(?s)UPDATE users\s+SET failed_login_attempts = failed_login_attempts \+ 1,.*WHEN failed_login_attempts \+ 1 >= \$2 THEN \$3::timestamptz.*RETURNING failed_login_attempts, lockout_until`).
		WithArgs(id, 5, lockUntil).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts", "lockout_until"}).AddRow(5, lockUntil))

	state, err := repo.RecordFailedAttempt(context.Background(), id, 5, lockUntil)
	if err != nil {
		t.Fatalf("RecordFailedAttempt error: %v", err)
	}
	if state.FailedLoginAttempts != 5 {
		t.Errorf("FailedLoginAttempts = %d, want 5", state.FailedLoginAttempts)
	}
	if state.LockoutUntil == nil || !state.LockoutUntil.Equal(lockUntil) {
		t.Errorf("LockoutUntil = %v, want %v", state.LockoutUntil, lockUntil)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAccountsRepository_RecordFailedAttempt_BelowThreshold(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepository(db)

	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts", "lockout_until"}).AddRow(2, nil))

	state, err := repo.RecordFailedAttempt(context.Background(), uuid.New(), 5, time.Now())
	if err != nil {
		t.Fatalf("RecordFailedAttempt error: %v", err)
	}
	if state.FailedLoginAttempts != 2 || state.LockoutUntil != nil {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestAccountsRepository_ResetFailedAttempts(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{name: "reset", rows: 1, wantErr: nil},
		{name: "missing account", rows: 0, wantErr: domain.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewAccountsRepository(db)
			id := uuid.New()

			mock.ExpectExec(`(?s)UPDATE users\s+SET failed_login_attempts = 0,\s+lockout_until = NULL`).
				WithArgs(id).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			err := repo.ResetFailedAttempts(context.Background(), id)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ResetFailedAttempts() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
