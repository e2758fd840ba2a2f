package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the account role stored alongside the credentials.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleMerchant   Role = "MERCHANT"
	RoleCustomer   Role = "CUSTOMER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleMerchant, RoleCustomer:
		return true
	}
	return false
}

// Account is the subset of a user row the authenticator reads and writes.
type Account struct {
	ID                  uuid.UUID
	Email               string
	PasswordHash        *string
	FailedLoginAttempts int
	LockoutUntil        *time.Time
	TwoFactorEnabled    bool
	TwoFactorSecret     *string
	Role                Role
}

// IsLocked returns true if the lockout window is still open at now.
// A lockout timestamp in the past expires by comparison alone.
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockoutUntil == nil {
		return false
	}
	return now.Before(*a.LockoutUntil)
}

// HasPassword reports whether the account can authenticate with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// HasTwoFactorSecret reports whether a TOTP secret is stored.
func (a *Account) HasTwoFactorSecret() bool {
	return a.TwoFactorSecret != nil && *a.TwoFactorSecret != ""
}

// Public returns a copy of the account with credential material removed.
func (a *Account) Public() *Account {
	c := *a
	c.PasswordHash = nil
	c.TwoFactorSecret = nil
	return &c
}

// LockoutState is the counter state after a failed attempt was recorded.
type LockoutState struct {
	FailedLoginAttempts int
	LockoutUntil        *time.Time
}
