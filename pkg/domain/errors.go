package domain

import "errors"

// Authentication errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked due to too many failed login attempts")
	ErrRoleNotPermitted   = errors.New("role not permitted on this surface")
)

// Validation errors
var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrTokenRequired    = errors.New("challenge token is required")
	ErrCodeRequired     = errors.New("verification code is required")
)

// Two-factor errors
var (
	ErrMFARequired       = errors.New("two-factor authentication required")
	ErrMFANotConfigured  = errors.New("two-factor authentication is enabled but no secret is stored")
	ErrInvalidMFACode    = errors.New("invalid two-factor code")
	ErrChallengeExpired  = errors.New("two-factor challenge expired")
	ErrChallengeNotFound = errors.New("two-factor challenge not found")
)
