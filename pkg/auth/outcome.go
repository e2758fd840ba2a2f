package auth

import (
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
)

// OutcomeKind enumerates authentication results.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeAccountNotFound
	OutcomeAccountLocked
	OutcomeInvalidPassword
	OutcomeTwoFactorRequired
	OutcomeInvalidTwoFactorCode
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAccountNotFound:
		return "account_not_found"
	case OutcomeAccountLocked:
		return "account_locked"
	case OutcomeInvalidPassword:
		return "invalid_password"
	case OutcomeTwoFactorRequired:
		return "two_factor_required"
	case OutcomeInvalidTwoFactorCode:
		return "invalid_two_factor_code"
	}
	return "unknown"
}

// ChallengeToken is handed to the client when a second factor is required.
type ChallengeToken struct {
	Token     string
	ExpiresAt time.Time
}

// Outcome is the result of one authentication attempt.
type Outcome struct {
	Kind OutcomeKind

	// Account is set on Success, with credential material removed.
	Account *domain.Account

	// Challenge is set on TwoFactorRequired.
	Challenge *ChallengeToken

	// LockoutUntil is set on AccountLocked, and on a failure that
	// triggered the lockout.
	LockoutUntil *time.Time
}

// Succeeded reports whether the attempt fully authenticated.
func (o *Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

// Err maps the outcome onto the domain error taxonomy. Not-found and
// wrong-password collapse into the same error.
func (o *Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeAccountLocked:
		return domain.ErrAccountLocked
	case OutcomeTwoFactorRequired:
		return domain.ErrMFARequired
	case OutcomeInvalidTwoFactorCode:
		return domain.ErrInvalidMFACode
	default:
		return domain.ErrInvalidCredentials
	}
}
