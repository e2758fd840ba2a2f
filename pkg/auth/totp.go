package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// TOTP parameters
	totpDigits = otp.DigitsSix
	totpPeriod = 30
	totpWindow = 1 // Allow ±30 seconds clock drift
)

// TOTPVerifier checks time-based one-time codes against an account's stored
// secret. When a SecretBox is set, stored secrets are ciphertext.
type TOTPVerifier struct {
	box *SecretBox
}

// NewTOTPVerifier creates a verifier. box may be nil for plaintext secrets.
func NewTOTPVerifier(box *SecretBox) *TOTPVerifier {
	return &TOTPVerifier{box: box}
}

// Verify reports whether code is valid for account at now.
func (v *TOTPVerifier) Verify(account *domain.Account, code string, now time.Time) (bool, error) {
	if !account.HasTwoFactorSecret() {
		return false, domain.ErrMFANotConfigured
	}

	secret := *account.TwoFactorSecret
	if v.box != nil {
		plain, err := v.box.Open(secret)
		if err != nil {
			return false, fmt.Errorf("failed to decrypt two-factor secret: %w", err)
		}
		secret = plain
	}

	code = strings.ReplaceAll(strings.TrimSpace(code), " ", "")
	if len(code) != totpDigits.Length() {
		return false, nil
	}

	valid, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpWindow,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// A malformed code is a mismatch, not an infrastructure failure.
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, fmt.Errorf("failed to validate TOTP code: %w", err)
	}
	return valid, nil
}
