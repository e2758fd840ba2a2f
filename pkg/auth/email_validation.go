package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
)

// Email validation regex (stricter than RFC 5322 for practical use)
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail validates an email address for format and length.
// All returned errors wrap domain.ErrInvalidEmail.
func ValidateEmail(email string, strict bool) error {
	if email == "" {
		return fmt.Errorf("%w: email address is required", domain.ErrInvalidEmail)
	}

	if len(email) > maxEmailLength {
		return fmt.Errorf("%w: too long (max %d characters)", domain.ErrInvalidEmail, maxEmailLength)
	}

	normalized := NormalizeEmail(email)

	// Use mail.ParseAddress for basic RFC 5322 compliance. A display name
	// ("Alice <alice@x.com>") parses, but is not a bare address.
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return fmt.Errorf("%w: invalid format", domain.ErrInvalidEmail)
	}

	if strict && !emailRegex.MatchString(addr.Address) {
		return fmt.Errorf("%w: invalid format", domain.ErrInvalidEmail)
	}

	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
