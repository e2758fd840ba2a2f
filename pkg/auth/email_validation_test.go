package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
)

func TestValidateEmail_Accepts(t *testing.T) {
	for _, email := range []string{
		"shopper@dailyfresh.test",
		"merchant@store.dailyfresh.test",
		"shopper+weekly@dailyfresh.test",
		"  Shopper@DailyFresh.test ",
	} {
		for _, strict := range []bool{false, true} {
			if err := ValidateEmail(email, strict); err != nil {
				t.Errorf("ValidateEmail(%q, strict=%v) = %v, want nil", email, strict, err)
			}
		}
	}
}

func TestValidateEmail_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		email  string
		strict bool
	}{
		{name: "empty", email: ""},
		{name: "no at sign", email: "dailyfresh.test"},
		{name: "no domain", email: "shopper@"},
		{name: "no local part", email: "@dailyfresh.test"},
		{name: "display name", email: "Shopper <shopper@dailyfresh.test>"},
		{name: "over 254 chars", email: strings.Repeat("a", 250) + "@dailyfresh.test"},
		{name: "quoted local part in strict mode", email: `"two words"@dailyfresh.test`, strict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email, tt.strict)
			if !errors.Is(err, domain.ErrInvalidEmail) {
				t.Errorf("ValidateEmail(%q) = %v, want domain.ErrInvalidEmail", tt.email, err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Shopper@DailyFresh.TEST\t"); got != "shopper@dailyfresh.test" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}
