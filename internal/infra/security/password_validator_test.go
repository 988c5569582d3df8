package security

import (
	"errors"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

func TestDefaultPasswordValidatorAcceptsStrongPassword(t *testing.T) {
	password := "C0mplex!Passphrase#2026"

	// Guard against the corpus shifting under us: the fixture password
	// must stay above the validator's strength floor.
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < 2 {
		t.Fatalf("fixture password scored %d, too weak for the test", strength.Score)
	}

	if err := DefaultPasswordValidator().Validate(password); err != nil {
		t.Fatalf("Validate(%q) = %v, want nil", password, err)
	}
}

func TestDefaultPasswordValidatorRejections(t *testing.T) {
	validator := DefaultPasswordValidator()

	tests := []struct {
		password string
		wantCode string
	}{
		{"Short1!", "min_length"},
		{"password", "weak_password"},
		{"12345678", "weak_password"},
	}

	for _, tc := range tests {
		err := validator.Validate(tc.password)
		if err == nil {
			t.Errorf("Validate(%q) = nil, want %s violation", tc.password, tc.wantCode)
			continue
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Validate(%q) returned %T, want *PasswordValidationError", tc.password, err)
			continue
		}
		if vErr.Code != tc.wantCode {
			t.Errorf("Validate(%q) code = %s, want %s", tc.password, vErr.Code, tc.wantCode)
		}
	}
}

func TestPasswordValidatorCustomRules(t *testing.T) {
	validator := NewPasswordValidator(MinLengthRule(4), MaxLengthRule(8))

	for _, password := range []string{"abc", "abcdefghi"} {
		if err := validator.Validate(password); err == nil {
			t.Errorf("Validate(%q) = nil, want length violation", password)
		}
	}

	if err := validator.Validate("abcdef"); err != nil {
		t.Fatalf("Validate(%q) = %v, want nil", "abcdef", err)
	}
}
