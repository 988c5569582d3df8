package usecase

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// normalizeEmail lowercases and trims the login handle, rejecting anything
// that is not shaped like an email before any persistence access.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidationFailed)
	}
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: malformed email", ErrValidationFailed)
	}
	return email, nil
}

func requireID(id, field string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: %s is required", ErrValidationFailed, field)
	}
	return id, nil
}
