package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/okorelov/profile-auth/internal/usecase"
)

// Error codes exposed to API clients. The set is closed: every failure an
// endpoint can produce maps to exactly one of these.
const (
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeAccountLocked        = "ACCOUNT_LOCKED"
	CodeNoPassword           = "NO_PASSWORD"
	CodeWrongPassword        = "WRONG_PASSWORD"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	CodeTokenVersionMismatch = "TOKEN_VERSION_MISMATCH"
	CodeInvalidResetToken    = "INVALID_RESET_TOKEN"
	CodeResetTokenExpired    = "RESET_TOKEN_EXPIRED"
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeEmailTaken           = "EMAIL_TAKEN"
	CodeInvalidAccessToken   = "INVALID_ACCESS_TOKEN"
	CodeInternal             = "INTERNAL"
)

// ErrorCase maps a sentinel error to an HTTP status, code, and message.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic internal response. Typed failures enrich the
// payload: remaining attempts for bad credentials, retry delay for locks.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var locked *usecase.LockedError
	if errors.As(err, &locked) {
		resp := NewErrorResponse(c, CodeAccountLocked, "account temporarily locked")
		resp.Data = map[string]any{
			"remainingAttempts": 0,
			"retryAfterSeconds": locked.RetryAfterSeconds(),
		}
		c.Header("Retry-After", strconv.Itoa(locked.RetryAfterSeconds()))
		c.JSON(http.StatusLocked, resp)
		return
	}

	var credentials *usecase.CredentialsError
	if errors.As(err, &credentials) {
		resp := NewErrorResponse(c, CodeInvalidCredentials, "invalid email or password")
		resp.Data = map[string]any{"remainingAttempts": credentials.RemainingAttempts}
		c.JSON(http.StatusUnauthorized, resp)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Code, cs.Message))
			return
		}
	}

	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, CodeInternal, "internal error"))
}
