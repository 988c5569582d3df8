package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the failure payload shared by every endpoint. Data carries
// machine-readable detail for failures that have some (remaining attempts,
// retry delay).
type ErrorResponse struct {
	ErrorCode string         `json:"errorCode"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	TraceID   string         `json:"traceId,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, code, message string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		ErrorCode: code,
		Message:   message,
		TraceID:   traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	DisplayName         string     `json:"displayName"`
	HasPassword         bool       `json:"hasPassword"`
	ExternalIdentity    bool       `json:"externalIdentity"`
	LastAuthenticatedAt *time.Time `json:"lastAuthenticatedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	TokenType    string         `json:"tokenType"`
	ExpiresIn    int            `json:"expiresIn"`
	RememberMe   bool           `json:"rememberMe"`
	Account      AccountSummary `json:"account"`
}

// RefreshRequest represents the payload to rotate a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshResponse contains tokens issued by the refresh endpoint.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
}

// ExternalLoginRequest carries a verified external identity profile.
type ExternalLoginRequest struct {
	ExternalID  string `json:"externalId" binding:"required"`
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"displayName"`
}

// RegistrationRequest defines the payload for account creation.
type RegistrationRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

// RegistrationResponse is returned after successful account creation.
type RegistrationResponse struct {
	Account AccountSummary `json:"account"`
}

// ChangePasswordRequest defines the payload for authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// ForgotPasswordRequest starts the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	AccountID   string `json:"accountId" binding:"required"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UpdateProfileRequest changes profile fields.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// ProfileResponse wraps an account summary.
type ProfileResponse struct {
	Account AccountSummary `json:"account"`
}
