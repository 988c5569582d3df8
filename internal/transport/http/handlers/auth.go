package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/transport/http/middleware"
	"github.com/okorelov/profile-auth/internal/usecase"
)

const tokenTypeBearer = "Bearer"

// LoginObserver records login outcomes for monitoring.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// AuthHandler exposes session lifecycle endpoints.
type AuthHandler struct {
	auth    *usecase.AuthService
	metrics LoginObserver
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// WithMetrics attaches a login outcome observer.
func (h *AuthHandler) WithMetrics(obs LoginObserver) *AuthHandler {
	h.metrics = obs
	return h
}

func (h *AuthHandler) observeLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(outcome)
	}
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, usecase.ErrAccountLocked):
		return "locked"
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return "invalid"
	default:
		return "error"
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/login/external", h.externalLogin)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
	r.POST("/logout/all", middleware.RequireAuth(h.auth), h.logoutAll)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeValidationFailed, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		h.observeLogin(loginOutcome(err))
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidationFailed, Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: "invalid login payload"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: CodeInvalidCredentials, Message: "invalid email or password"},
		})
		return
	}

	h.observeLogin("success")
	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(h.auth.AccessTokenTTL().Seconds()),
		RememberMe:   result.RememberMe,
		Account:      toAccountSummary(result.Account),
	})
}

func (h *AuthHandler) externalLogin(c *gin.Context) {
	var req ExternalLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeValidationFailed, "invalid external login payload"))
		return
	}

	result, err := h.auth.ExternalLogin(c.Request.Context(), usecase.ExternalProfile{
		ExternalID:  req.ExternalID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidationFailed, Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: "invalid external login payload"},
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(h.auth.AccessTokenTTL().Seconds()),
		Account:      toAccountSummary(result.Account),
	})
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeValidationFailed, "invalid refresh payload"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidationFailed, Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: "invalid refresh payload"},
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Code: CodeInvalidRefreshToken, Message: "invalid or expired refresh token"},
			{Err: usecase.ErrTokenVersionMismatch, Status: http.StatusUnauthorized, Code: CodeTokenVersionMismatch, Message: "refresh token was revoked"},
		})
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(h.auth.AccessTokenTTL().Seconds()),
	})
}

func (h *AuthHandler) logout(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, CodeInvalidAccessToken, "authentication required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), accountID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Code: CodeAccountNotFound, Message: "account not found"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) logoutAll(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, CodeInvalidAccessToken, "authentication required"))
		return
	}

	if err := h.auth.LogoutAll(c.Request.Context(), accountID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Code: CodeAccountNotFound, Message: "account not found"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "all sessions revoked"})
}

func toAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:                  account.ID,
		Email:               account.Email,
		DisplayName:         account.DisplayName,
		HasPassword:         account.HasPassword(),
		ExternalIdentity:    account.ExternalIdentityID != nil,
		LastAuthenticatedAt: account.LastAuthenticatedAt,
		CreatedAt:           account.CreatedAt,
	}
}
