package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okorelov/profile-auth/internal/transport/http/middleware"
	"github.com/okorelov/profile-auth/internal/usecase"
)

// PasswordHandler exposes password change and reset endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
	auth      *usecase.AuthService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService, auth *usecase.AuthService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords, auth: auth}
}

// RegisterRoutes binds password routes, applying optional middleware ahead of
// the forgot-password handler.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, forgotMiddlewares ...gin.HandlerFunc) {
	r.POST("/password/change", middleware.RequireAuth(h.auth), h.changePassword)

	if len(forgotMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, forgotMiddlewares...)
		chain = append(chain, h.forgotPassword)
		r.POST("/password/forgot", chain...)
	} else {
		r.POST("/password/forgot", h.forgotPassword)
	}

	r.POST("/password/reset", h.resetPassword)
}

func (h *PasswordHandler) changePassword(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, CodeInvalidAccessToken, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeValidationFailed, "invalid change password payload"))
		return
	}

	err := h.passwords.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidationFailed, Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: "new password does not meet requirements"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Code: CodeAccountNotFound, Message: "account not found"},
			{Err: usecase.ErrNoPassword, Status: http.StatusConflict, Code: CodeNoPassword, Message: "account has no password credential"},
			{Err: usecase.ErrWrongPassword, Status: http.StatusUnauthorized, Code: CodeWrongPassword, Message: "current password is incorrect"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// forgotPassword always answers 200 with the same body so the endpoint cannot
// be used to probe which emails have accounts.
func (h *PasswordHandler) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeValidationFailed, "invalid forgot password payload"))
		return
	}

	if err := h.passwords.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, CodeInternal, "internal error"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if the email is registered, a reset link has been sent"})
}

func (h *PasswordHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeValidationFailed, "invalid reset password payload"))
		return
	}

	err := h.passwords.ResetPassword(c.Request.Context(), req.AccountID, req.Token, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidationFailed, Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: "new password does not meet requirements"},
			{Err: usecase.ErrInvalidResetToken, Status: http.StatusUnauthorized, Code: CodeInvalidResetToken, Message: "invalid reset token"},
			{Err: usecase.ErrResetTokenExpired, Status: http.StatusUnauthorized, Code: CodeResetTokenExpired, Message: "reset token has expired"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}
