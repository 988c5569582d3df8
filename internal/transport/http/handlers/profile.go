package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okorelov/profile-auth/internal/transport/http/middleware"
	"github.com/okorelov/profile-auth/internal/usecase"
)

// ProfileHandler exposes authenticated profile endpoints.
type ProfileHandler struct {
	profiles *usecase.ProfileService
	auth     *usecase.AuthService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *usecase.ProfileService, auth *usecase.AuthService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, auth: auth}
}

// RegisterRoutes binds profile routes behind authentication.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/profile", middleware.RequireAuth(h.auth))
	group.GET("", h.getProfile)
	group.PATCH("", h.updateProfile)
}

func (h *ProfileHandler) getProfile(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, CodeInvalidAccessToken, "authentication required"))
		return
	}

	account, err := h.profiles.Get(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Code: CodeAccountNotFound, Message: "account not found"},
		})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Account: toAccountSummary(*account)})
}

func (h *ProfileHandler) updateProfile(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, CodeInvalidAccessToken, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeValidationFailed, "invalid profile payload"))
		return
	}

	account, err := h.profiles.UpdateDisplayName(c.Request.Context(), accountID, req.DisplayName)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidationFailed, Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: "invalid profile payload"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Code: CodeAccountNotFound, Message: "account not found"},
		})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Account: toAccountSummary(*account)})
}
