package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okorelov/profile-auth/internal/usecase"
)

// RegistrationHandler exposes the account creation endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds the registration route.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.register)
}

func (h *RegistrationHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeValidationFailed, "invalid registration payload"))
		return
	}

	account, err := h.registration.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidationFailed, Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: "invalid registration payload"},
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Code: CodeEmailTaken, Message: "email already registered"},
		})
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{Account: toAccountSummary(*account)})
}
