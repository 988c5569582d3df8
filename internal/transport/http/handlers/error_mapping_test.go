package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/okorelov/profile-auth/internal/usecase"
)

func mappedResponse(t *testing.T, err error, cases []ErrorCase) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondWithMappedError(c, err, cases)

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return rr, resp
}

func TestMappedErrorAccountLockedPayload(t *testing.T) {
	rr, resp := mappedResponse(t, &usecase.LockedError{RetryAfter: 5 * time.Minute}, nil)

	if rr.Code != http.StatusLocked {
		t.Fatalf("status = %d, want 423", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "300" {
		t.Fatalf("Retry-After = %q, want 300", got)
	}
	if resp.ErrorCode != CodeAccountLocked {
		t.Fatalf("errorCode = %q, want %q", resp.ErrorCode, CodeAccountLocked)
	}

	// A locked account has no attempts left; the payload says so explicitly
	// alongside the wait time.
	if got, ok := resp.Data["remainingAttempts"].(float64); !ok || got != 0 {
		t.Fatalf("data.remainingAttempts = %v, want 0", resp.Data["remainingAttempts"])
	}
	if got, ok := resp.Data["retryAfterSeconds"].(float64); !ok || got != 300 {
		t.Fatalf("data.retryAfterSeconds = %v, want 300", resp.Data["retryAfterSeconds"])
	}
}

func TestMappedErrorCredentialsPayload(t *testing.T) {
	rr, resp := mappedResponse(t, &usecase.CredentialsError{RemainingAttempts: 2}, nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got, ok := resp.Data["remainingAttempts"].(float64); !ok || got != 2 {
		t.Fatalf("data.remainingAttempts = %v, want 2", resp.Data["remainingAttempts"])
	}
}

func TestMappedErrorFallsBackToInternal(t *testing.T) {
	rr, resp := mappedResponse(t, usecase.ErrTokenVersionMismatch, []ErrorCase{
		{Err: usecase.ErrValidationFailed, Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: "bad input"},
	})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if resp.ErrorCode != CodeInternal {
		t.Fatalf("errorCode = %q, want %q", resp.ErrorCode, CodeInternal)
	}
}
