package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/campussafe/internal/services/assistant"
)

func TestAssistantHandler_Chat(t *testing.T) {
	user := testUser()
	handler := NewAssistantHandler(&mockAssistant{
		AskFunc: func(ctx context.Context, userID uuid.UUID, message string) (string, error) {
			if userID != user.ID || message != "Is the shuttle running?" {
				t.Errorf("unexpected call %v %q", userID, message)
			}
			return "Yes, until 2am.", nil
		},
	})

	rr := httptest.NewRecorder()
	handler.Chat(rr, newRequest(t, http.MethodPost, "/api/assistant/chat", map[string]string{"message": "Is the shuttle running?"}, user))

	var resp ChatResponse
	decodeBody(t, rr, &resp)
	if rr.Code != http.StatusOK || resp.Reply != "Yes, until 2am." {
		t.Fatalf("unexpected response %d %+v", rr.Code, resp)
	}
}

func TestAssistantHandler_Chat_Errors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{assistant.ErrNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: status 500", assistant.ErrProviderUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: status 429", assistant.ErrRateLimitExceeded), http.StatusTooManyRequests},
		{assistant.ErrSafetyViolation, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			handler := NewAssistantHandler(&mockAssistant{
				AskFunc: func(ctx context.Context, userID uuid.UUID, message string) (string, error) {
					return "", tt.err
				},
			})
			rr := httptest.NewRecorder()
			handler.Chat(rr, newRequest(t, http.MethodPost, "/api/assistant/chat", map[string]string{"message": "hi"}, testUser()))
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestAssistantHandler_Chat_MissingMessage(t *testing.T) {
	handler := NewAssistantHandler(&mockAssistant{})

	rr := httptest.NewRecorder()
	handler.Chat(rr, newRequest(t, http.MethodPost, "/api/assistant/chat", map[string]string{}, testUser()))

	assertErrorResponse(t, rr, http.StatusBadRequest, "Invalid input")
}
