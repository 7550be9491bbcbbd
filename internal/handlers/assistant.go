package handlers

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/campussafe/internal/services"
	"github.com/HammerMeetNail/campussafe/internal/services/assistant"
)

type AssistantHandler struct {
	service services.AssistantInterface
}

func NewAssistantHandler(service services.AssistantInterface) *AssistantHandler {
	return &AssistantHandler{service: service}
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	reply, err := h.service.Ask(r.Context(), user.ID, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "An unexpected error occurred."

		switch {
		case errors.Is(err, assistant.ErrInvalidInput):
			status = http.StatusBadRequest
			msg = "Message is required."
		case errors.Is(err, assistant.ErrSafetyViolation):
			status = http.StatusBadRequest
			msg = "The assistant couldn't answer that. Please try rephrasing."
		case errors.Is(err, assistant.ErrRateLimitExceeded):
			status = http.StatusTooManyRequests
			msg = "Assistant rate limit exceeded."
		case errors.Is(err, assistant.ErrNotConfigured):
			status = http.StatusServiceUnavailable
			msg = "The safety assistant is not available."
		case errors.Is(err, assistant.ErrProviderUnavailable):
			status = http.StatusServiceUnavailable
			msg = "The safety assistant is currently down. Please try again later."
		}

		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}
