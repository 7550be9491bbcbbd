package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/HammerMeetNail/campussafe/internal/config"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewService(config.AssistantConfig{APIKey: "test-key", BaseURL: ts.URL + "/v1", Model: "test-model"})
}

func TestAsk(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		if !strings.Contains(req.Messages[1].Content, "walking home ＜late＞") {
			t.Errorf("expected sanitized message, got %q", req.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: "test-model",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  Stay on lit paths.  "},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	})

	reply, err := svc.Ask(context.Background(), uuid.New(), "  walking   home <late>  ")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if reply != "Stay on lit paths." {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestAsk_NotConfigured(t *testing.T) {
	svc := NewService(config.AssistantConfig{})
	if svc.Enabled() {
		t.Fatal("expected disabled service")
	}
	if _, err := svc.Ask(context.Background(), uuid.New(), "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAsk_EmptyMessage(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called")
	})
	if _, err := svc.Ask(context.Background(), uuid.New(), "   \n "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAsk_ProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, ErrRateLimitExceeded},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, ErrProviderUnavailable},
		{"content filter", http.StatusOK, `{"choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`, ErrSafetyViolation},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := svc.Ask(context.Background(), uuid.New(), "is the library open late?")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	long := strings.Repeat("é", maxMessageRunes+20)
	if got := []rune(sanitizeInput(long)); len(got) != maxMessageRunes {
		t.Fatalf("expected %d runes, got %d", maxMessageRunes, len(got))
	}
	if got := sanitizeInput("a \t b\n\nc"); got != "a b c" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
}
