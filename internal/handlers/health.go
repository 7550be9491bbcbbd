package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/HammerMeetNail/campussafe/internal/logging"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db           HealthChecker
	redis        HealthChecker
	integrations map[string]bool
}

// NewHealthHandler reports on Postgres and Redis. integrations lists optional
// upstreams (sms, geocoding, ...) and whether each is configured.
func NewHealthHandler(db, redis HealthChecker, integrations map[string]bool) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redis:        redis,
		integrations: integrations,
	}
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	Integrations map[string]bool   `json:"integrations,omitempty"`
	Timestamp    string            `json:"timestamp"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:       "healthy",
		Checks:       make(map[string]string),
		Integrations: h.integrations,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	for name, checker := range map[string]HealthChecker{"postgres": h.db, "redis": h.redis} {
		if err := checker.Health(ctx); err != nil {
			logging.Warn("Health check failed", map[string]interface{}{"check": name, "error": err})
			response.Status = "unhealthy"
			response.Checks[name] = "unhealthy"
			continue
		}
		response.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbErr := h.db.Health(ctx)
	redisErr := h.redis.Health(ctx)

	if dbErr != nil || redisErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
