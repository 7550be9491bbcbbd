package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/campussafe/internal/logging"
	"github.com/HammerMeetNail/campussafe/internal/metrics"
)

// windowCounter increments a fixed-window counter and returns the new count.
type windowCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounter struct {
	client *redis.Client
}

func (c redisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Only the first hit in a window sets the TTL.
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter is a fixed-window limiter keyed per caller. It fails open when
// redis is unavailable.
type RateLimiter struct {
	counter      windowCounter
	limit        int64
	window       time.Duration
	prefix       string
	keyFunc      func(*http.Request) string
	fallbackToIP bool
	now          func() time.Time
}

// NewRateLimiter builds a limiter. keyFunc picks the bucket for a request;
// when it returns "" and fallbackToIP is set the client IP is used, otherwise
// the request is not limited.
func NewRateLimiter(redisClient *redis.Client, limit int64, window time.Duration, prefix string, keyFunc func(*http.Request) string, fallbackToIP bool) *RateLimiter {
	rl := &RateLimiter{
		limit:        limit,
		window:       window,
		prefix:       prefix,
		keyFunc:      keyFunc,
		fallbackToIP: fallbackToIP,
		now:          time.Now,
	}
	if redisClient != nil {
		rl.counter = redisCounter{client: redisClient}
	}
	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.counter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.bucket(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		count, err := rl.counter.Increment(r.Context(), rl.prefix+key, rl.window)
		if err != nil {
			logging.Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
				"limiter": rl.name(),
				"error":   err.Error(),
			})
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.limit - count
		if remaining < 0 {
			remaining = 0
		}
		reset := rl.now().Truncate(rl.window).Add(rl.window)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > rl.limit {
			retry := int64(reset.Sub(rl.now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
			metrics.RateLimitRejections.WithLabelValues(rl.name()).Inc()
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) bucket(r *http.Request) string {
	if rl.keyFunc != nil {
		if key := rl.keyFunc(r); key != "" {
			return key
		}
	}
	if rl.fallbackToIP {
		return "ip:" + GetClientIP(r)
	}
	return ""
}

// name is the metrics label: the prefix without separators.
func (rl *RateLimiter) name() string {
	name := strings.Trim(rl.prefix, ":")
	if name == "" {
		return "default"
	}
	return name
}

// GetClientIP prefers proxy headers over the socket address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		if first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
