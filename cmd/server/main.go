package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/HammerMeetNail/campussafe/internal/config"
	"github.com/HammerMeetNail/campussafe/internal/database"
	"github.com/HammerMeetNail/campussafe/internal/handlers"
	"github.com/HammerMeetNail/campussafe/internal/logging"
	"github.com/HammerMeetNail/campussafe/internal/metrics"
	"github.com/HammerMeetNail/campussafe/internal/middleware"
	"github.com/HammerMeetNail/campussafe/internal/services"
	"github.com/HammerMeetNail/campussafe/internal/services/assistant"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logging.Configure(cfg.Log.Level, cfg.Log.Format)
	logger := logging.Default

	logger.Info("Starting campussafe server", map[string]interface{}{
		"env": cfg.Server.Environment,
	})

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	migration, err := database.RunMigrations(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("Migrations completed", map[string]interface{}{
		"from_version": migration.From,
		"to_version":   migration.To,
		"applied":      migration.Applied,
	})

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(dbAdapter, redisAdapter)
	identityService := services.NewIdentityService(dbAdapter)
	buddyService := services.NewBuddyService(dbAdapter)

	var identityProvider services.IdentityProvider
	if cfg.Auth.GoogleEnabled() {
		identityProvider = services.NewGoogleProvider(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.GoogleRedirectURL)
	} else {
		logger.Warn("Google sign-in disabled: client credentials not set")
	}

	geocoder, err := services.NewGeocoder(cfg.Maps.GoogleAPIKey)
	if err != nil {
		return fmt.Errorf("creating geocoder: %w", err)
	}
	if cfg.Maps.GoogleAPIKey == "" {
		logger.Warn("Reverse geocoding disabled: alerts will carry coordinates only")
	}

	var smsSender services.SMSSender
	if cfg.SMS.TwilioEnabled() {
		smsSender = services.NewTwilioSender(cfg.SMS.TwilioAccountSID, cfg.SMS.TwilioAuthToken, cfg.SMS.TwilioFromNumber)
	} else {
		logger.Warn("SMS disabled: Twilio credentials not set, instant alerts will report every send as failed")
	}
	dispatcher := services.NewDispatcher(smsSender, cfg.SMS.DefaultCountryCode)

	alertService := services.NewAlertService(dbAdapter, buddyService, geocoder, dispatcher)
	assistantService := assistant.NewService(cfg.Assistant)

	healthHandler := handlers.NewHealthHandler(db, redisDB, map[string]bool{
		"google_sign_in": cfg.Auth.GoogleEnabled(),
		"geocoding":      cfg.Maps.GoogleAPIKey != "",
		"sms":            cfg.SMS.TwilioEnabled(),
		"assistant":      assistantService.Enabled(),
	})
	authHandler := handlers.NewAuthHandler(userService, authService, identityService, identityProvider, cfg.Server.Secure)
	locationHandler := handlers.NewLocationHandler(userService)
	buddyHandler := handlers.NewBuddyHandler(buddyService)
	alertHandler := handlers.NewAlertHandler(alertService)
	assistantHandler := handlers.NewAssistantHandler(assistantService)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	csrfMiddleware := middleware.NewCSRFMiddleware(cfg.Server.Secure)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)

	authRateLimiter := middleware.NewRateLimiter(redisDB.Client, 10, time.Minute, "ratelimit:auth:", nil, true)
	assistantRateLimiter := middleware.NewRateLimiter(redisDB.Client, resolveAssistantRateLimit(cfg, logger, os.LookupEnv), time.Hour, "ratelimit:assistant:", middleware.UserKey, false)

	requireAuth := authMiddleware.RequireAuth
	limitAuth := authRateLimiter.Middleware

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/csrf", csrfMiddleware.GetToken)

	mux.Handle("POST /api/auth/register", limitAuth(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", limitAuth(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.Handle("GET /api/auth/google", limitAuth(http.HandlerFunc(authHandler.GoogleLogin)))
	mux.Handle("GET /api/auth/google/callback", limitAuth(http.HandlerFunc(authHandler.GoogleCallback)))

	mux.Handle("POST /api/location", requireAuth(http.HandlerFunc(locationHandler.Update)))
	mux.Handle("GET /api/location", requireAuth(http.HandlerFunc(locationHandler.Get)))

	mux.Handle("GET /api/buddies", requireAuth(http.HandlerFunc(buddyHandler.List)))
	mux.Handle("PATCH /api/buddies/{id}", requireAuth(http.HandlerFunc(buddyHandler.Update)))
	mux.Handle("DELETE /api/buddies/{id}", requireAuth(http.HandlerFunc(buddyHandler.Remove)))
	mux.Handle("POST /api/buddies/request", requireAuth(http.HandlerFunc(buddyHandler.CreateRequest)))
	mux.Handle("GET /api/buddies/requests", requireAuth(http.HandlerFunc(buddyHandler.ListRequests)))
	mux.Handle("PATCH /api/buddies/requests/{id}", requireAuth(http.HandlerFunc(buddyHandler.Respond)))
	mux.Handle("DELETE /api/buddies/requests/{id}/cancel", requireAuth(http.HandlerFunc(buddyHandler.Cancel)))
	mux.Handle("DELETE /api/buddies/requests/{id}", requireAuth(http.HandlerFunc(buddyHandler.Delete)))

	mux.Handle("POST /api/alerts", requireAuth(http.HandlerFunc(alertHandler.Create)))
	mux.Handle("GET /api/alerts", requireAuth(http.HandlerFunc(alertHandler.List)))
	mux.Handle("GET /api/alerts/recent", requireAuth(http.HandlerFunc(alertHandler.Recent)))
	mux.Handle("DELETE /api/alerts", requireAuth(http.HandlerFunc(alertHandler.Delete)))
	mux.Handle("POST /api/alerts/instant", requireAuth(http.HandlerFunc(alertHandler.Instant)))

	mux.Handle("POST /api/assistant/chat", requireAuth(assistantRateLimiter.Middleware(http.HandlerFunc(assistantHandler.Chat))))

	// Each wrap becomes the new outermost layer, so requests pass through
	// logging, security headers, CSRF and then session lookup.
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = csrfMiddleware.Protect(handler)
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Instant alerts wait on geocoding and the SMS fan-out; the assistant
		// waits up to 30s on its provider.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reportPoolStats(ctx, 15*time.Second, db, redisDB)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

type poolStatser interface {
	Stats() database.PoolStats
}

type redisStatser interface {
	Stats() database.RedisPoolStats
}

func reportPoolStats(ctx context.Context, every time.Duration, pg poolStatser, rdb redisStatser) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		p := pg.Stats()
		metrics.SetPoolStats(p.TotalConns, p.IdleConns, p.AcquiredConns, p.MaxConns)
		r := rdb.Stats()
		metrics.SetRedisPoolStats(r.TotalConns, r.IdleConns, r.StaleConns, r.Hits, r.Misses, r.Timeouts)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func resolveAssistantRateLimit(cfg *config.Config, logger *logging.Logger, lookupEnv func(string) (string, bool)) int64 {
	limit := int64(20)
	if cfg.Server.Environment == "development" {
		limit = 200
	}
	if v, ok := lookupEnv("ASSISTANT_RATE_LIMIT"); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		} else {
			logger.Warn("Invalid ASSISTANT_RATE_LIMIT; using default", map[string]interface{}{
				"value": v,
				"limit": limit,
			})
		}
	}
	return limit
}
