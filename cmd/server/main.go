package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/texlink/partnerhub/internal/events"
	"github.com/texlink/partnerhub/internal/featureflags"
	"github.com/texlink/partnerhub/internal/handler"
	"github.com/texlink/partnerhub/internal/infrastructure/logger"
	"github.com/texlink/partnerhub/internal/infrastructure/redis"
	"github.com/texlink/partnerhub/internal/notify"
	"github.com/texlink/partnerhub/internal/observability/metrics"
	"github.com/texlink/partnerhub/internal/observability/tracing"
	"github.com/texlink/partnerhub/internal/repository"
	"github.com/texlink/partnerhub/internal/security/audit"
	"github.com/texlink/partnerhub/internal/security/auth"
	"github.com/texlink/partnerhub/internal/security/middleware"
	"github.com/texlink/partnerhub/internal/security/ratelimit"
	"github.com/texlink/partnerhub/internal/service"
	"github.com/texlink/partnerhub/internal/worker"
	"github.com/texlink/partnerhub/pkg/config"
	"github.com/texlink/partnerhub/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting PartnerHub server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, log, "partnerhub", cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", slog.String("error", err.Error()))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// 4. Connect to PostgreSQL and run migrations
	pool, err := database.NewConnectionPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Initialize repositories
	db := pool.GetDB()
	credentialRepo := repository.NewPostgresCredentialRepository(db, log)
	requestRepo := repository.NewPostgresPartnershipRequestRepository(db, log)
	relationshipRepo := repository.NewPostgresRelationshipRepository(db, log)
	contractRepo := repository.NewPostgresContractRepository(db, log)
	documentRepo := repository.NewPostgresDocumentRepository(db, log)
	userRepo := repository.NewPostgresUserRepository(db, log)
	companyRepo := repository.NewPostgresCompanyRepository(db, log)

	// 7. Initialize shared infrastructure
	broker := events.NewBroker()

	// FLAG_DISABLE_WEBHOOKS forces the log notifier regardless of the
	// configured URL. Used as an outbound kill switch during incidents.
	webhookURL := cfg.NotifyWebhookURL
	if featureflags.Enabled("disable_webhooks") {
		log.Warn("webhook notifications disabled by feature flag")
		webhookURL = ""
	}
	notifier := notify.New(webhookURL, log)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "partnerhub")

	// 8. Initialize services
	authService := service.NewAuthService(userRepo, companyRepo, tokenManager, log)
	credentialService := service.NewCredentialService(credentialRepo, nil, broker, notifier, log)
	partnershipService := service.NewPartnershipService(requestRepo, relationshipRepo, companyRepo, broker, notifier, log, cfg.RequestExpiryDays)
	relationshipService := service.NewRelationshipService(relationshipRepo, contractRepo, companyRepo, broker, notifier, log)
	documentCache := service.NewRedisDocumentCache(redisClient, log)
	documentService := service.NewDocumentService(documentRepo, relationshipRepo, documentCache, cfg.SummaryCacheTTL, cfg.ExpiringSoonDays, log)

	// 9. Initialize handlers and routes
	mux := http.NewServeMux()
	handler.NewAuthHandler(authService, log).Register(mux)
	handler.NewCredentialHandler(credentialService, log).Register(mux)
	handler.NewPartnershipHandler(partnershipService, log).Register(mux)
	handler.NewRelationshipHandler(relationshipService, log).Register(mux)
	handler.NewDocumentHandler(documentService, log).Register(mux)
	handler.NewCompanyHandler(companyRepo, log).Register(mux)
	handler.NewReferenceHandler(cfg, log).Register(mux)
	mux.Handle("GET /ws/events", handler.NewEventsHandler(broker, log, cfg.CORSAllowedOrigins))

	healthHandler := handler.NewHealthHandler(pool, redisClient, log)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// 10. Security components
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// Chain middleware: request ID -> audit -> rate limit -> JWT -> CORS -> mux
	rootHandler := withRequestID(
		middleware.AuditMiddleware(auditLogger)(
			middleware.RateLimitMiddleware(rateLimiter, log)(
				middleware.JWTMiddleware(tokenManager, log)(handlerWithCORS),
			),
		),
		log,
	)
	rootHandler = otelhttp.NewHandler(rootHandler, "partnerhub")
	rootHandler = metrics.HTTPMiddleware(rootHandler)

	// 11. Start expiry worker in background.
	// FLAG_DISABLE_SWEEP stops the background ticker, leaving only the
	// lazy per-read expiry. Requests still read as EXPIRED either way.
	expiryWorker := worker.NewExpiryWorker(
		requestRepo,
		documentRepo,
		log,
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
	)
	if featureflags.Enabled("disable_sweep") {
		log.Warn("expiry sweep disabled by feature flag")
	} else {
		go expiryWorker.Start(ctx)
	}

	// Manual sweep trigger for operators and the CLI.
	mux.HandleFunc("POST /api/admin/sweep", func(w http.ResponseWriter, r *http.Request) {
		expiryWorker.Sweep(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop expiry worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
