package main

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jtmorrow/arguably/internal"
	"github.com/jtmorrow/arguably/internal/ai"
	"github.com/jtmorrow/arguably/internal/ai/anthropic"
	"github.com/jtmorrow/arguably/internal/ai/mock"
	"github.com/jtmorrow/arguably/internal/billing"
	"github.com/jtmorrow/arguably/internal/handler"
	"github.com/jtmorrow/arguably/internal/jobs"
	"github.com/jtmorrow/arguably/internal/metrics"
	"github.com/jtmorrow/arguably/internal/middleware"
	"github.com/jtmorrow/arguably/internal/repository"
	"github.com/jtmorrow/arguably/internal/service"
	"github.com/jtmorrow/arguably/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize store
	store := repository.NewStore(db)

	// Initialize the AI provider
	var provider ai.Provider
	switch cfg.AIProvider {
	case "anthropic":
		provider, err = anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("anthropic provider initialization failed: %w", err)
		}
	default:
		provider = mock.New(logger)
	}
	logger.Info("AI provider ready", "provider", cfg.AIProvider)

	// Initialize billing (optional)
	var billingService billing.Service
	prices := billing.PriceConfig{
		BasicMonthlyPriceID:   cfg.StripeBasicMonthlyPriceID,
		BasicYearlyPriceID:    cfg.StripeBasicYearlyPriceID,
		PremiumMonthlyPriceID: cfg.StripePremiumMonthlyPriceID,
		PremiumYearlyPriceID:  cfg.StripePremiumYearlyPriceID,
	}
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, prices)
		logger.Info("Stripe billing ready")
	} else {
		logger.Warn("Stripe billing not configured, billing endpoints disabled")
	}

	// Initialize services
	userService := service.NewUserService(store, cfg.AdminEmails, logger)
	creditService := service.NewCreditService(store, logger)
	referralService := service.NewReferralService(store, logger)
	suggestionService := service.NewSuggestionService(creditService, provider, logger)
	argumentService := service.NewArgumentService(store, creditService, logger)
	subscriptionService := service.NewSubscriptionService(store, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, creditService, logger, isSecure)
	argumentHandler := handler.NewArgumentHandler(argumentService, logger)
	suggestHandler := handler.NewSuggestHandler(suggestionService, logger)
	referralHandler := handler.NewReferralHandler(referralService, logger)
	billingHandler := handler.NewBillingHandler(billingService, userService, prices, cfg.BaseURL, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, userService, subscriptionService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (optionally behind basic auth)
	mux.Handle("GET /metrics", metricsAuth(cfg.MetricsUsername, cfg.MetricsPassword, promhttp.Handler()))

	// Stripe webhook (public; authenticated by signature)
	mux.HandleFunc("POST /webhooks/stripe", webhookHandler.HandleStripeWebhook)

	// Auth routes (public)
	mux.HandleFunc("POST /api/auth/register", authHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)

	// Authenticated routes
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)

	mux.Handle("GET /api/me", requireUser(http.HandlerFunc(authHandler.HandleMe)))

	mux.Handle("POST /api/arguments", requireUser(http.HandlerFunc(argumentHandler.HandleCreate)))
	mux.Handle("GET /api/arguments", requireUser(http.HandlerFunc(argumentHandler.HandleList)))
	mux.Handle("GET /api/arguments/{id}", requireUser(http.HandlerFunc(argumentHandler.HandleGet)))
	mux.Handle("PUT /api/arguments/{id}", requireUser(http.HandlerFunc(argumentHandler.HandleUpdate)))
	mux.Handle("DELETE /api/arguments/{id}", requireUser(http.HandlerFunc(argumentHandler.HandleDelete)))

	mux.Handle("POST /api/suggest/improve", requireUser(http.HandlerFunc(suggestHandler.HandleImprove)))
	mux.Handle("POST /api/suggest/analyze", requireUser(http.HandlerFunc(suggestHandler.HandleAnalyze)))

	mux.Handle("GET /api/referral", requireUser(http.HandlerFunc(referralHandler.HandleGetCode)))
	mux.Handle("POST /api/referral/redeem", requireUser(http.HandlerFunc(referralHandler.HandleRedeem)))

	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(billingHandler.HandleCheckout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(billingHandler.HandlePortal)))

	// Outermost middleware: request logging, then metrics
	root := middleware.Stack(loggingMw.Handler, metrics.Middleware)(mux)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var jobWorker *worker.Worker
	var scheduler *worker.Scheduler
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		jobWorker, err = worker.New(db, store.Queries, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		jobWorker.Register(jobs.NewRefillCreditsHandler(store.Queries, subscriptionService, logger))
		jobWorker.Register(jobs.NewCleanupSessionsHandler(userService, logger))
		jobWorker.Start(ctx)

		scheduler = worker.NewScheduler(store.Queries, logger)
		scheduler.Start(ctx)
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// metricsAuth wraps the metrics handler with basic auth when credentials are
// configured. With no credentials the endpoint is left open, which is only
// acceptable behind a private network.
func metricsAuth(username, password string, next http.Handler) http.Handler {
	if username == "" && password == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
