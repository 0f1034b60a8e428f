// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fast-aid/triage-platform/internal/config"
	"github.com/fast-aid/triage-platform/internal/events"
	"github.com/fast-aid/triage-platform/internal/handler"
	"github.com/fast-aid/triage-platform/internal/middleware"
	"github.com/fast-aid/triage-platform/internal/service"
	"github.com/fast-aid/triage-platform/internal/store"
	"github.com/fast-aid/triage-platform/internal/triage"
	"github.com/fast-aid/triage-platform/pkg/logger"
	"github.com/fast-aid/triage-platform/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "triage-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Storage. Postgres when DATABASE_URL is set, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Error("failed to run migrations", zap.Error(err))
			os.Exit(1)
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", zap.Error(err))
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
		log.Info("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Event feed. Optional: without NATS the platform runs with a no-op feed.
	var pub events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		np, err := events.ConnectNATS(ctx, cfg.NATSURL, cfg.NATSToken, log)
		if err != nil {
			log.Warn("failed to connect to NATS, events disabled", zap.Error(err))
		} else {
			defer np.Close()
			pub = np
		}
	}

	// Prediagnosis generator.
	var generator triage.Generator
	switch {
	case cfg.AnthropicAPIKey != "" && cfg.LLMProvider != string(triage.ProviderOpenAI):
		generator, err = triage.NewGenerator(triage.ProviderAnthropic, cfg.AnthropicAPIKey, cfg.LLMModel)
	case cfg.OpenAIAPIKey != "":
		generator, err = triage.NewGenerator(triage.ProviderOpenAI, cfg.OpenAIAPIKey, cfg.LLMModel)
	default:
		log.Warn("no generation API key configured, prediagnosis disabled")
	}
	if err != nil {
		log.Error("failed to create generator", zap.Error(err))
		os.Exit(1)
	}

	// Services
	userSvc := service.NewUserService(st, cfg.JWTSecret, cfg.JWTExpiration, log)
	conversationSvc := service.NewConversationService(st, pub, log)
	orchestrator := triage.NewOrchestrator(st, generator, pub, log, cfg.GenerationTimeout)

	// Handlers
	healthHandler := handler.NewHealthHandler(st)
	authHandler := handler.NewAuthHandler(userSvc, log)
	userHandler := handler.NewUserHandler(userSvc, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(conversationSvc, log)
	prediagnosisHandler := handler.NewPrediagnosisHandler(orchestrator, conversationSvc, userSvc, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Registration and login are unauthenticated.
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/auth/me", authHandler.Me)

			r.Route("/users/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Put("/medical-history", userHandler.UpdateMedicalHistory)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", conversationHandler.Create)
				r.Get("/", conversationHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", conversationHandler.Get)
					r.Delete("/", conversationHandler.Delete)
					r.Put("/title", conversationHandler.UpdateTitle)

					r.Put("/assign-doctor", conversationHandler.AssignDoctor)
					r.Delete("/assign-doctor", conversationHandler.RemoveDoctor)

					r.Get("/messages", messageHandler.List)
					r.Post("/messages", messageHandler.Send)

					r.Get("/prediagnosis", prediagnosisHandler.Latest)
					r.Get("/prediagnosis/report", prediagnosisHandler.Report)
				})
			})

			r.Route("/prediagnosis", func(r chi.Router) {
				r.Post("/", prediagnosisHandler.Create)
				r.Get("/my", prediagnosisHandler.My)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
