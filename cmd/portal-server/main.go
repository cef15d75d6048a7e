package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"central-portal/internal/central"
	"central-portal/internal/config"
	"central-portal/internal/domain"
	"central-portal/internal/handler"
	"central-portal/internal/middleware"
	"central-portal/internal/observability"
	"central-portal/internal/repository/memory"
	"central-portal/internal/repository/postgres"
	"central-portal/internal/service"
	"central-portal/internal/token"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(logLevel, logFormat)

	slog.Info("starting central portal")

	cache := token.NewFileCache(cfg.TokenCacheFile)
	tokens := token.NewManager(token.Config{
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		CustomerID:   cfg.CustomerID,
	}, cache)

	apiClient := central.NewClient(cfg.BaseURL, tokens)
	clientReady := cfg.ClientID != "" && cfg.ClientSecret != ""
	if !clientReady {
		slog.Warn("central credentials not configured, logins will fail")
	}

	sessions, db, err := newSessionStore(cfg)
	if err != nil {
		slog.Error("failed to initialize session store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}
	slog.Info("session store ready", slog.String("backend", cfg.SessionBackend))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go startSessionSweeper(ctx, sessions)
	slog.Info("session sweeper started")

	authService := service.NewAuthService(tokens, sessions)
	deviceService := service.NewDeviceService(apiClient)

	authHandler := handler.NewAuthHandler(authService)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	proxyHandler := handler.NewProxyHandler(apiClient)

	loginLimiter := middleware.NewRateLimiter(5, 10)
	defer loginLimiter.Stop()
	apiLimiter := middleware.NewRateLimiter(20, 50)
	defer apiLimiter.Stop()

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.Metrics())
	r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig()))

	r.Get("/health", handler.Health(clientReady))
	r.Get("/health/ready", handler.Ready(tokens, sessions))
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(loginLimiter.Middleware())
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(sessions))
			r.Use(apiLimiter.Middleware())

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/session", authHandler.Session)

			r.Get("/devices", deviceHandler.List)
			r.Post("/devices/rename", deviceHandler.Rename)
			r.Post("/devices/move", deviceHandler.Move)

			r.Get("/clients", proxyHandler.Clients)
			r.Get("/sites", proxyHandler.Sites)
			r.Get("/groups", proxyHandler.Groups)
			r.Get("/monitoring/gateways/{serial}/vlans", proxyHandler.GatewayVLANs)

			r.Get("/config/wlans", proxyHandler.WLANs)
			r.Post("/config/wlan/{name}", proxyHandler.CreateWLAN)
			r.Delete("/config/wlan/{name}", proxyHandler.DeleteWLAN)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("portal listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	slog.Info("server stopped gracefully")
}

// newSessionStore builds the configured session backend. The *sql.DB is
// returned so main can close it on shutdown; it is nil for the memory
// backend.
func newSessionStore(cfg *config.Config) (domain.SessionStore, *sql.DB, error) {
	if cfg.SessionBackend != "postgres" {
		return memory.NewSessionStore(), nil, nil
	}

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	db, err := config.NewPostgresConnection(connCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	store, err := postgres.NewSessionStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// startSessionSweeper periodically deletes expired sessions so the
// postgres backend does not accumulate dead rows. The memory store
// expires lazily too, but sweeping keeps the active-session gauge
// honest.
func startSessionSweeper(ctx context.Context, sessions domain.SessionStore) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping session sweeper")
			return
		case <-ticker.C:
			sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := sessions.DeleteExpired(sweepCtx)
			if err != nil {
				slog.Error("session sweep failed", slog.String("error", err.Error()))
			} else {
				observability.SessionsSweptTotal.Add(float64(count))
				slog.Info("session sweep completed", slog.Int64("sessions_deleted", count))
			}

			if active, err := sessions.Count(sweepCtx); err == nil {
				observability.SessionsActive.Set(float64(active))
			}
			sweepCancel()
		}
	}
}
