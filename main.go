package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"larica/auth"
	"larica/catalog"
	"larica/config"
	"larica/handlers"
	"larica/httpclient"
	"larica/location"
	"larica/logging"
	"larica/metrics"
	"larica/middleware"
	"larica/routes"
	"larica/visitor"
	"larica/web"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(os.Getenv("LARICA_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Logging.Level)
	gin.SetMode(cfg.Server.GinMode)

	// Initialize database
	db, err := config.OpenDB(cfg.Auth.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	logger.Info("Database connected and migrated", "path", cfg.Auth.DatabasePath)

	m := metrics.New()
	client := httpclient.New(cfg.APIs.Timeout)
	restaurants := catalog.NewClient(cfg.APIs.RestaurantBaseURL, client)

	registry := visitor.NewRegistry(visitor.Deps{
		Restaurants:    restaurants,
		IP:             location.NewIPAPIClient(cfg.APIs.IPGeoBaseURL, cfg.APIs.UserAgent, client),
		Geocoder:       location.NewNominatimClient(cfg.APIs.GeocodeBaseURL, cfg.APIs.UserAgent, client),
		Accounts:       auth.NewAccounts(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		DefaultLat:     cfg.Location.DefaultLat,
		DefaultLon:     cfg.Location.DefaultLon,
		UnknownPlace:   cfg.Location.UnknownPlace,
		GeocodeTimeout: cfg.Location.GeocodeTimeout,
		Logger:         logger,
		Metrics:        m,
	}, cfg.Visitors.IdleTTL)

	tmpl, err := web.Templates()
	if err != nil {
		logger.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// Recovery plus slog request logging instead of gin's default logger
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS())
	r.SetHTMLTemplate(tmpl)

	routes.SetupRoutes(r, routes.Options{
		Handler:  handlers.New(restaurants, registry, cfg.Auth.TokenCookie),
		Visitors: registry,
		Metrics:  m,
		Cookies: middleware.Cookies{
			Visitor: cfg.Visitors.Cookie,
			Token:   cfg.Auth.TokenCookie,
		},
		ReadyTimeout: cfg.Auth.ReadyTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go registry.Run(ctx, cfg.Visitors.JanitorTick)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server running", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	registry.CloseAll()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
