package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"delivery_tracker/internal/config"
	"delivery_tracker/internal/controllers"
	"delivery_tracker/internal/hub"
	"delivery_tracker/internal/jobs"
	"delivery_tracker/internal/logger"
	"delivery_tracker/internal/middleware"
	"delivery_tracker/internal/roads"
	"delivery_tracker/internal/routes"
	"delivery_tracker/internal/routing"
	"delivery_tracker/internal/store"
	"delivery_tracker/internal/tracking"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize structured logging to file
	accessLog := logger.Setup(logger.Options{
		File:   cfg.LogFile,
		Level:  cfg.LogLevel,
		Stdout: cfg.LogStdout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Route acquisition: cache -> Google Routes -> procedural
	acquirerOpts := []routing.AcquirerOption{routing.WithProviderTimeout(cfg.RouteTimeout)}
	if cfg.DB.Enabled() {
		db, err := config.OpenDB(cfg.DB)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to open route cache database.")
		}
		acquirerOpts = append(acquirerOpts, routing.WithStore(store.NewRouteStore(db)))
		logrus.WithField("db_host", cfg.DB.Host).Info("Route cache enabled.")
	}

	var provider routing.Provider
	var snapper tracking.Snapper
	if cfg.GoogleMapsAPIKey != "" {
		provider = routing.NewGoogleRoutes(cfg.GoogleMapsAPIKey)
		if cfg.SnapEnabled {
			snapper = roads.NewGuard(
				roads.NewGoogleRoads(cfg.GoogleMapsAPIKey, roads.WithRateLimit(cfg.SnapRatePerSecond)),
				cfg.SnapTimeout,
			)
		}
	} else {
		logrus.Warn("GOOGLE_MAPS_API_KEY not set; using procedural routes without road snapping.")
	}

	acquirer := routing.NewAcquirer(provider, routing.NewGenerator(nil), acquirerOpts...)
	updates := hub.New()
	svc := tracking.NewService(acquirer, snapper, updates)
	jm := jobs.NewJobManager(svc, cfg.StatsSchedule)

	r := routes.SetupRouter(routes.Dependencies{
		Tracking:  controllers.NewTrackingController(svc),
		WebSocket: controllers.NewWebSocketController(updates, svc, cfg.AllowedOrigins),
		Auth:      middleware.NewAuth(cfg.JWTSecret),
		AccessLog: accessLog,
	})

	// Wrap with CORS
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           middleware.EnableCORS(r, cfg.AllowedOrigins...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := jm.StartAll(); err != nil {
		logrus.WithError(err).Fatal("Failed to start scheduled jobs.")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		updates.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logrus.WithField("addr", srv.Addr).Info("🚀 Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		jm.StopAll()
		if err := svc.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Tracking workers did not stop in time.")
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("Server stopped with error.")
	}
	logrus.Info("Server stopped.")
}
