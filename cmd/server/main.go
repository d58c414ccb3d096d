package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/events"
	"github.com/anonto42/campus-pulse/backend/internal/handlers"
	"github.com/anonto42/campus-pulse/backend/internal/middleware"
	"github.com/anonto42/campus-pulse/backend/internal/push"
	"github.com/anonto42/campus-pulse/backend/internal/ratelimit"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/anonto42/campus-pulse/backend/internal/router"
	"github.com/anonto42/campus-pulse/backend/internal/scheduler"
	"github.com/anonto42/campus-pulse/backend/internal/services"
	"github.com/anonto42/campus-pulse/backend/internal/triggers"
	"github.com/anonto42/campus-pulse/backend/pkg/config"
	"github.com/anonto42/campus-pulse/backend/pkg/firebase"
	"github.com/anonto42/campus-pulse/backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.Init(cfg.LogFilePath, cfg.IsProduction())
	defer func() { _ = log.Sync() }()
	if !cfg.DotEnvLoaded {
		log.Debug("No .env file found, assuming environment variables are set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	repos, err := router.SetupRepositories(ctx, db, log)
	if err != nil {
		log.Fatal("Failed to set up repositories", zap.Error(err))
	}

	// Initialize Firebase
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		if cfg.IsProduction() {
			log.Fatal("Failed to initialize Firebase", zap.Error(err))
		}
		log.Warn("Firebase unavailable, pushes go to the in-process fake sender", zap.Error(err))
	}

	var sender push.Sender
	if firebaseApp != nil {
		sender = push.NewFCMSender(firebaseApp.MessagingClient, cfg.PushDryRun, log)
	} else {
		sender = push.NewFakeSender()
	}

	var limiter ratelimit.Limiter
	if db.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(db.Redis, "campus-pulse:ratelimit:")
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	// Services
	icons := services.NewIconResolver(repos.AppConfig, 10*time.Minute, cfg.DefaultIconURL, log)
	grouper := services.NewGrouper(repos.Notifications, cfg.GroupRepushThrottle, nil, log)
	dispatcherCfg := services.DefaultDispatcherConfig()
	dispatcherCfg.MaxTokens = cfg.PushMaxTokens
	dispatcher := services.NewDispatcher(repos.Notifications, repos.Devices, repos.Preferences, sender, icons, dispatcherCfg, nil, log)
	notifier := services.NewNotifier(grouper, dispatcher, repos.Notifications, cfg.SweepLease, nil, log)
	sweeper := services.NewSweeper(repos.Notifications, dispatcher, services.SweeperConfig{
		Grace: cfg.SweepGrace,
		Lease: cfg.SweepLease,
		Batch: cfg.SweepBatch,
	}, nil, log)
	diagnostics := services.NewDiagnostics(notifier, limiter, cfg.DiagnosticWindow, nil, log)

	// Event bus and triggers
	validate := validator.New()
	bus, err := events.NewBus(log, events.DefaultRetryConfig())
	if err != nil {
		log.Fatal("Failed to create event bus", zap.Error(err))
	}
	triggers.New(notifier, repos.Users, repos.Content, repos.Clubs, validate, log).Register(bus)

	var bridge *events.NATSBridge
	if cfg.NATSURL != "" {
		bridge, err = events.NewNATSBridge(ctx, cfg.NATSURL, cfg.NATSStream, cfg.NATSDurable, bus, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer bridge.Close()
	}

	cron := scheduler.New(log)
	if err := cron.Register("fallback_sweep", cfg.SweepSchedule, sweeper); err != nil {
		log.Fatal("Failed to schedule fallback sweep", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator(validate)
	config.SetupMiddleware(e, log)

	var auth echo.MiddlewareFunc
	switch {
	case cfg.AuthMode == config.AuthModeJWT && cfg.JWTSecret != "":
		auth = middleware.JWTAuthMiddleware(cfg.JWTSecret)
	case cfg.AuthMode == config.AuthModeFirebase && firebaseApp != nil:
		auth = middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient)
	default:
		log.Fatal("No usable auth mode", zap.String("auth_mode", cfg.AuthMode))
	}
	router.SetupRoutes(e, repos, diagnostics, auth, log)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Event bus starting")
		return bus.Run(ctx)
	})

	if bridge != nil {
		g.Go(func() error {
			// consuming before the router is subscribed would drop messages on the floor
			select {
			case <-bus.Running():
			case <-ctx.Done():
				return nil
			}
			return bridge.Start(ctx)
		})
	}

	if watcher, ok := repos.Notifications.(repositories.PendingWatcher); ok && cfg.SweepWatch {
		g.Go(func() error {
			log.Info("Watching notification writes")
			return sweeper.Watch(ctx, watcher)
		})
	}

	g.Go(func() error {
		cron.Start()
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cron.Stop(stopCtx)
		return nil
	})

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
		if err := bus.Close(); err != nil {
			log.Error("Event bus close failed", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server exited with error", zap.Error(err))
	}
	log.Info("Server exited")
}
