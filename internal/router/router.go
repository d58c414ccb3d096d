package router

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/handlers"
	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/anonto42/campus-pulse/backend/internal/repositories/memory"
	"github.com/anonto42/campus-pulse/backend/internal/services"
	"github.com/anonto42/campus-pulse/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Repositories bundles every store the service reads or writes
type Repositories struct {
	Notifications repositories.NotificationRepository
	Devices       repositories.DeviceRepository
	Preferences   repositories.PreferencesRepository
	AppConfig     repositories.AppConfigRepository
	Content       repositories.ContentRepository
	Users         repositories.UserRepository
	Clubs         repositories.ClubRepository
}

// SetupRepositories builds the repositories over the connected stores, migrating Postgres and creating
// Mongo indexes. A store that is not configured falls back to its in-memory implementation.
func SetupRepositories(ctx context.Context, db *config.DB, logger *zap.Logger) (*Repositories, error) {
	repos := &Repositories{}

	if db.Postgres != nil {
		if err := db.Postgres.AutoMigrate(&models.User{}, &models.Club{}, &models.ClubMember{}); err != nil {
			return nil, fmt.Errorf("auto migrate models: %w", err)
		}
		logger.Info("PostgreSQL auto-migrations completed")
		repos.Users = repositories.NewPostgresUserRepository(db.Postgres)
		repos.Clubs = repositories.NewPostgresClubRepository(db.Postgres)
	} else {
		logger.Warn("PostgreSQL not configured, using in-memory user and club repositories")
		repos.Users = memory.NewUserRepository()
		repos.Clubs = memory.NewClubRepository()
	}

	if db.MongoDB != nil {
		notifications := repositories.NewMongoNotificationRepository(db.MongoDB)
		devices := repositories.NewMongoDeviceRepository(db.MongoDB)

		indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := notifications.EnsureIndexes(indexCtx); err != nil {
			return nil, err
		}
		if err := devices.EnsureIndexes(indexCtx); err != nil {
			return nil, err
		}
		logger.Info("MongoDB indexes ensured")

		repos.Notifications = notifications
		repos.Devices = devices
		repos.Preferences = repositories.NewMongoPreferencesRepository(db.MongoDB)
		repos.AppConfig = repositories.NewMongoAppConfigRepository(db.MongoDB)
		repos.Content = repositories.NewMongoContentRepository(db.MongoDB)
	} else {
		logger.Warn("MongoDB not configured, using in-memory notification stores")
		repos.Notifications = memory.NewNotificationRepository()
		repos.Devices = memory.NewDeviceRepository()
		repos.Preferences = memory.NewPreferencesRepository()
		repos.AppConfig = &memory.AppConfigRepository{}
		repos.Content = memory.NewContentRepository()
	}

	return repos, nil
}

// SetupRoutes configures all application routes. auth guards the /api/v1 group.
func SetupRoutes(e *echo.Echo, repos *Repositories, diagnostics *services.Diagnostics, auth echo.MiddlewareFunc, logger *zap.Logger) {
	e.GET("/health", handlers.HealthCheck)

	api := e.Group("/api/v1")
	api.Use(auth)

	notificationHandler := handlers.NewNotificationHandler(repos.Notifications)
	notificationHandler.RegisterNotificationRoutes(api)

	diagnosticHandler := handlers.NewDiagnosticHandler(diagnostics)
	diagnosticHandler.RegisterDiagnosticRoutes(api)
	logger.Info("Notification routes configured")

	deviceHandler := handlers.NewDeviceHandler(repos.Devices)
	deviceHandler.RegisterDeviceRoutes(api)
	logger.Info("Device routes configured")

	preferencesHandler := handlers.NewPreferencesHandler(repos.Preferences)
	preferencesHandler.RegisterPreferencesRoutes(api)
	logger.Info("Preference routes configured")
}
