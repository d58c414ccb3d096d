package services

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// FallbackIconURL is used when neither the record nor app config supplies an icon
const FallbackIconURL = "https://campuspulse.app/static/notification-icon.png"

const iconCacheKey = "notification_icon_url"

// IconResolver reads the app-wide default icon once and keeps it in memory
type IconResolver struct {
	repo     repositories.AppConfigRepository
	cache    *cache.Cache
	fallback string
	logger   *zap.Logger
}

func NewIconResolver(repo repositories.AppConfigRepository, ttl time.Duration, fallback string, logger *zap.Logger) *IconResolver {
	if fallback == "" {
		fallback = FallbackIconURL
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &IconResolver{
		repo:     repo,
		cache:    cache.New(ttl, 10*time.Minute),
		fallback: fallback,
		logger:   logger,
	}
}

// DefaultIcon returns the cached app icon, loading it on first use
func (r *IconResolver) DefaultIcon(ctx context.Context) string {
	if x, found := r.cache.Get(iconCacheKey); found {
		return x.(string)
	}
	url, err := r.repo.GetNotificationIconURL(ctx)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			r.logger.Warn("load app icon config", zap.Error(err))
		}
		return r.fallback
	}
	r.cache.SetDefault(iconCacheKey, url)
	return url
}

// Resolve walks actor photo, explicit image, app icon and the hardcoded literal in that order
func (r *IconResolver) Resolve(ctx context.Context, actorPhotoURL, imageURL string) string {
	if actorPhotoURL != "" {
		return actorPhotoURL
	}
	if imageURL != "" {
		return imageURL
	}
	return r.DefaultIcon(ctx)
}
