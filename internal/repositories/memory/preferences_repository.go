package memory

import (
	"context"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/patrickmn/go-cache"
)

var _ repositories.PreferencesRepository = (*PreferencesRepository)(nil)

// PreferencesRepository stores push settings in a non-expiring go-cache
type PreferencesRepository struct {
	cache *cache.Cache
}

func NewPreferencesRepository() *PreferencesRepository {
	return &PreferencesRepository{cache: cache.New(cache.NoExpiration, 0)}
}

func (r *PreferencesRepository) Get(_ context.Context, uid string) (*models.Preferences, error) {
	x, found := r.cache.Get(uid)
	if !found {
		return nil, repositories.ErrNotFound
	}
	prefs := copyPreferences(x.(*models.Preferences))
	return prefs, nil
}

func (r *PreferencesRepository) Save(_ context.Context, prefs *models.Preferences) error {
	r.cache.Set(prefs.UID, copyPreferences(prefs), cache.NoExpiration)
	return nil
}

func copyPreferences(p *models.Preferences) *models.Preferences {
	c := *p
	c.PushTypes = make(map[models.NotificationType]bool, len(p.PushTypes))
	for k, v := range p.PushTypes {
		c.PushTypes[k] = v
	}
	if p.QuietHours != nil {
		q := *p.QuietHours
		c.QuietHours = &q
	}
	return &c
}
