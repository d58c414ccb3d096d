package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/google/uuid"
)

var _ repositories.DeviceRepository = (*DeviceRepository)(nil)

// DeviceRepository is a token-keyed device registry held in memory
type DeviceRepository struct {
	mu      sync.RWMutex
	byToken map[string]models.Device
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{byToken: make(map[string]models.Device)}
}

func (r *DeviceRepository) Upsert(_ context.Context, device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byToken[device.FCMToken]; ok {
		device.ID = existing.ID
	} else if device.ID == "" {
		device.ID = uuid.NewString()
	}
	r.byToken[device.FCMToken] = *device
	return nil
}

func (r *DeviceRepository) ListByUser(_ context.Context, uid string) ([]models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := []models.Device{}
	for _, d := range r.byToken {
		if d.UID == uid {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].LastSeenAt.After(devices[j].LastSeenAt)
	})
	return devices, nil
}

func (r *DeviceRepository) ListActiveTokens(ctx context.Context, uid string) ([]string, error) {
	devices, err := r.ListByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		if !d.Disabled && d.FCMToken != "" {
			tokens = append(tokens, d.FCMToken)
		}
	}
	return tokens, nil
}

func (r *DeviceRepository) DeleteByToken(_ context.Context, uid, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byToken[token]
	if !ok || d.UID != uid {
		return 0, nil
	}
	delete(r.byToken, token)
	return 1, nil
}
