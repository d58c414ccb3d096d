package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/google/uuid"
)

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

// NotificationRepository keeps notifications in process memory. One mutex covers every
// operation, which is what makes the keyed upserts atomic.
type NotificationRepository struct {
	mu    sync.Mutex
	items map[string]*models.Notification
	order []string
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[string]*models.Notification)}
}

func (r *NotificationRepository) put(n *models.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := r.items[n.ID]; !exists {
		r.order = append(r.order, n.ID)
	}
	r.items[n.ID] = n.Clone()
}

func (r *NotificationRepository) findOpen(uid string, match func(*models.Notification) bool) *models.Notification {
	for _, id := range r.order {
		n := r.items[id]
		if n.ToUID == uid && n.Open() && match(n) {
			return n
		}
	}
	return nil
}

func (r *NotificationRepository) Insert(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(n)
	return nil
}

func (r *NotificationRepository) UpsertGrouped(_ context.Context, n *models.Notification) (*models.Notification, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.findOpen(n.ToUID, func(c *models.Notification) bool { return c.GroupKey == n.GroupKey })
	if existing == nil {
		created := n.Clone()
		one := 1
		created.GroupCount = &one
		created.Version = 1
		r.put(created)
		return r.items[created.ID].Clone(), false, nil
	}

	count := 1
	if existing.GroupCount != nil {
		count = *existing.GroupCount + 1
	}
	existing.GroupCount = &count
	existing.Title = n.Title
	existing.ActorUID = n.ActorUID
	existing.ActorName = n.ActorName
	existing.ActorPhotoURL = n.ActorPhotoURL
	existing.UpdatedAt = n.UpdatedAt
	existing.Version++
	return existing.Clone(), true, nil
}

func (r *NotificationRepository) InsertIfAbsent(_ context.Context, n *models.Notification) (*models.Notification, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.findOpen(n.ToUID, func(c *models.Notification) bool { return c.DedupeKey == n.DedupeKey }); existing != nil {
		return existing.Clone(), true, nil
	}
	r.put(n)
	return r.items[n.ID].Clone(), false, nil
}

func (r *NotificationRepository) RearmPush(_ context.Context, id string, lastPushBefore, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || n.Push.Status == models.PushPending {
		return false, nil
	}
	if n.LastPushAt != nil && n.LastPushAt.After(lastPushBefore) {
		return false, nil
	}
	n.Push.Send = true
	n.Push.Status = models.PushPending
	n.Push.Error = ""
	n.Push.LeaseUntil = nil
	n.UpdatedAt = now
	n.Version++
	return true, nil
}

func (r *NotificationRepository) GetByID(_ context.Context, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return n.Clone(), nil
}

func claimable(n *models.Notification, now time.Time) bool {
	if !n.Push.Send || n.Push.Status != models.PushPending {
		return false
	}
	return n.Push.LeaseUntil == nil || !n.Push.LeaseUntil.After(now)
}

func (r *NotificationRepository) ClaimDispatch(_ context.Context, id string, now time.Time, lease time.Duration) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || !claimable(n, now) {
		return nil, nil
	}
	until := now.Add(lease)
	n.Push.LeaseUntil = &until
	return n.Clone(), nil
}

func (r *NotificationRepository) ClaimStalePending(_ context.Context, createdBefore, now time.Time, lease time.Duration, limit int) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []*models.Notification
	for _, id := range r.order {
		n := r.items[id]
		if claimable(n, now) && !n.CreatedAt.After(createdBefore) {
			candidates = append(candidates, n)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	claimed := make([]*models.Notification, 0, limit)
	until := now.Add(lease)
	for _, n := range candidates {
		if len(claimed) == limit {
			break
		}
		n.Push.LeaseUntil = &until
		claimed = append(claimed, n.Clone())
	}
	return claimed, nil
}

func (r *NotificationRepository) CompletePush(_ context.Context, id string, result models.PushResult, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || n.Push.Status != models.PushPending {
		return false, nil
	}
	n.Push.Status = result.Status
	n.Push.SentCount = result.SentCount
	n.Push.FailCount = result.FailCount
	n.Push.TokenCount = result.TokenCount
	n.Push.DurationMs = result.DurationMs
	n.Push.Error = result.Error
	n.Push.LeaseUntil = nil
	if result.Status == models.PushSent {
		sentAt := now
		n.Push.SentAt = &sentAt
	}
	pushedAt := now
	n.LastPushAt = &pushedAt
	n.UpdatedAt = now
	n.Version++
	return true, nil
}

func (r *NotificationRepository) ListByRecipient(_ context.Context, uid string, page, limit int) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Notification
	for _, id := range r.order {
		n := r.items[id]
		if n.ToUID == uid && !n.IsArchived {
			matched = append(matched, *n.Clone())
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.Notification{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *NotificationRepository) GetUnreadCount(_ context.Context, uid string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, n := range r.items {
		if n.ToUID == uid && n.Open() {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) MarkAsRead(_ context.Context, uid, id string) error {
	return r.update(uid, id, func(n *models.Notification) { n.IsRead = true })
}

func (r *NotificationRepository) MarkAllAsRead(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, n := range r.items {
		if n.ToUID == uid && !n.IsRead {
			n.IsRead = true
			n.UpdatedAt = now
			n.Version++
		}
	}
	return nil
}

func (r *NotificationRepository) Archive(_ context.Context, uid, id string) error {
	return r.update(uid, id, func(n *models.Notification) { n.IsArchived = true })
}

func (r *NotificationRepository) update(uid, id string, apply func(*models.Notification)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || n.ToUID != uid {
		return repositories.ErrNotFound
	}
	apply(n)
	n.UpdatedAt = time.Now()
	n.Version++
	return nil
}

// All returns a snapshot of every stored record in insertion order.
func (r *NotificationRepository) All() []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Notification, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].Clone())
	}
	return out
}

// Mutate applies fn to a stored record. Tests use it to age or rewrite fixtures.
func (r *NotificationRepository) Mutate(id string, fn func(*models.Notification)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if ok {
		fn(n)
	}
	return ok
}
