package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRepushThrottle is the minimum gap between pushes of one grouped thread
const DefaultRepushThrottle = 10 * time.Minute

// UpsertResult is the outcome of a grouper decision
type UpsertResult struct {
	ID        string
	Record    *models.Notification
	WasMerged bool
}

// Grouper decides whether a draft creates a record or folds into an open one.
// The decision itself is a single atomic repository call keyed by (toUid, key).
type Grouper struct {
	repo     repositories.NotificationRepository
	throttle time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewGrouper(repo repositories.NotificationRepository, throttle time.Duration, now func() time.Time, logger *zap.Logger) *Grouper {
	if throttle <= 0 {
		throttle = DefaultRepushThrottle
	}
	if now == nil {
		now = time.Now
	}
	return &Grouper{repo: repo, throttle: throttle, now: now, logger: logger}
}

func (g *Grouper) prepare(draft *models.Notification) *models.Notification {
	n := draft.Clone()
	now := g.now()
	n.ID = uuid.NewString()
	n.IsRead = false
	n.IsArchived = false
	n.CreatedAt = now
	n.UpdatedAt = now
	n.Version = 1
	n.LastPushAt = nil
	n.Push = models.PushState{Send: draft.Push.Send, Status: models.PushSkipped}
	if n.Push.Send {
		n.Push.Status = models.PushPending
	}
	if n.GroupKey != "" {
		one := 1
		n.GroupCount = &one
	} else {
		n.GroupCount = nil
	}
	return n
}

// Upsert stores draft according to its group or dedupe key
func (g *Grouper) Upsert(ctx context.Context, draft *models.Notification) (*UpsertResult, error) {
	if draft.ToUID == "" {
		return nil, fmt.Errorf("%w: missing recipient", ErrInvalidEvent)
	}
	if draft.ActorUID != "" && draft.ActorUID == draft.ToUID {
		return nil, ErrSelfAction
	}
	n := g.prepare(draft)

	switch {
	case n.GroupKey != "":
		return g.upsertGrouped(ctx, n)
	case n.DedupeKey != "":
		stored, existed, err := g.repo.InsertIfAbsent(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("insert deduped notification: %w", err)
		}
		if existed {
			g.logger.Debug("duplicate notification ignored",
				zap.String("notification_id", stored.ID),
				zap.String("dedupe_key", n.DedupeKey))
		}
		return &UpsertResult{ID: stored.ID, Record: stored, WasMerged: existed}, nil
	default:
		if err := g.repo.Insert(ctx, n); err != nil {
			return nil, fmt.Errorf("insert notification: %w", err)
		}
		return &UpsertResult{ID: n.ID, Record: n}, nil
	}
}

func (g *Grouper) upsertGrouped(ctx context.Context, n *models.Notification) (*UpsertResult, error) {
	stored, merged, err := g.repo.UpsertGrouped(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("upsert grouped notification: %w", err)
	}
	if !merged || !n.Push.Send {
		return &UpsertResult{ID: stored.ID, Record: stored, WasMerged: merged}, nil
	}

	// The merge is committed. Errors past this point are logged, never returned:
	// a returned error would make the caller redeliver and merge the same event twice.
	now := g.now()
	rearmed, err := g.repo.RearmPush(ctx, stored.ID, now.Add(-g.throttle), now)
	if err != nil {
		g.logger.Warn("re-arm grouped push",
			zap.String("notification_id", stored.ID),
			zap.String("group_key", n.GroupKey),
			zap.Error(err))
		return &UpsertResult{ID: stored.ID, Record: stored, WasMerged: true}, nil
	}
	if rearmed {
		g.logger.Debug("grouped push re-armed",
			zap.String("notification_id", stored.ID),
			zap.String("group_key", n.GroupKey))
		reloaded, err := g.repo.GetByID(ctx, stored.ID)
		if err != nil {
			g.logger.Warn("reload re-armed notification", zap.String("notification_id", stored.ID), zap.Error(err))
			stored.Push.Status = models.PushPending
			stored.Push.Error = ""
		} else {
			stored = reloaded
		}
	}
	return &UpsertResult{ID: stored.ID, Record: stored, WasMerged: true}, nil
}
