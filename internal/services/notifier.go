package services

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"go.uber.org/zap"
)

// DefaultDispatchLease bounds how long one dispatcher may hold a pending cycle
const DefaultDispatchLease = 2 * time.Minute

// NotifyResult is what the synchronous path reports back
type NotifyResult struct {
	ID        string
	Record    *models.Notification
	WasMerged bool
	// Push is nil when no dispatch ran on this call.
	Push *models.PushResult
}

// Notifier is the synchronous path: grouper write followed by an immediate dispatch
type Notifier struct {
	grouper       *Grouper
	dispatcher    *Dispatcher
	notifications repositories.NotificationRepository
	lease         time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

func NewNotifier(
	grouper *Grouper,
	dispatcher *Dispatcher,
	notifications repositories.NotificationRepository,
	lease time.Duration,
	now func() time.Time,
	logger *zap.Logger,
) *Notifier {
	if lease <= 0 {
		lease = DefaultDispatchLease
	}
	if now == nil {
		now = time.Now
	}
	return &Notifier{
		grouper:       grouper,
		dispatcher:    dispatcher,
		notifications: notifications,
		lease:         lease,
		now:           now,
		logger:        logger,
	}
}

// Notify stores draft and, when the stored record is pending, dispatches it.
// A self-addressed draft is a no-op and returns a nil result.
func (s *Notifier) Notify(ctx context.Context, draft *models.Notification) (*NotifyResult, error) {
	upserted, err := s.grouper.Upsert(ctx, draft)
	if errors.Is(err, ErrSelfAction) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	res := &NotifyResult{ID: upserted.ID, Record: upserted.Record, WasMerged: upserted.WasMerged}
	if !upserted.Record.Push.Send || upserted.Record.Push.Status != models.PushPending {
		return res, nil
	}

	claimed, err := s.notifications.ClaimDispatch(ctx, upserted.ID, s.now(), s.lease)
	if err != nil {
		// The sweeper picks the record up once the grace window passes.
		s.logger.Warn("claim dispatch", zap.String("notification_id", upserted.ID), zap.Error(err))
		return res, nil
	}
	if claimed == nil {
		return res, nil
	}

	pushResult, dispatchErr := s.dispatcher.Dispatch(ctx, claimed)
	res.Push = &pushResult
	if dispatchErr != nil {
		s.logger.Warn("dispatch failed", zap.String("notification_id", upserted.ID), zap.Error(dispatchErr))
	}

	stored, err := s.notifications.GetByID(ctx, upserted.ID)
	if err != nil {
		// the write is committed, so the caller must not retry
		s.logger.Warn("reload notification", zap.String("notification_id", upserted.ID), zap.Error(err))
		return res, nil
	}
	res.Record = stored
	return res, nil
}
