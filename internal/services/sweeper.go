package services

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"go.uber.org/zap"
)

// Sweeper defaults
const (
	DefaultSweepGrace = 30 * time.Second
	DefaultSweepBatch = 100
	sweepTimeout      = 5 * time.Minute
)

// SweeperConfig tunes the fallback sweep
type SweeperConfig struct {
	Grace time.Duration
	Lease time.Duration
	Batch int
}

// Sweeper re-drives records left pending by a lost synchronous dispatch.
// Terminal records, failed included, are never revisited.
type Sweeper struct {
	notifications repositories.NotificationRepository
	dispatcher    *Dispatcher
	cfg           SweeperConfig
	now           func() time.Time
	logger        *zap.Logger
}

func NewSweeper(notifications repositories.NotificationRepository, dispatcher *Dispatcher, cfg SweeperConfig, now func() time.Time, logger *zap.Logger) *Sweeper {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultSweepGrace
	}
	if cfg.Lease <= 0 {
		cfg.Lease = DefaultDispatchLease
	}
	if cfg.Batch <= 0 {
		cfg.Batch = DefaultSweepBatch
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{notifications: notifications, dispatcher: dispatcher, cfg: cfg, now: now, logger: logger}
}

// ShouldRedrive evaluates the guards in order: record exists, delivery requested,
// status exactly pending, age at least the grace window.
func (s *Sweeper) ShouldRedrive(n *models.Notification, now time.Time) bool {
	if n == nil {
		return false
	}
	if !n.Push.Send {
		return false
	}
	if n.Push.Status != models.PushPending {
		return false
	}
	return now.Sub(n.CreatedAt) >= s.cfg.Grace
}

// OnWrite reacts to a change of a single record. It reports whether a dispatch ran.
func (s *Sweeper) OnWrite(ctx context.Context, id string) (bool, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := s.now()
	if !s.ShouldRedrive(n, now) {
		return false, nil
	}
	claimed, err := s.notifications.ClaimDispatch(ctx, id, now, s.cfg.Lease)
	if err != nil || claimed == nil {
		return false, err
	}
	s.redrive(ctx, claimed)
	return true, nil
}

// Sweep claims a batch of stale pending records and dispatches each. It returns the number dispatched.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	claimed, err := s.notifications.ClaimStalePending(ctx, now.Add(-s.cfg.Grace), now, s.cfg.Lease, s.cfg.Batch)
	dispatched := 0
	for _, n := range claimed {
		if !s.ShouldRedrive(n, now) {
			continue
		}
		s.redrive(ctx, n)
		dispatched++
	}
	return dispatched, err
}

// Watch applies OnWrite to every pending write the watcher reports until ctx ends.
// A failing stream is logged and ends the watch; the cron sweep still covers the records.
func (s *Sweeper) Watch(ctx context.Context, watcher repositories.PendingWatcher) error {
	err := watcher.WatchPending(ctx, func(ctx context.Context, id string) {
		if _, err := s.OnWrite(ctx, id); err != nil {
			s.logger.Warn("write-triggered re-drive", zap.String("notification_id", id), zap.Error(err))
		}
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("pending watch stopped", zap.Error(err))
	}
	return nil
}

func (s *Sweeper) redrive(ctx context.Context, n *models.Notification) {
	s.logger.Info("re-driving stale pending notification",
		zap.String("notification_id", n.ID),
		zap.Duration("age", s.now().Sub(n.CreatedAt)))
	if _, err := s.dispatcher.Dispatch(ctx, n); err != nil {
		s.logger.Warn("re-drive dispatch failed", zap.String("notification_id", n.ID), zap.Error(err))
	}
}

// Run makes the sweeper a cron job
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	count, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("fallback sweep", zap.Error(err), zap.Int("dispatched", count))
		return
	}
	if count > 0 {
		s.logger.Info("fallback sweep finished", zap.Int("dispatched", count))
	}
}
