package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/ratelimit"
	"go.uber.org/zap"
)

// DefaultDiagnosticWindow allows one test push per caller per minute
const DefaultDiagnosticWindow = 60 * time.Second

// DiagnosticResult is returned to the caller of the test endpoint
type DiagnosticResult struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	NotificationID string            `json:"notificationId"`
	PushStatus     models.PushStatus `json:"pushStatus"`
}

// Diagnostics sends a synthetic system notification through the full pipeline
type Diagnostics struct {
	notifier *Notifier
	limiter  ratelimit.Limiter
	window   time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewDiagnostics(notifier *Notifier, limiter ratelimit.Limiter, window time.Duration, now func() time.Time, logger *zap.Logger) *Diagnostics {
	if window <= 0 {
		window = DefaultDiagnosticWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Diagnostics{notifier: notifier, limiter: limiter, window: window, now: now, logger: logger}
}

// SendTest runs a test push for uid and reports its delivery status
func (d *Diagnostics) SendTest(ctx context.Context, uid string) (*DiagnosticResult, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}

	allowed, err := d.limiter.Allow(ctx, "diag:"+uid, d.window)
	if err != nil {
		return nil, fmt.Errorf("check rate limit: %w", err)
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	now := d.now()
	draft := &models.Notification{
		ToUID: uid,
		Type:  models.TypeSystem,
		Title: "Test notification",
		Body:  "If you can see this, push notifications are working.",
		Deeplink: models.Deeplink{
			Screen: "notificationSettings",
			Params: map[string]string{},
		},
		DedupeKey: fmt.Sprintf("test:%s:%d", uid, now.UnixMilli()),
		Push:      models.PushState{Send: true},
	}

	res, err := d.notifier.Notify(ctx, draft)
	if err != nil {
		return nil, err
	}

	status := res.Record.Push.Status
	out := &DiagnosticResult{
		Success:        status == models.PushSent,
		NotificationID: res.ID,
		PushStatus:     status,
	}
	switch status {
	case models.PushSent:
		out.Message = fmt.Sprintf("Test notification sent to %d device(s)", res.Record.Push.SentCount)
	case models.PushSkipped:
		out.Message = "Test notification skipped: " + res.Record.Push.Error
	case models.PushFailed:
		out.Message = "Test notification failed: " + res.Record.Push.Error
	default:
		out.Message = "Test notification queued"
	}

	d.logger.Info("diagnostic push",
		zap.String("to_uid", uid),
		zap.String("notification_id", res.ID),
		zap.String("status", string(status)))
	return out, nil
}
