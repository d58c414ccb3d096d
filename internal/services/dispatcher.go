package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/push"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Skip reasons recorded on push.error
const (
	ReasonNoTokens      = "no_tokens"
	ReasonQuietHours    = "quiet_hours"
	ReasonAllDisabled   = "User disabled all pushes"
	reasonTypeDisabledF = "User disabled %s pushes"
)

// DispatcherConfig tunes delivery
type DispatcherConfig struct {
	MaxTokens         int
	TransportAttempts int
	RetryBackoff      time.Duration
}

// DefaultDispatcherConfig caps a multicast at the FCM limit and retries transport failures twice
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxTokens:         push.MaxMulticastTokens,
		TransportAttempts: 3,
		RetryBackoff:      250 * time.Millisecond,
	}
}

// Dispatcher turns a pending notification into a multicast and records the outcome
type Dispatcher struct {
	notifications repositories.NotificationRepository
	devices       repositories.DeviceRepository
	preferences   repositories.PreferencesRepository
	sender        push.Sender
	icons         *IconResolver
	cfg           DispatcherConfig
	now           func() time.Time
	logger        *zap.Logger
}

func NewDispatcher(
	notifications repositories.NotificationRepository,
	devices repositories.DeviceRepository,
	preferences repositories.PreferencesRepository,
	sender push.Sender,
	icons *IconResolver,
	cfg DispatcherConfig,
	now func() time.Time,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.MaxTokens <= 0 || cfg.MaxTokens > push.MaxMulticastTokens {
		cfg.MaxTokens = push.MaxMulticastTokens
	}
	if cfg.TransportAttempts <= 0 {
		cfg.TransportAttempts = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		notifications: notifications,
		devices:       devices,
		preferences:   preferences,
		sender:        sender,
		icons:         icons,
		cfg:           cfg,
		now:           now,
		logger:        logger,
	}
}

// Dispatch delivers n and persists the terminal status. The returned error is for logging;
// the failure has already been written onto the record.
func (d *Dispatcher) Dispatch(ctx context.Context, n *models.Notification) (result models.PushResult, err error) {
	started := d.now()
	log := d.logger.With(
		zap.String("notification_id", n.ID),
		zap.String("to_uid", n.ToUID),
		zap.String("type", string(n.Type)),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
			result = models.PushResult{Status: models.PushFailed, Error: err.Error()}
		}
		result.DurationMs = d.now().Sub(started).Milliseconds()
		if err != nil {
			result.Status = models.PushFailed
			if result.Error == "" {
				result.Error = err.Error()
			}
		}
		d.complete(log, n.ID, result)
	}()

	return d.deliver(ctx, n, log)
}

func (d *Dispatcher) complete(log *zap.Logger, id string, result models.PushResult) {
	// Recording must survive a caller context that was cancelled mid-send.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	written, err := d.notifications.CompletePush(ctx, id, result, d.now())
	switch {
	case err != nil:
		log.Error("record push result", zap.Error(err), zap.String("status", string(result.Status)))
	case !written:
		log.Warn("push result not recorded, cycle no longer pending", zap.String("status", string(result.Status)))
	default:
		log.Info("push dispatched",
			zap.String("status", string(result.Status)),
			zap.Int("sent", result.SentCount),
			zap.Int("failed", result.FailCount),
			zap.Int("tokens", result.TokenCount),
			zap.String("error", result.Error),
			zap.Int64("duration_ms", result.DurationMs),
		)
	}
}

func skipped(reason string) models.PushResult {
	return models.PushResult{Status: models.PushSkipped, Error: reason}
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification, log *zap.Logger) (models.PushResult, error) {
	prefs, err := d.preferences.Get(ctx, n.ToUID)
	if errors.Is(err, repositories.ErrNotFound) {
		prefs = models.DefaultPreferences(n.ToUID)
	} else if err != nil {
		return models.PushResult{}, fmt.Errorf("load preferences: %w", err)
	}

	if !prefs.PushEnabled {
		return skipped(ReasonAllDisabled), nil
	}
	if !prefs.TypeEnabled(n.Type) {
		return skipped(fmt.Sprintf(reasonTypeDisabledF, n.Type)), nil
	}
	if prefs.QuietHours != nil {
		quiet, qerr := prefs.QuietHours.Contains(d.now())
		if qerr != nil {
			log.Warn("ignoring malformed quiet hours", zap.Error(qerr))
		} else if quiet {
			return skipped(ReasonQuietHours), nil
		}
	}

	tokens, err := d.devices.ListActiveTokens(ctx, n.ToUID)
	if err != nil {
		return models.PushResult{}, fmt.Errorf("load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return skipped(ReasonNoTokens), nil
	}
	if len(tokens) > d.cfg.MaxTokens {
		log.Warn("token set truncated",
			zap.Int("tokens", len(tokens)),
			zap.Int("cap", d.cfg.MaxTokens))
		tokens = tokens[:d.cfg.MaxTokens]
	}

	msg, err := d.buildMessage(ctx, n)
	if err != nil {
		return models.PushResult{TokenCount: len(tokens)}, err
	}

	results, err := d.sendWithRetry(ctx, tokens, msg, log)
	if err != nil {
		return models.PushResult{TokenCount: len(tokens), FailCount: len(tokens)}, err
	}

	return d.summarize(ctx, n.ToUID, tokens, results, log), nil
}

func (d *Dispatcher) buildMessage(ctx context.Context, n *models.Notification) (push.Message, error) {
	params := n.Deeplink.Params
	if params == nil {
		params = map[string]string{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return push.Message{}, fmt.Errorf("encode deeplink params: %w", err)
	}
	return push.Message{
		NotificationID: n.ID,
		Screen:         n.Deeplink.Screen,
		ParamsJSON:     string(paramsJSON),
		Title:          n.Title,
		Body:           n.Body,
		ImageURL:       d.icons.Resolve(ctx, n.ActorPhotoURL, n.ImageURL),
	}, nil
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, tokens []string, msg push.Message, log *zap.Logger) ([]push.TokenResult, error) {
	backoff := d.cfg.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= d.cfg.TransportAttempts; attempt++ {
		results, err := d.sender.SendMulticast(ctx, tokens, msg)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if attempt == d.cfg.TransportAttempts {
			break
		}
		log.Warn("multicast failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("multicast: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("multicast after %d attempts: %w", d.cfg.TransportAttempts, lastErr)
}

func (d *Dispatcher) summarize(ctx context.Context, uid string, tokens []string, results []push.TokenResult, log *zap.Logger) models.PushResult {
	result := models.PushResult{TokenCount: len(tokens)}
	for _, r := range results {
		if r.Success() {
			result.SentCount++
			continue
		}
		result.FailCount++
		if result.Error == "" {
			result.Error = r.Err.Error()
		}
		if r.InvalidToken {
			if _, err := d.devices.DeleteByToken(ctx, uid, r.Token); err != nil {
				log.Warn("remove invalid token", zap.Error(err))
			} else {
				log.Info("removed invalid token")
			}
		}
	}
	if result.SentCount > 0 {
		result.Status = models.PushSent
	} else {
		result.Status = models.PushFailed
	}
	return result
}
