package services

import (
	"sync"
	"testing"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/push"
	"github.com/anonto42/campus-pulse/backend/internal/ratelimit"
	"github.com/anonto42/campus-pulse/backend/internal/repositories/memory"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	clock         *fakeClock
	notifications *memory.NotificationRepository
	devices       *memory.DeviceRepository
	preferences   *memory.PreferencesRepository
	appConfig     *memory.AppConfigRepository
	sender        *push.FakeSender
	icons         *IconResolver
	grouper       *Grouper
	dispatcher    *Dispatcher
	notifier      *Notifier
	sweeper       *Sweeper
	diagnostics   *Diagnostics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	h := &harness{
		clock:         newFakeClock(),
		notifications: memory.NewNotificationRepository(),
		devices:       memory.NewDeviceRepository(),
		preferences:   memory.NewPreferencesRepository(),
		appConfig:     &memory.AppConfigRepository{IconURL: "https://cdn.campuspulse.app/app-icon.png"},
		sender:        push.NewFakeSender(),
	}
	now := h.clock.Now
	h.icons = NewIconResolver(h.appConfig, time.Hour, "", logger)
	h.grouper = NewGrouper(h.notifications, DefaultRepushThrottle, now, logger)
	h.dispatcher = NewDispatcher(h.notifications, h.devices, h.preferences, h.sender, h.icons,
		DispatcherConfig{MaxTokens: push.MaxMulticastTokens, TransportAttempts: 3, RetryBackoff: time.Millisecond},
		now, logger)
	h.notifier = NewNotifier(h.grouper, h.dispatcher, h.notifications, DefaultDispatchLease, now, logger)
	h.sweeper = NewSweeper(h.notifications, h.dispatcher, SweeperConfig{}, now, logger)
	h.diagnostics = NewDiagnostics(h.notifier, ratelimit.NewMemoryLimiter(), DefaultDiagnosticWindow, now, logger)
	return h
}

func (h *harness) registerDevice(t *testing.T, uid, token string) {
	t.Helper()
	err := h.devices.Upsert(testContext(t), &models.Device{
		UID:        uid,
		FCMToken:   token,
		Platform:   models.PlatformAndroid,
		LastSeenAt: h.clock.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func likeDraft(ownerUID, postID, likerUID, likerName string) *models.Notification {
	return &models.Notification{
		ToUID:     ownerUID,
		Type:      models.TypePostLike,
		Title:     likerName + " liked your post",
		ActorUID:  likerUID,
		ActorName: likerName,
		PostID:    postID,
		Deeplink:  models.Deeplink{Screen: "post", Params: map[string]string{"postId": postID}},
		GroupKey:  "post_like:" + ownerUID + ":" + postID,
		Push:      models.PushState{Send: true},
	}
}

func followDraft(toUID, followerUID string) *models.Notification {
	return &models.Notification{
		ToUID:     toUID,
		Type:      models.TypeFollow,
		Title:     "Someone started following you",
		ActorUID:  followerUID,
		ActorName: "Someone",
		Deeplink:  models.Deeplink{Screen: "profile", Params: map[string]string{"uid": followerUID}},
		DedupeKey: "follow:" + toUID + ":" + followerUID,
		Push:      models.PushState{Send: true},
	}
}
