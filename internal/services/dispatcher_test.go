package services

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/push"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/api/option"
)

// pendingRecord stores a pending draft and returns the claimed copy
func pendingRecord(t *testing.T, h *harness, draft *models.Notification) *models.Notification {
	t.Helper()
	res, err := h.grouper.Upsert(testContext(t), draft)
	require.NoError(t, err)
	claimed, err := h.notifications.ClaimDispatch(testContext(t), res.ID, h.clock.Now(), DefaultDispatchLease)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	return claimed
}

func TestDispatchSkipsWhenPushDisabled(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-1")
	require.NoError(t, h.preferences.Save(testContext(t), &models.Preferences{UID: "bob", PushEnabled: false}))

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)

	assert.Equal(t, models.PushSkipped, result.Status)
	assert.Equal(t, "User disabled all pushes", result.Error)
	assert.Zero(t, h.sender.CallCount())

	stored, _ := h.notifications.GetByID(testContext(t), n.ID)
	assert.Equal(t, models.PushSkipped, stored.Push.Status)
	assert.NotNil(t, stored.LastPushAt)
}

func TestDispatchSkipsDisabledType(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-1")
	require.NoError(t, h.preferences.Save(testContext(t), &models.Preferences{
		UID:         "bob",
		PushEnabled: true,
		PushTypes:   map[models.NotificationType]bool{models.TypePostLike: false, models.TypeFollow: true},
	}))

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)
	assert.Equal(t, models.PushSkipped, result.Status)
	assert.Equal(t, "User disabled post_like pushes", result.Error)

	f := pendingRecord(t, h, followDraft("bob", "alice"))
	result, err = h.dispatcher.Dispatch(testContext(t), f)
	require.NoError(t, err)
	assert.Equal(t, models.PushSent, result.Status)
}

func TestDispatchSkipsDuringQuietHours(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-1")
	// clock is 12:00 UTC
	require.NoError(t, h.preferences.Save(testContext(t), &models.Preferences{
		UID:         "bob",
		PushEnabled: true,
		QuietHours:  &models.QuietHours{Start: "11:00", End: "13:00", Timezone: "UTC"},
	}))

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)
	assert.Equal(t, models.PushSkipped, result.Status)
	assert.Equal(t, ReasonQuietHours, result.Error)
}

func TestDispatchSkipsWithoutTokens(t *testing.T) {
	h := newHarness(t)

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)
	assert.Equal(t, models.PushSkipped, result.Status)
	assert.Equal(t, "no_tokens", result.Error)
}

func TestDispatchSendsDataOnlyPayload(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-1")

	draft := likeDraft("bob", "p1", "alice", "Alice")
	draft.ActorPhotoURL = "https://cdn.campuspulse.app/u/alice.png"
	draft.Deeplink.Params["campusId"] = "c9"
	n := pendingRecord(t, h, draft)

	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)
	assert.Equal(t, models.PushSent, result.Status)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 1, result.TokenCount)

	require.Len(t, h.sender.Calls, 1)
	msg := h.sender.Calls[0].Message
	assert.Equal(t, n.ID, msg.NotificationID)
	assert.Equal(t, "post", msg.Screen)
	assert.Equal(t, "Alice liked your post", msg.Title)
	assert.Equal(t, "https://cdn.campuspulse.app/u/alice.png", msg.ImageURL)

	var params map[string]string
	require.NoError(t, json.Unmarshal([]byte(msg.ParamsJSON), &params))
	assert.Equal(t, map[string]string{"postId": "p1", "campusId": "c9"}, params)

	stored, _ := h.notifications.GetByID(testContext(t), n.ID)
	assert.Equal(t, models.PushSent, stored.Push.Status)
	assert.NotNil(t, stored.Push.SentAt)
	assert.Nil(t, stored.Push.LeaseUntil)
}

func TestDispatchIconFallbackChain(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-1")

	withImage := likeDraft("bob", "p1", "alice", "Alice")
	withImage.ImageURL = "https://cdn.campuspulse.app/p/p1.jpg"
	_, err := h.dispatcher.Dispatch(testContext(t), pendingRecord(t, h, withImage))
	require.NoError(t, err)

	bare := followDraft("bob", "carol")
	_, err = h.dispatcher.Dispatch(testContext(t), pendingRecord(t, h, bare))
	require.NoError(t, err)

	require.Len(t, h.sender.Calls, 2)
	assert.Equal(t, "https://cdn.campuspulse.app/p/p1.jpg", h.sender.Calls[0].Message.ImageURL)
	assert.Equal(t, "https://cdn.campuspulse.app/app-icon.png", h.sender.Calls[1].Message.ImageURL)
}

func TestIconResolverCachesAndFallsBack(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "https://cdn.campuspulse.app/app-icon.png", h.icons.DefaultIcon(testContext(t)))
	assert.Equal(t, "https://cdn.campuspulse.app/app-icon.png", h.icons.DefaultIcon(testContext(t)))
	assert.Equal(t, 1, h.appConfig.Calls)

	h.appConfig.Err = errors.New("mongo down")
	cold := NewIconResolver(h.appConfig, time.Hour, "", h.dispatcher.logger)
	assert.Equal(t, FallbackIconURL, cold.DefaultIcon(testContext(t)))
}

func TestDispatchRemovesInvalidTokens(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-dead")
	h.sender.Invalid["token-bob-dead"] = true

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)

	assert.Equal(t, models.PushFailed, result.Status)
	assert.Equal(t, 1, result.FailCount)
	assert.Equal(t, push.ErrUnregistered.Error(), result.Error)

	tokens, err := h.devices.ListActiveTokens(testContext(t), "bob")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestDispatchPartialFailureStillSent(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-1")
	h.registerDevice(t, "bob", "token-bob-2")
	h.sender.Failing["token-bob-2"] = errors.New("quota exceeded")

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)

	assert.Equal(t, models.PushSent, result.Status)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 1, result.FailCount)
	assert.Equal(t, "quota exceeded", result.Error)

	tokens, _ := h.devices.ListActiveTokens(testContext(t), "bob")
	assert.Len(t, tokens, 2, "transient failures keep the device")
}

func TestDispatchCapsTokenSet(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.cfg.MaxTokens = 3
	for i := 0; i < 5; i++ {
		h.registerDevice(t, "bob", fmt.Sprintf("token-bob-%d", i))
	}

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TokenCount)
	require.Len(t, h.sender.Calls, 1)
	assert.Len(t, h.sender.Calls[0].Tokens, 3)
}

func TestDispatchRetriesTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-1")
	h.sender.TransportErrs = []error{push.ErrTransport, push.ErrTransport}

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)
	assert.Equal(t, models.PushSent, result.Status)
	assert.Equal(t, 3, h.sender.CallCount())
}

func TestDispatchRecordsFailedAfterRetriesExhausted(t *testing.T) {
	h := newHarness(t)
	h.registerDevice(t, "bob", "token-bob-1")
	h.sender.TransportErrs = []error{push.ErrTransport, push.ErrTransport, push.ErrTransport}

	n := pendingRecord(t, h, likeDraft("bob", "p1", "alice", "Alice"))
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.Error(t, err)
	assert.ErrorIs(t, err, push.ErrTransport)
	assert.Equal(t, models.PushFailed, result.Status)

	stored, _ := h.notifications.GetByID(testContext(t), n.ID)
	assert.Equal(t, models.PushFailed, stored.Push.Status)
	assert.Contains(t, stored.Push.Error, "multicast after 3 attempts")
}

func TestDispatchKeepsDevicesWhenProviderRejectsMessage(t *testing.T) {
	// every token gets the same message-level INVALID_ARGUMENT
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Message is too big","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	app, err := firebase.NewApp(testContext(t), &firebase.Config{ProjectID: "campus-pulse-test"},
		option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	client, err := app.Messaging(testContext(t))
	require.NoError(t, err)

	h := newHarness(t)
	h.dispatcher.sender = push.NewFCMSender(client, false, zaptest.NewLogger(t))
	h.registerDevice(t, "bob", "token-bob-1")
	h.registerDevice(t, "bob", "token-bob-2")

	draft := clubInviteDraft("bob", "alice", strings.Repeat("Very Long Club Name ", 300))
	n := pendingRecord(t, h, draft)
	result, err := h.dispatcher.Dispatch(testContext(t), n)
	require.NoError(t, err)
	assert.Equal(t, models.PushFailed, result.Status)
	assert.Equal(t, 2, result.FailCount)

	tokens, err := h.devices.ListActiveTokens(testContext(t), "bob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"token-bob-1", "token-bob-2"}, tokens)
}

func clubInviteDraft(toUID, inviterUID, clubName string) *models.Notification {
	return &models.Notification{
		ToUID:     toUID,
		Type:      models.TypeClubInvite,
		Title:     "Alice invited you to join " + clubName,
		ActorUID:  inviterUID,
		ClubID:    "c1",
		Deeplink:  models.Deeplink{Screen: "club", Params: map[string]string{"clubId": "c1"}},
		DedupeKey: "club_invite:" + toUID + ":c1:" + inviterUID,
		Push:      models.PushState{Send: true},
	}
}
