package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGrouperRejectsSelfAction(t *testing.T) {
	h := newHarness(t)

	_, err := h.grouper.Upsert(testContext(t), likeDraft("bob", "p1", "bob", "Bob"))
	assert.ErrorIs(t, err, ErrSelfAction)
	assert.Empty(t, h.notifications.All())
}

func TestGrouperRequiresRecipient(t *testing.T) {
	h := newHarness(t)

	_, err := h.grouper.Upsert(testContext(t), likeDraft("", "p1", "alice", "Alice"))
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestGrouperNewRecordDefaults(t *testing.T) {
	h := newHarness(t)

	grouped, err := h.grouper.Upsert(testContext(t), likeDraft("bob", "p1", "alice", "Alice"))
	require.NoError(t, err)
	assert.False(t, grouped.WasMerged)
	require.NotNil(t, grouped.Record.GroupCount)
	assert.Equal(t, 1, *grouped.Record.GroupCount)
	assert.Equal(t, models.PushPending, grouped.Record.Push.Status)
	assert.Equal(t, h.clock.Now(), grouped.Record.CreatedAt)

	quiet := followDraft("bob", "carol")
	quiet.Push.Send = false
	deduped, err := h.grouper.Upsert(testContext(t), quiet)
	require.NoError(t, err)
	assert.Nil(t, deduped.Record.GroupCount)
	assert.Equal(t, models.PushSkipped, deduped.Record.Push.Status)
}

func TestGrouperDedupeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	first, err := h.grouper.Upsert(ctx, followDraft("bob", "alice"))
	require.NoError(t, err)
	assert.False(t, first.WasMerged)

	h.clock.Advance(time.Minute)
	second, err := h.grouper.Upsert(ctx, followDraft("bob", "alice"))
	require.NoError(t, err)
	assert.True(t, second.WasMerged)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Record.UpdatedAt, second.Record.UpdatedAt, "duplicate leaves the record untouched")
	assert.Len(t, h.notifications.All(), 1)
}

func TestGrouperMergesBurstIntoOneThread(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	likers := []string{"alice", "carol", "dave", "erin"}
	var last *UpsertResult
	for _, liker := range likers {
		var err error
		last, err = h.grouper.Upsert(ctx, likeDraft("bob", "p1", liker, liker+"-name"))
		require.NoError(t, err)
	}

	all := h.notifications.All()
	require.Len(t, all, 1)
	require.NotNil(t, all[0].GroupCount)
	assert.Equal(t, len(likers), *all[0].GroupCount)
	assert.Equal(t, "erin-name", all[0].ActorName)
	assert.Equal(t, "erin", all[0].ActorUID)
	assert.Equal(t, "erin-name liked your post", all[0].Title)
	assert.True(t, last.WasMerged)
}

func TestGrouperRepushThrottle(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	created, err := h.grouper.Upsert(ctx, likeDraft("bob", "p1", "alice", "Alice"))
	require.NoError(t, err)
	pushedAt := h.clock.Now()
	ok, err := h.notifications.CompletePush(ctx, created.ID, models.PushResult{Status: models.PushSent, SentCount: 1, TokenCount: 1}, pushedAt)
	require.NoError(t, err)
	require.True(t, ok)

	h.clock.Advance(time.Minute)
	early, err := h.grouper.Upsert(ctx, likeDraft("bob", "p1", "carol", "Carol"))
	require.NoError(t, err)
	assert.Equal(t, models.PushSent, early.Record.Push.Status, "inside throttle window")

	h.clock.Advance(10 * time.Minute)
	late, err := h.grouper.Upsert(ctx, likeDraft("bob", "p1", "dave", "Dave"))
	require.NoError(t, err)
	assert.Equal(t, models.PushPending, late.Record.Push.Status, "throttle elapsed")
	require.NotNil(t, late.Record.GroupCount)
	assert.Equal(t, 3, *late.Record.GroupCount)
}

func TestGrouperReadRecordStartsNewThread(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	first, err := h.grouper.Upsert(ctx, likeDraft("bob", "p1", "alice", "Alice"))
	require.NoError(t, err)
	require.NoError(t, h.notifications.MarkAsRead(ctx, "bob", first.ID))

	second, err := h.grouper.Upsert(ctx, likeDraft("bob", "p1", "carol", "Carol"))
	require.NoError(t, err)
	assert.False(t, second.WasMerged)
	assert.NotEqual(t, first.ID, second.ID)

	followed, err := h.grouper.Upsert(ctx, followDraft("bob", "alice"))
	require.NoError(t, err)
	require.NoError(t, h.notifications.Archive(ctx, "bob", followed.ID))
	again, err := h.grouper.Upsert(ctx, followDraft("bob", "alice"))
	require.NoError(t, err)
	assert.False(t, again.WasMerged)
	assert.Len(t, h.notifications.All(), 4)
}

func TestGrouperUngroupedDraftAlwaysInserts(t *testing.T) {
	h := newHarness(t)
	draft := &models.Notification{ToUID: "bob", Type: models.TypeAnnouncement, Title: "Campus closed"}

	a, err := h.grouper.Upsert(testContext(t), draft)
	require.NoError(t, err)
	b, err := h.grouper.Upsert(testContext(t), draft)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

// failingRearm makes every re-arm attempt fail after the merge has been written
type failingRearm struct {
	*memory.NotificationRepository
}

func (failingRearm) RearmPush(context.Context, string, time.Time, time.Time) (bool, error) {
	return false, errors.New("write conflict")
}

func TestGrouperMergeSurvivesRearmFailure(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)
	g := NewGrouper(failingRearm{h.notifications}, DefaultRepushThrottle, h.clock.Now, zaptest.NewLogger(t))

	_, err := g.Upsert(ctx, likeDraft("bob", "p1", "alice", "Alice"))
	require.NoError(t, err)

	merged, err := g.Upsert(ctx, likeDraft("bob", "p1", "carol", "Carol"))
	require.NoError(t, err, "a committed merge must not be reported as a failure")
	assert.True(t, merged.WasMerged)
	require.NotNil(t, merged.Record.GroupCount)
	assert.Equal(t, 2, *merged.Record.GroupCount)
}
