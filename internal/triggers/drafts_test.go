package triggers

import (
	"strings"
	"testing"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = models.UserProfile{UID: "alice", DisplayName: "Alice", PhotoURL: "https://cdn/alice.png"}

func TestDraftKeysAndDeeplinks(t *testing.T) {
	tests := []struct {
		name      string
		draft     *models.Notification
		toUID     string
		typ       models.NotificationType
		dedupeKey string
		groupKey  string
		screen    string
		params    map[string]string
	}{
		{
			name:      "follow",
			draft:     FollowDraft(models.FollowCreatedEvent{FollowerUID: "alice", FolloweeUID: "bob"}, alice),
			toUID:     "bob",
			typ:       models.TypeFollow,
			dedupeKey: "follow:bob:alice",
			screen:    ScreenProfile,
			params:    map[string]string{"uid": "alice"},
		},
		{
			name:      "club invite",
			draft:     ClubInviteDraft(models.ClubInviteCreatedEvent{InviteID: "i1", ClubID: "chess", InviterUID: "alice", InviteeUID: "bob"}, "Chess Club", alice),
			toUID:     "bob",
			typ:       models.TypeClubInvite,
			dedupeKey: "club_invite:bob:chess:alice",
			screen:    ScreenClub,
			params:    map[string]string{"clubId": "chess"},
		},
		{
			name:     "post like",
			draft:    PostLikeDraft(models.PostLikedEvent{PostID: "p1", LikerUID: "alice", CampusID: "c9"}, "bob", alice),
			toUID:    "bob",
			typ:      models.TypePostLike,
			groupKey: "post_like:bob:p1",
			screen:   ScreenPost,
			params:   map[string]string{"postId": "p1", "campusId": "c9"},
		},
		{
			name:     "comment like",
			draft:    CommentLikeDraft(models.CommentLikedEvent{CommentID: "cm1", PostID: "p1", LikerUID: "alice"}, "bob", alice),
			toUID:    "bob",
			typ:      models.TypeCommentLike,
			groupKey: "comment_like:bob:cm1",
			screen:   ScreenPost,
			params:   map[string]string{"postId": "p1", "commentId": "cm1"},
		},
		{
			name:     "reply like",
			draft:    ReplyLikeDraft(models.ReplyLikedEvent{ReplyID: "r1", CommentID: "cm1", PostID: "p1", LikerUID: "alice"}, "bob", alice),
			toUID:    "bob",
			typ:      models.TypeCommentLike,
			groupKey: "reply_like:bob:r1",
			screen:   ScreenPost,
			params:   map[string]string{"postId": "p1", "commentId": "cm1", "replyId": "r1"},
		},
		{
			name:      "comment on post",
			draft:     CommentDraft(models.CommentCreatedEvent{CommentID: "cm1", PostID: "p1", AuthorUID: "alice", Text: "nice"}, "bob", alice),
			toUID:     "bob",
			typ:       models.TypePostComment,
			dedupeKey: "post_comment:bob:p1:alice",
			screen:    ScreenPost,
			params:    map[string]string{"postId": "p1"},
		},
		{
			name:      "reply to comment",
			draft:     ReplyDraft(models.ReplyCreatedEvent{ReplyID: "r1", CommentID: "cm1", PostID: "p1", AuthorUID: "alice"}, "bob", alice),
			toUID:     "bob",
			typ:       models.TypeCommentReply,
			dedupeKey: "comment_reply:bob:cm1:alice",
			screen:    ScreenPost,
			params:    map[string]string{"postId": "p1", "commentId": "cm1", "replyId": "r1"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.draft)
			assert.Equal(t, tc.toUID, tc.draft.ToUID)
			assert.Equal(t, tc.typ, tc.draft.Type)
			assert.Equal(t, tc.dedupeKey, tc.draft.DedupeKey)
			assert.Equal(t, tc.groupKey, tc.draft.GroupKey)
			assert.Equal(t, tc.screen, tc.draft.Deeplink.Screen)
			assert.Equal(t, tc.params, tc.draft.Deeplink.Params)
			assert.Equal(t, "alice", tc.draft.ActorUID)
			assert.Equal(t, "Alice", tc.draft.ActorName)
			assert.True(t, tc.draft.Push.Send)
		})
	}
}

func TestDraftsSuppressSelfActions(t *testing.T) {
	assert.Nil(t, PostLikeDraft(models.PostLikedEvent{PostID: "p1", LikerUID: "alice"}, "alice", alice))
	assert.Nil(t, CommentLikeDraft(models.CommentLikedEvent{CommentID: "c", PostID: "p", LikerUID: "alice"}, "alice", alice))
	assert.Nil(t, ReplyLikeDraft(models.ReplyLikedEvent{ReplyID: "r", CommentID: "c", PostID: "p", LikerUID: "alice"}, "alice", alice))
	assert.Nil(t, CommentDraft(models.CommentCreatedEvent{CommentID: "c", PostID: "p", AuthorUID: "alice"}, "alice", alice))
	assert.Nil(t, ReplyDraft(models.ReplyCreatedEvent{ReplyID: "r", CommentID: "c", PostID: "p", AuthorUID: "alice"}, "alice", alice))
	assert.Nil(t, FollowDraft(models.FollowCreatedEvent{FollowerUID: "alice", FolloweeUID: "alice"}, alice))
	assert.Nil(t, ClubInviteDraft(models.ClubInviteCreatedEvent{ClubID: "c", InviterUID: "alice", InviteeUID: "alice"}, "", alice))
	assert.Empty(t, JoinRequestDrafts(models.JoinRequestCreatedEvent{ClubID: "c", RequesterUID: "alice"}, []string{"alice"}, "", alice))
}

func TestJoinRequestDraftsOnePerAdmin(t *testing.T) {
	drafts := JoinRequestDrafts(
		models.JoinRequestCreatedEvent{RequestID: "rq", ClubID: "chess", RequesterUID: "alice"},
		[]string{"bob", "carol", "alice"},
		"Chess Club",
		alice,
	)
	require.Len(t, drafts, 2)
	assert.Equal(t, "club_join_request:bob:chess:alice", drafts[0].DedupeKey)
	assert.Equal(t, "club_join_request:carol:chess:alice", drafts[1].DedupeKey)
	assert.Equal(t, ScreenClubRequests, drafts[0].Deeplink.Screen)
	assert.Equal(t, "Alice requested to join Chess Club", drafts[0].Title)
}

func TestDraftFallbacks(t *testing.T) {
	anon := models.UserProfile{UID: "x"}
	n := FollowDraft(models.FollowCreatedEvent{FollowerUID: "x", FolloweeUID: "bob"}, anon)
	assert.Equal(t, "Someone started following you", n.Title)

	long := strings.Repeat("é", 150)
	c := CommentDraft(models.CommentCreatedEvent{CommentID: "c", PostID: "p", AuthorUID: "x", Text: long}, "bob", anon)
	assert.Equal(t, strings.Repeat("é", 100)+"...", c.Body)

	inv := ClubInviteDraft(models.ClubInviteCreatedEvent{ClubID: "c", InviterUID: "x", InviteeUID: "bob"}, "", anon)
	assert.Equal(t, "Someone invited you to join a club", inv.Title)
}
