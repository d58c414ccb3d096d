// Package triggers maps domain events to notification drafts.
package triggers

import (
	"fmt"
	"unicode/utf8"

	"github.com/anonto42/campus-pulse/backend/internal/models"
)

// Deeplink screens understood by the mobile client
const (
	ScreenProfile              = "profile"
	ScreenPost                 = "post"
	ScreenClub                 = "club"
	ScreenClubRequests         = "clubRequests"
	ScreenNotificationSettings = "notificationSettings"
)

const maxPreviewRunes = 100

// FallbackActorName is shown when the actor has no readable profile
const FallbackActorName = "Someone"

// Key builders. The shapes are persisted, so changing one splits existing threads.

func FollowKey(toUID, followerUID string) string {
	return fmt.Sprintf("follow:%s:%s", toUID, followerUID)
}

func ClubInviteKey(inviteeUID, clubID, inviterUID string) string {
	return fmt.Sprintf("club_invite:%s:%s:%s", inviteeUID, clubID, inviterUID)
}

func JoinRequestKey(adminUID, clubID, requesterUID string) string {
	return fmt.Sprintf("club_join_request:%s:%s:%s", adminUID, clubID, requesterUID)
}

func PostLikeKey(ownerUID, postID string) string {
	return fmt.Sprintf("post_like:%s:%s", ownerUID, postID)
}

func CommentLikeKey(authorUID, commentID string) string {
	return fmt.Sprintf("comment_like:%s:%s", authorUID, commentID)
}

func ReplyLikeKey(authorUID, replyID string) string {
	return fmt.Sprintf("reply_like:%s:%s", authorUID, replyID)
}

func PostCommentKey(ownerUID, postID, commenterUID string) string {
	return fmt.Sprintf("post_comment:%s:%s:%s", ownerUID, postID, commenterUID)
}

func CommentReplyKey(parentAuthorUID, commentID, replierUID string) string {
	return fmt.Sprintf("comment_reply:%s:%s:%s", parentAuthorUID, commentID, replierUID)
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= maxPreviewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxPreviewRunes]) + "..."
}

func actorName(actor models.UserProfile) string {
	if actor.DisplayName == "" {
		return FallbackActorName
	}
	return actor.DisplayName
}

func base(toUID string, t models.NotificationType, actor models.UserProfile, title string) *models.Notification {
	return &models.Notification{
		ToUID:         toUID,
		Type:          t,
		Title:         title,
		ActorUID:      actor.UID,
		ActorName:     actorName(actor),
		ActorPhotoURL: actor.PhotoURL,
		Push:          models.PushState{Send: true},
	}
}

func postParams(postID, campusID string) map[string]string {
	params := map[string]string{"postId": postID}
	if campusID != "" {
		params["campusId"] = campusID
	}
	return params
}

// Every draft builder returns nil when the actor is the recipient.

func PostLikeDraft(ev models.PostLikedEvent, ownerUID string, actor models.UserProfile) *models.Notification {
	if ownerUID == "" || ownerUID == ev.LikerUID {
		return nil
	}
	n := base(ownerUID, models.TypePostLike, actor, actorName(actor)+" liked your post")
	n.PostID = ev.PostID
	n.CampusID = ev.CampusID
	n.Deeplink = models.Deeplink{Screen: ScreenPost, Params: postParams(ev.PostID, ev.CampusID)}
	n.GroupKey = PostLikeKey(ownerUID, ev.PostID)
	return n
}

func CommentLikeDraft(ev models.CommentLikedEvent, authorUID string, actor models.UserProfile) *models.Notification {
	if authorUID == "" || authorUID == ev.LikerUID {
		return nil
	}
	n := base(authorUID, models.TypeCommentLike, actor, actorName(actor)+" liked your comment")
	n.PostID = ev.PostID
	n.CommentID = ev.CommentID
	n.Deeplink = models.Deeplink{Screen: ScreenPost, Params: map[string]string{
		"postId":    ev.PostID,
		"commentId": ev.CommentID,
	}}
	n.GroupKey = CommentLikeKey(authorUID, ev.CommentID)
	return n
}

func ReplyLikeDraft(ev models.ReplyLikedEvent, authorUID string, actor models.UserProfile) *models.Notification {
	if authorUID == "" || authorUID == ev.LikerUID {
		return nil
	}
	n := base(authorUID, models.TypeCommentLike, actor, actorName(actor)+" liked your reply")
	n.PostID = ev.PostID
	n.CommentID = ev.CommentID
	n.ReplyID = ev.ReplyID
	n.Deeplink = models.Deeplink{Screen: ScreenPost, Params: map[string]string{
		"postId":    ev.PostID,
		"commentId": ev.CommentID,
		"replyId":   ev.ReplyID,
	}}
	n.GroupKey = ReplyLikeKey(authorUID, ev.ReplyID)
	return n
}

func CommentDraft(ev models.CommentCreatedEvent, ownerUID string, actor models.UserProfile) *models.Notification {
	if ownerUID == "" || ownerUID == ev.AuthorUID {
		return nil
	}
	n := base(ownerUID, models.TypePostComment, actor, actorName(actor)+" commented on your post")
	n.Body = preview(ev.Text)
	n.PostID = ev.PostID
	n.CommentID = ev.CommentID
	n.CampusID = ev.CampusID
	n.Deeplink = models.Deeplink{Screen: ScreenPost, Params: postParams(ev.PostID, ev.CampusID)}
	n.DedupeKey = PostCommentKey(ownerUID, ev.PostID, ev.AuthorUID)
	return n
}

func ReplyDraft(ev models.ReplyCreatedEvent, parentAuthorUID string, actor models.UserProfile) *models.Notification {
	if parentAuthorUID == "" || parentAuthorUID == ev.AuthorUID {
		return nil
	}
	n := base(parentAuthorUID, models.TypeCommentReply, actor, actorName(actor)+" replied to your comment")
	n.Body = preview(ev.Text)
	n.PostID = ev.PostID
	n.CommentID = ev.CommentID
	n.ReplyID = ev.ReplyID
	n.Deeplink = models.Deeplink{Screen: ScreenPost, Params: map[string]string{
		"postId":    ev.PostID,
		"commentId": ev.CommentID,
		"replyId":   ev.ReplyID,
	}}
	n.DedupeKey = CommentReplyKey(parentAuthorUID, ev.CommentID, ev.AuthorUID)
	return n
}

func FollowDraft(ev models.FollowCreatedEvent, actor models.UserProfile) *models.Notification {
	if ev.FolloweeUID == ev.FollowerUID {
		return nil
	}
	n := base(ev.FolloweeUID, models.TypeFollow, actor, actorName(actor)+" started following you")
	n.Deeplink = models.Deeplink{Screen: ScreenProfile, Params: map[string]string{"uid": ev.FollowerUID}}
	n.DedupeKey = FollowKey(ev.FolloweeUID, ev.FollowerUID)
	return n
}

func ClubInviteDraft(ev models.ClubInviteCreatedEvent, clubName string, actor models.UserProfile) *models.Notification {
	if ev.InviteeUID == ev.InviterUID {
		return nil
	}
	n := base(ev.InviteeUID, models.TypeClubInvite, actor, fmt.Sprintf("%s invited you to join %s", actorName(actor), clubLabel(clubName, "a club")))
	n.ClubID = ev.ClubID
	n.Deeplink = models.Deeplink{Screen: ScreenClub, Params: map[string]string{"clubId": ev.ClubID}}
	n.DedupeKey = ClubInviteKey(ev.InviteeUID, ev.ClubID, ev.InviterUID)
	return n
}

// JoinRequestDrafts fans one request out to every admin except the requester
func JoinRequestDrafts(ev models.JoinRequestCreatedEvent, adminUIDs []string, clubName string, actor models.UserProfile) []*models.Notification {
	drafts := make([]*models.Notification, 0, len(adminUIDs))
	for _, admin := range adminUIDs {
		if admin == "" || admin == ev.RequesterUID {
			continue
		}
		n := base(admin, models.TypeClubJoinRequest, actor, fmt.Sprintf("%s requested to join %s", actorName(actor), clubLabel(clubName, "your club")))
		n.ClubID = ev.ClubID
		n.Deeplink = models.Deeplink{Screen: ScreenClubRequests, Params: map[string]string{"clubId": ev.ClubID}}
		n.DedupeKey = JoinRequestKey(admin, ev.ClubID, ev.RequesterUID)
		drafts = append(drafts, n)
	}
	return drafts
}

func clubLabel(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
