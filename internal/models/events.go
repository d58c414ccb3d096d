package models

// EventKind names one domain event stream on the bus
type EventKind string

const (
	EventPostLiked          EventKind = "post_liked"
	EventCommentLiked       EventKind = "comment_liked"
	EventReplyLiked         EventKind = "reply_liked"
	EventCommentCreated     EventKind = "comment_created"
	EventReplyCreated       EventKind = "reply_created"
	EventFollowCreated      EventKind = "follow_created"
	EventClubInviteCreated  EventKind = "club_invite_created"
	EventJoinRequestCreated EventKind = "join_request_created"
)

// Topic is the bus topic (and NATS subject) for the kind
func (k EventKind) Topic() string {
	return "social." + string(k)
}

// PostLikedEvent is emitted when a user likes a post
type PostLikedEvent struct {
	PostID   string `json:"postId" validate:"required"`
	LikerUID string `json:"likerUid" validate:"required"`
	OwnerUID string `json:"ownerUid,omitempty"`
	CampusID string `json:"campusId,omitempty"`
}

// CommentLikedEvent is emitted when a user likes a comment
type CommentLikedEvent struct {
	CommentID string `json:"commentId" validate:"required"`
	PostID    string `json:"postId" validate:"required"`
	LikerUID  string `json:"likerUid" validate:"required"`
	AuthorUID string `json:"authorUid,omitempty"`
}

// ReplyLikedEvent is emitted when a user likes a reply
type ReplyLikedEvent struct {
	ReplyID   string `json:"replyId" validate:"required"`
	CommentID string `json:"commentId" validate:"required"`
	PostID    string `json:"postId" validate:"required"`
	LikerUID  string `json:"likerUid" validate:"required"`
	AuthorUID string `json:"authorUid,omitempty"`
}

// CommentCreatedEvent is emitted when a comment is added to a post
type CommentCreatedEvent struct {
	CommentID    string `json:"commentId" validate:"required"`
	PostID       string `json:"postId" validate:"required"`
	AuthorUID    string `json:"authorUid" validate:"required"`
	PostOwnerUID string `json:"postOwnerUid,omitempty"`
	CampusID     string `json:"campusId,omitempty"`
	Text         string `json:"text,omitempty"`
}

// ReplyCreatedEvent is emitted when a reply is added to a comment
type ReplyCreatedEvent struct {
	ReplyID         string `json:"replyId" validate:"required"`
	CommentID       string `json:"commentId" validate:"required"`
	PostID          string `json:"postId" validate:"required"`
	AuthorUID       string `json:"authorUid" validate:"required"`
	ParentAuthorUID string `json:"parentAuthorUid,omitempty"`
	Text            string `json:"text,omitempty"`
}

// FollowCreatedEvent is emitted when one user follows another
type FollowCreatedEvent struct {
	FollowerUID string `json:"followerUid" validate:"required"`
	FolloweeUID string `json:"followeeUid" validate:"required"`
}

// ClubInviteCreatedEvent is emitted when a club member invites someone
type ClubInviteCreatedEvent struct {
	InviteID   string `json:"inviteId" validate:"required"`
	ClubID     string `json:"clubId" validate:"required"`
	ClubName   string `json:"clubName,omitempty"`
	InviterUID string `json:"inviterUid" validate:"required"`
	InviteeUID string `json:"inviteeUid" validate:"required"`
}

// JoinRequestCreatedEvent is emitted when a user asks to join a club
type JoinRequestCreatedEvent struct {
	RequestID    string `json:"requestId" validate:"required"`
	ClubID       string `json:"clubId" validate:"required"`
	ClubName     string `json:"clubName,omitempty"`
	RequesterUID string `json:"requesterUid" validate:"required"`
}
