package models

import "time"

// NotificationType enumerates what a notification is about
type NotificationType string

const (
	TypeFollow          NotificationType = "follow"
	TypeClubInvite      NotificationType = "club_invite"
	TypeClubJoinRequest NotificationType = "club_join_request"
	TypePostLike        NotificationType = "post_like"
	TypeCommentLike     NotificationType = "comment_like"
	TypeCommentReply    NotificationType = "comment_reply"
	TypePostComment     NotificationType = "post_comment"
	TypeAnnouncement    NotificationType = "announcement"
	TypeSystem          NotificationType = "system"
)

// AllNotificationTypes lists every type a user can toggle in their push settings
var AllNotificationTypes = []NotificationType{
	TypeFollow,
	TypeClubInvite,
	TypeClubJoinRequest,
	TypePostLike,
	TypeCommentLike,
	TypeCommentReply,
	TypePostComment,
	TypeAnnouncement,
	TypeSystem,
}

// Valid reports whether t is a known notification type
func (t NotificationType) Valid() bool {
	for _, known := range AllNotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PushStatus is the delivery state of the current send cycle
type PushStatus string

const (
	PushPending PushStatus = "pending"
	PushSent    PushStatus = "sent"
	PushSkipped PushStatus = "skipped"
	PushFailed  PushStatus = "failed"
)

// Terminal reports whether the status ends a send cycle
func (s PushStatus) Terminal() bool {
	return s == PushSent || s == PushSkipped || s == PushFailed
}

// Deeplink tells the client which screen to open
type Deeplink struct {
	Screen string            `json:"screen" bson:"screen"`
	Params map[string]string `json:"params,omitempty" bson:"params,omitempty"`
}

// PushState is the delivery sub-record of a notification
type PushState struct {
	Send       bool       `json:"send" bson:"send"`
	Status     PushStatus `json:"status" bson:"status"`
	SentAt     *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	Error      string     `json:"error,omitempty" bson:"error,omitempty"`
	DurationMs int64      `json:"durationMs,omitempty" bson:"durationMs,omitempty"`
	TokenCount int        `json:"tokenCount,omitempty" bson:"tokenCount,omitempty"`
	SentCount  int        `json:"sentCount,omitempty" bson:"sentCount,omitempty"`
	FailCount  int        `json:"failCount,omitempty" bson:"failCount,omitempty"`
	LeaseUntil *time.Time `json:"-" bson:"leaseUntil,omitempty"`
}

// Notification is one logical notification thread for a recipient (MongoDB)
type Notification struct {
	ID       string           `json:"id" bson:"_id"`
	ToUID    string           `json:"toUid" bson:"toUid"`
	Type     NotificationType `json:"type" bson:"type"`
	Title    string           `json:"title" bson:"title"`
	Body     string           `json:"body,omitempty" bson:"body,omitempty"`
	ImageURL string           `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`

	// most recent actor when grouped
	ActorUID      string `json:"actorUid,omitempty" bson:"actorUid,omitempty"`
	ActorName     string `json:"actorName,omitempty" bson:"actorName,omitempty"`
	ActorPhotoURL string `json:"actorPhotoURL,omitempty" bson:"actorPhotoURL,omitempty"`

	CampusID  string `json:"campusId,omitempty" bson:"campusId,omitempty"`
	ClubID    string `json:"clubId,omitempty" bson:"clubId,omitempty"`
	PostID    string `json:"postId,omitempty" bson:"postId,omitempty"`
	CommentID string `json:"commentId,omitempty" bson:"commentId,omitempty"`
	ReplyID   string `json:"replyId,omitempty" bson:"replyId,omitempty"`

	Deeplink Deeplink `json:"deeplink" bson:"deeplink"`

	DedupeKey  string     `json:"dedupeKey,omitempty" bson:"dedupeKey,omitempty"`
	GroupKey   string     `json:"groupKey,omitempty" bson:"groupKey,omitempty"`
	GroupCount *int       `json:"groupCount,omitempty" bson:"groupCount,omitempty"`
	LastPushAt *time.Time `json:"lastPushAt,omitempty" bson:"lastPushAt,omitempty"`

	IsRead     bool `json:"isRead" bson:"isRead"`
	IsArchived bool `json:"isArchived" bson:"isArchived"`

	Push PushState `json:"push" bson:"push"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	Version   int64     `json:"version" bson:"version"`
}

// Open reports whether the record still participates in dedupe/group matching
func (n *Notification) Open() bool {
	return !n.IsRead && !n.IsArchived
}

// Clone returns a deep copy so callers can't mutate stored state
func (n *Notification) Clone() *Notification {
	c := *n
	if n.GroupCount != nil {
		v := *n.GroupCount
		c.GroupCount = &v
	}
	if n.LastPushAt != nil {
		v := *n.LastPushAt
		c.LastPushAt = &v
	}
	if n.Push.SentAt != nil {
		v := *n.Push.SentAt
		c.Push.SentAt = &v
	}
	if n.Push.LeaseUntil != nil {
		v := *n.Push.LeaseUntil
		c.Push.LeaseUntil = &v
	}
	if n.Deeplink.Params != nil {
		c.Deeplink.Params = make(map[string]string, len(n.Deeplink.Params))
		for k, v := range n.Deeplink.Params {
			c.Deeplink.Params[k] = v
		}
	}
	return &c
}

// PushResult is the terminal outcome of one dispatch, persisted onto push.*
type PushResult struct {
	Status     PushStatus `json:"status"`
	SentCount  int        `json:"sentCount"`
	FailCount  int        `json:"failCount"`
	TokenCount int        `json:"tokenCount"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"durationMs"`
}

// NotificationPage is a paginated listing for the owning user
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
}
