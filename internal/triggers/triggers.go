package triggers

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/campus-pulse/backend/internal/events"
	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/anonto42/campus-pulse/backend/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Notifier stores a draft and runs the synchronous dispatch
type Notifier interface {
	Notify(ctx context.Context, draft *models.Notification) (*services.NotifyResult, error)
}

// Triggers resolves recipients for each event kind and hands drafts to the notifier
type Triggers struct {
	notifier Notifier
	users    repositories.UserRepository
	content  repositories.ContentRepository
	clubs    repositories.ClubRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func New(
	notifier Notifier,
	users repositories.UserRepository,
	content repositories.ContentRepository,
	clubs repositories.ClubRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *Triggers {
	if validate == nil {
		validate = validator.New()
	}
	return &Triggers{
		notifier: notifier,
		users:    users,
		content:  content,
		clubs:    clubs,
		validate: validate,
		logger:   logger,
	}
}

// Register attaches one consumer per event kind to the bus
func (t *Triggers) Register(bus *events.Bus) {
	bus.Handle(models.EventPostLiked, handle(t, t.PostLiked))
	bus.Handle(models.EventCommentLiked, handle(t, t.CommentLiked))
	bus.Handle(models.EventReplyLiked, handle(t, t.ReplyLiked))
	bus.Handle(models.EventCommentCreated, handle(t, t.CommentCreated))
	bus.Handle(models.EventReplyCreated, handle(t, t.ReplyCreated))
	bus.Handle(models.EventFollowCreated, handle(t, t.FollowCreated))
	bus.Handle(models.EventClubInviteCreated, handle(t, t.ClubInviteCreated))
	bus.Handle(models.EventJoinRequestCreated, handle(t, t.JoinRequestCreated))
}

// handle decodes and validates a payload. Malformed events are dropped, not retried.
func handle[E any](t *Triggers, fn func(context.Context, E) error) events.HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		var ev E
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.logger.Warn("dropping undecodable event", zap.Error(err), zap.ByteString("payload", payload))
			return nil
		}
		if err := t.validate.Struct(ev); err != nil {
			t.logger.Warn("dropping event with missing fields", zap.Error(err), zap.String("event", fmt.Sprintf("%T", ev)))
			return nil
		}
		err := fn(ctx, ev)
		if errors.Is(err, services.ErrInvalidEvent) {
			t.logger.Warn("dropping unresolvable event", zap.Error(err))
			return nil
		}
		return err
	}
}

func (t *Triggers) actor(ctx context.Context, uid string) models.UserProfile {
	profile, err := t.users.GetProfile(ctx, uid)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			t.logger.Warn("actor profile lookup failed", zap.String("uid", uid), zap.Error(err))
		}
		return models.UserProfile{UID: uid, DisplayName: FallbackActorName}
	}
	profile.UID = uid
	return *profile
}

func (t *Triggers) notify(ctx context.Context, drafts ...*models.Notification) error {
	var errs []error
	for _, draft := range drafts {
		if draft == nil {
			continue
		}
		res, err := t.notifier.Notify(ctx, draft)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res != nil {
			t.logger.Debug("notification upserted",
				zap.String("notification_id", res.ID),
				zap.String("to_uid", draft.ToUID),
				zap.String("type", string(draft.Type)),
				zap.Bool("merged", res.WasMerged))
		}
	}
	return errors.Join(errs...)
}

// resolveOwner returns known when set, otherwise looks the uid up. ErrNotFound becomes ErrInvalidEvent.
func resolveOwner(ctx context.Context, known string, lookup func(context.Context) (string, error)) (string, error) {
	if known != "" {
		return known, nil
	}
	uid, err := lookup(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", fmt.Errorf("%w: %v", services.ErrInvalidEvent, err)
	}
	return uid, err
}

func (t *Triggers) PostLiked(ctx context.Context, ev models.PostLikedEvent) error {
	owner, err := resolveOwner(ctx, ev.OwnerUID, func(ctx context.Context) (string, error) {
		post, err := t.content.GetPost(ctx, ev.PostID)
		if err != nil {
			return "", err
		}
		if ev.CampusID == "" {
			ev.CampusID = post.CampusID
		}
		return post.AuthorUID, nil
	})
	if err != nil {
		return err
	}
	if owner == ev.LikerUID {
		return nil
	}
	return t.notify(ctx, PostLikeDraft(ev, owner, t.actor(ctx, ev.LikerUID)))
}

func (t *Triggers) CommentLiked(ctx context.Context, ev models.CommentLikedEvent) error {
	author, err := resolveOwner(ctx, ev.AuthorUID, func(ctx context.Context) (string, error) {
		comment, err := t.content.GetComment(ctx, ev.CommentID)
		if err != nil {
			return "", err
		}
		return comment.AuthorUID, nil
	})
	if err != nil {
		return err
	}
	if author == ev.LikerUID {
		return nil
	}
	return t.notify(ctx, CommentLikeDraft(ev, author, t.actor(ctx, ev.LikerUID)))
}

func (t *Triggers) ReplyLiked(ctx context.Context, ev models.ReplyLikedEvent) error {
	author, err := resolveOwner(ctx, ev.AuthorUID, func(ctx context.Context) (string, error) {
		reply, err := t.content.GetReply(ctx, ev.ReplyID)
		if err != nil {
			return "", err
		}
		return reply.AuthorUID, nil
	})
	if err != nil {
		return err
	}
	if author == ev.LikerUID {
		return nil
	}
	return t.notify(ctx, ReplyLikeDraft(ev, author, t.actor(ctx, ev.LikerUID)))
}

func (t *Triggers) CommentCreated(ctx context.Context, ev models.CommentCreatedEvent) error {
	owner, err := resolveOwner(ctx, ev.PostOwnerUID, func(ctx context.Context) (string, error) {
		post, err := t.content.GetPost(ctx, ev.PostID)
		if err != nil {
			return "", err
		}
		if ev.CampusID == "" {
			ev.CampusID = post.CampusID
		}
		return post.AuthorUID, nil
	})
	if err != nil {
		return err
	}
	if owner == ev.AuthorUID {
		return nil
	}
	return t.notify(ctx, CommentDraft(ev, owner, t.actor(ctx, ev.AuthorUID)))
}

func (t *Triggers) ReplyCreated(ctx context.Context, ev models.ReplyCreatedEvent) error {
	parent, err := resolveOwner(ctx, ev.ParentAuthorUID, func(ctx context.Context) (string, error) {
		comment, err := t.content.GetComment(ctx, ev.CommentID)
		if err != nil {
			return "", err
		}
		return comment.AuthorUID, nil
	})
	if err != nil {
		return err
	}
	if parent == ev.AuthorUID {
		return nil
	}
	return t.notify(ctx, ReplyDraft(ev, parent, t.actor(ctx, ev.AuthorUID)))
}

func (t *Triggers) FollowCreated(ctx context.Context, ev models.FollowCreatedEvent) error {
	if ev.FollowerUID == ev.FolloweeUID {
		return nil
	}
	return t.notify(ctx, FollowDraft(ev, t.actor(ctx, ev.FollowerUID)))
}

func (t *Triggers) clubName(ctx context.Context, clubID, known string) string {
	if known != "" {
		return known
	}
	name, err := t.clubs.GetClubName(ctx, clubID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			t.logger.Warn("club name lookup failed", zap.String("club_id", clubID), zap.Error(err))
		}
		return ""
	}
	return name
}

func (t *Triggers) ClubInviteCreated(ctx context.Context, ev models.ClubInviteCreatedEvent) error {
	if ev.InviterUID == ev.InviteeUID {
		return nil
	}
	name := t.clubName(ctx, ev.ClubID, ev.ClubName)
	return t.notify(ctx, ClubInviteDraft(ev, name, t.actor(ctx, ev.InviterUID)))
}

func (t *Triggers) JoinRequestCreated(ctx context.Context, ev models.JoinRequestCreatedEvent) error {
	admins, err := t.clubs.ListAdminUIDs(ctx, ev.ClubID)
	if err != nil {
		return fmt.Errorf("list club admins: %w", err)
	}
	if len(admins) == 0 {
		t.logger.Warn("join request for club without admins", zap.String("club_id", ev.ClubID))
		return nil
	}
	name := t.clubName(ctx, ev.ClubID, ev.ClubName)
	return t.notify(ctx, JoinRequestDrafts(ev, admins, name, t.actor(ctx, ev.RequesterUID))...)
}
