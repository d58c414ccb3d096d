package memory

import (
	"context"
	"sync"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
)

var (
	_ repositories.AppConfigRepository = (*AppConfigRepository)(nil)
	_ repositories.ContentRepository   = (*ContentRepository)(nil)
	_ repositories.UserRepository      = (*UserRepository)(nil)
	_ repositories.ClubRepository      = (*ClubRepository)(nil)
)

// AppConfigRepository serves a fixed icon URL. Calls counts reads so cache behaviour can be checked.
type AppConfigRepository struct {
	mu      sync.Mutex
	IconURL string
	Err     error
	Calls   int
}

func (r *AppConfigRepository) GetNotificationIconURL(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls++
	if r.Err != nil {
		return "", r.Err
	}
	if r.IconURL == "" {
		return "", repositories.ErrNotFound
	}
	return r.IconURL, nil
}

// ContentRepository holds post, comment and reply authorship
type ContentRepository struct {
	mu       sync.RWMutex
	posts    map[string]models.PostRef
	comments map[string]models.CommentRef
	replies  map[string]models.ReplyRef
}

func NewContentRepository() *ContentRepository {
	return &ContentRepository{
		posts:    make(map[string]models.PostRef),
		comments: make(map[string]models.CommentRef),
		replies:  make(map[string]models.ReplyRef),
	}
}

func (r *ContentRepository) AddPost(p models.PostRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = p
}

func (r *ContentRepository) AddComment(c models.CommentRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments[c.ID] = c
}

func (r *ContentRepository) AddReply(rep models.ReplyRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies[rep.ID] = rep
}

func (r *ContentRepository) GetPost(_ context.Context, postID string) (*models.PostRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[postID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r *ContentRepository) GetComment(_ context.Context, commentID string) (*models.CommentRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.comments[commentID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *ContentRepository) GetReply(_ context.Context, replyID string) (*models.ReplyRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.replies[replyID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &rep, nil
}

// UserRepository holds user rows keyed by firebase uid
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository(users ...models.User) *UserRepository {
	r := &UserRepository{users: make(map[string]models.User)}
	for _, u := range users {
		r.users[u.FirebaseUID] = u
	}
	return r
}

func (r *UserRepository) Add(u models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.FirebaseUID] = u
}

func (r *UserRepository) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	u, err := r.GetUserByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	profile := u.ToProfile()
	return &profile, nil
}

// ClubRepository holds clubs and their members
type ClubRepository struct {
	mu      sync.RWMutex
	clubs   map[string]models.Club
	members []models.ClubMember
}

func NewClubRepository() *ClubRepository {
	return &ClubRepository{clubs: make(map[string]models.Club)}
}

func (r *ClubRepository) AddClub(c models.Club, members ...models.ClubMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clubs[c.ID] = c
	r.members = append(r.members, members...)
}

func (r *ClubRepository) GetClubName(_ context.Context, clubID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clubs[clubID]
	if !ok {
		return "", repositories.ErrNotFound
	}
	return c.Name, nil
}

func (r *ClubRepository) ListAdminUIDs(_ context.Context, clubID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var uids []string
	for _, m := range r.members {
		if m.ClubID != clubID || seen[m.UID] {
			continue
		}
		if m.Role == models.ClubRoleOwner || m.Role == models.ClubRoleAdmin {
			seen[m.UID] = true
			uids = append(uids, m.UID)
		}
	}
	return uids, nil
}
