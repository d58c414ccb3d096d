package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for reading actor profiles
type UserRepository interface {
	GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetUserByFirebaseUID retrieves a user by Firebase UID from PostgreSQL
func (r *PostgresUserRepository) GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetProfile retrieves the display snapshot of a user
func (r *PostgresUserRepository) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	user, err := r.GetUserByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	profile := user.ToProfile()
	return &profile, nil
}
