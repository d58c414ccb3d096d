package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"gorm.io/gorm"
)

// ClubRepository defines the interface for the club lookups notifications need
type ClubRepository interface {
	GetClubName(ctx context.Context, clubID string) (string, error)
	// ListAdminUIDs returns owners and admins of the club.
	ListAdminUIDs(ctx context.Context, clubID string) ([]string, error)
}

// PostgresClubRepository implements ClubRepository for PostgreSQL
type PostgresClubRepository struct {
	db *gorm.DB
}

// NewPostgresClubRepository creates a new PostgresClubRepository
func NewPostgresClubRepository(db *gorm.DB) *PostgresClubRepository {
	return &PostgresClubRepository{db: db}
}

// GetClubName retrieves a club's display name
func (r *PostgresClubRepository) GetClubName(ctx context.Context, clubID string) (string, error) {
	var club models.Club
	if err := r.db.WithContext(ctx).Select("id", "name").First(&club, "id = ?", clubID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return club.Name, nil
}

// ListAdminUIDs retrieves the UIDs allowed to act on join requests
func (r *PostgresClubRepository) ListAdminUIDs(ctx context.Context, clubID string) ([]string, error) {
	var uids []string
	err := r.db.WithContext(ctx).
		Model(&models.ClubMember{}).
		Where("club_id = ? AND role IN ?", clubID, []string{models.ClubRoleOwner, models.ClubRoleAdmin}).
		Distinct().
		Pluck("uid", &uids).Error
	if err != nil {
		return nil, err
	}
	return uids, nil
}
