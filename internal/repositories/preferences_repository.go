package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PreferencesRepository defines the interface for per-user push settings
type PreferencesRepository interface {
	Get(ctx context.Context, uid string) (*models.Preferences, error)
	Save(ctx context.Context, prefs *models.Preferences) error
}

const preferencesCollectionName = "push_preferences"

// MongoPreferencesRepository implements PreferencesRepository for MongoDB
type MongoPreferencesRepository struct {
	collection *mongo.Collection
}

// NewMongoPreferencesRepository creates a new MongoPreferencesRepository
func NewMongoPreferencesRepository(db *mongo.Database) *MongoPreferencesRepository {
	return &MongoPreferencesRepository{collection: db.Collection(preferencesCollectionName)}
}

// Get returns the stored settings or ErrNotFound
func (r *MongoPreferencesRepository) Get(ctx context.Context, uid string) (*models.Preferences, error) {
	var prefs models.Preferences
	if err := r.collection.FindOne(ctx, bson.M{"_id": uid}).Decode(&prefs); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prefs, nil
}

// Save replaces the user's settings
func (r *MongoPreferencesRepository) Save(ctx context.Context, prefs *models.Preferences) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": prefs.UID}, prefs, options.Replace().SetUpsert(true))
	return err
}
