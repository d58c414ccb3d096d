package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AppConfigRepository reads the shared app-wide config document
type AppConfigRepository interface {
	GetNotificationIconURL(ctx context.Context) (string, error)
}

const (
	configCollectionName = "config"
	appConfigDocID       = "app"
)

// MongoAppConfigRepository implements AppConfigRepository for MongoDB
type MongoAppConfigRepository struct {
	collection *mongo.Collection
}

// NewMongoAppConfigRepository creates a new MongoAppConfigRepository
func NewMongoAppConfigRepository(db *mongo.Database) *MongoAppConfigRepository {
	return &MongoAppConfigRepository{collection: db.Collection(configCollectionName)}
}

// GetNotificationIconURL returns the configured default icon, or ErrNotFound when unset
func (r *MongoAppConfigRepository) GetNotificationIconURL(ctx context.Context) (string, error) {
	var doc struct {
		NotificationIconURL string `bson:"notificationIconUrl"`
	}
	opts := options.FindOne().SetProjection(bson.M{"notificationIconUrl": 1})
	if err := r.collection.FindOne(ctx, bson.M{"_id": appConfigDocID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", err
	}
	if doc.NotificationIconURL == "" {
		return "", ErrNotFound
	}
	return doc.NotificationIconURL, nil
}
