package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeviceRepository defines the interface for the per-user token registry
type DeviceRepository interface {
	// Upsert registers or refreshes a token. A token seen under another user is moved to this one.
	Upsert(ctx context.Context, device *models.Device) error
	ListByUser(ctx context.Context, uid string) ([]models.Device, error)
	// ListActiveTokens returns the user's enabled tokens with duplicates removed.
	ListActiveTokens(ctx context.Context, uid string) ([]string, error)
	DeleteByToken(ctx context.Context, uid, token string) (int64, error)
}

const deviceCollectionName = "devices"

// MongoDeviceRepository implements DeviceRepository for MongoDB
type MongoDeviceRepository struct {
	collection *mongo.Collection
}

// NewMongoDeviceRepository creates a new MongoDeviceRepository
func NewMongoDeviceRepository(db *mongo.Database) *MongoDeviceRepository {
	return &MongoDeviceRepository{collection: db.Collection(deviceCollectionName)}
}

// EnsureIndexes creates the token and owner indexes
func (r *MongoDeviceRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "fcmToken", Value: 1}}, Options: options.Index().SetName("uniq_token").SetUnique(true)},
		{Keys: bson.D{{Key: "uid", Value: 1}, {Key: "disabled", Value: 1}}, Options: options.Index().SetName("owner_active")},
	})
	if err != nil {
		return fmt.Errorf("create device indexes: %w", err)
	}
	return nil
}

// Upsert registers a device keyed by its token
func (r *MongoDeviceRepository) Upsert(ctx context.Context, device *models.Device) error {
	if device.ID == "" {
		device.ID = primitive.NewObjectID().Hex()
	}
	filter := bson.M{"fcmToken": device.FCMToken}
	update := bson.M{
		"$set": bson.M{
			"uid":        device.UID,
			"deviceName": device.DeviceName,
			"platform":   device.Platform,
			"lastSeenAt": device.LastSeenAt,
			"disabled":   device.Disabled,
		},
		"$setOnInsert": bson.M{"_id": device.ID},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ListByUser returns every device registered to the user
func (r *MongoDeviceRepository) ListByUser(ctx context.Context, uid string) ([]models.Device, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"uid": uid}, options.Find().SetSort(bson.D{{Key: "lastSeenAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	devices := []models.Device{}
	if err = cursor.All(ctx, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// ListActiveTokens returns distinct non-disabled tokens, most recently seen first
func (r *MongoDeviceRepository) ListActiveTokens(ctx context.Context, uid string) ([]string, error) {
	filter := bson.M{"uid": uid, "disabled": bson.M{"$ne": true}, "fcmToken": bson.M{"$nin": bson.A{"", nil}}}
	opts := options.Find().
		SetSort(bson.D{{Key: "lastSeenAt", Value: -1}}).
		SetProjection(bson.M{"fcmToken": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var devices []models.Device
	if err = cursor.All(ctx, &devices); err != nil {
		return nil, err
	}
	return uniqueTokens(devices), nil
}

// DeleteByToken removes the user's device records carrying token
func (r *MongoDeviceRepository) DeleteByToken(ctx context.Context, uid, token string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"uid": uid, "fcmToken": token})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func uniqueTokens(devices []models.Device) []string {
	seen := make(map[string]struct{}, len(devices))
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		if d.FCMToken == "" || d.Disabled {
			continue
		}
		if _, ok := seen[d.FCMToken]; ok {
			continue
		}
		seen[d.FCMToken] = struct{}{}
		tokens = append(tokens, d.FCMToken)
	}
	return tokens
}
