package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a record does not exist or is not visible to the caller
var ErrNotFound = errors.New("record not found")

// NotificationRepository defines the interface for notification store operations
type NotificationRepository interface {
	// Insert stores n without any key matching.
	Insert(ctx context.Context, n *models.Notification) error
	// UpsertGrouped atomically merges n into the open record for (toUid, groupKey) or creates n.
	// The bool is true when an existing record was merged.
	UpsertGrouped(ctx context.Context, n *models.Notification) (*models.Notification, bool, error)
	// InsertIfAbsent atomically returns the open record for (toUid, dedupeKey) untouched, or creates n.
	// The bool is true when an existing record was found.
	InsertIfAbsent(ctx context.Context, n *models.Notification) (*models.Notification, bool, error)
	// RearmPush flips a terminal record back to pending if its last push is at or before lastPushBefore.
	RearmPush(ctx context.Context, id string, lastPushBefore, now time.Time) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	// ClaimDispatch leases a pending record for one dispatch. Returns nil when it is not claimable.
	ClaimDispatch(ctx context.Context, id string, now time.Time, lease time.Duration) (*models.Notification, error)
	// ClaimStalePending leases up to limit pending records created at or before createdBefore.
	ClaimStalePending(ctx context.Context, createdBefore, now time.Time, lease time.Duration, limit int) ([]*models.Notification, error)
	// CompletePush writes the terminal outcome of a pending cycle and releases the lease.
	CompletePush(ctx context.Context, id string, result models.PushResult, now time.Time) (bool, error)
	ListByRecipient(ctx context.Context, uid string, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, uid string) (int64, error)
	MarkAsRead(ctx context.Context, uid, id string) error
	MarkAllAsRead(ctx context.Context, uid string) error
	Archive(ctx context.Context, uid, id string) error
}

// PendingWatcher reports the ids of notifications written in the pending state.
// WatchPending blocks until ctx ends or the stream fails.
type PendingWatcher interface {
	WatchPending(ctx context.Context, onPending func(ctx context.Context, id string)) error
}

const notificationCollectionName = "notifications"

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection(notificationCollectionName)}
}

// EnsureIndexes creates the unique partial indexes that make keyed upserts atomic
func (r *MongoNotificationRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "toUid", Value: 1}, {Key: "groupKey", Value: 1}},
			Options: options.Index().
				SetName("uniq_open_group_key").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isRead": false, "isArchived": false, "groupKey": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "toUid", Value: 1}, {Key: "dedupeKey", Value: 1}},
			Options: options.Index().
				SetName("uniq_open_dedupe_key").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isRead": false, "isArchived": false, "dedupeKey": bson.M{"$exists": true}}),
		},
		{
			Keys:    bson.D{{Key: "push.status", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("push_status_created"),
		},
		{
			Keys:    bson.D{{Key: "toUid", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("recipient_created"),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}
	return nil
}

func openKeyFilter(uid, field, key string) bson.M {
	return bson.M{"toUid": uid, field: key, "isRead": false, "isArchived": false}
}

func leaseFree(now time.Time) bson.A {
	return bson.A{
		bson.M{"push.leaseUntil": bson.M{"$exists": false}},
		bson.M{"push.leaseUntil": bson.M{"$lte": now}},
	}
}

// insertDoc renders n as a document minus the fields owned by the filter or by other operators
func insertDoc(n *models.Notification, omit ...string) (bson.M, error) {
	raw, err := bson.Marshal(n)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for _, key := range omit {
		delete(doc, key)
	}
	return doc, nil
}

func (r *MongoNotificationRepository) upsert(ctx context.Context, filter, update bson.M, newID string) (*models.Notification, bool, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	for attempt := 0; ; attempt++ {
		var stored models.Notification
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
		if err == nil {
			return &stored, stored.ID != newID, nil
		}
		// Two concurrent upserts can both miss and race on the unique index; the loser retries and matches.
		if mongo.IsDuplicateKeyError(err) && attempt == 0 {
			continue
		}
		return nil, false, err
	}
}

// Insert stores a notification that carries no identity key
func (r *MongoNotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	_, err := r.collection.InsertOne(ctx, n)
	return err
}

// UpsertGrouped merges into the open thread for (toUid, groupKey) or creates it
func (r *MongoNotificationRepository) UpsertGrouped(ctx context.Context, n *models.Notification) (*models.Notification, bool, error) {
	doc, err := insertDoc(n,
		"toUid", "groupKey", "isRead", "isArchived",
		"title", "actorUid", "actorName", "actorPhotoURL", "updatedAt",
		"groupCount", "version",
	)
	if err != nil {
		return nil, false, err
	}
	update := bson.M{
		"$setOnInsert": doc,
		"$set": bson.M{
			"title":         n.Title,
			"actorUid":      n.ActorUID,
			"actorName":     n.ActorName,
			"actorPhotoURL": n.ActorPhotoURL,
			"updatedAt":     n.UpdatedAt,
		},
		"$inc": bson.M{"groupCount": 1, "version": 1},
	}
	return r.upsert(ctx, openKeyFilter(n.ToUID, "groupKey", n.GroupKey), update, n.ID)
}

// InsertIfAbsent returns the open record for (toUid, dedupeKey) or creates n
func (r *MongoNotificationRepository) InsertIfAbsent(ctx context.Context, n *models.Notification) (*models.Notification, bool, error) {
	doc, err := insertDoc(n, "toUid", "dedupeKey", "isRead", "isArchived")
	if err != nil {
		return nil, false, err
	}
	update := bson.M{"$setOnInsert": doc}
	return r.upsert(ctx, openKeyFilter(n.ToUID, "dedupeKey", n.DedupeKey), update, n.ID)
}

// RearmPush starts a new send cycle on a grouped thread whose last push is old enough
func (r *MongoNotificationRepository) RearmPush(ctx context.Context, id string, lastPushBefore, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":         id,
		"push.status": bson.M{"$ne": models.PushPending},
		"$or": bson.A{
			bson.M{"lastPushAt": bson.M{"$exists": false}},
			bson.M{"lastPushAt": bson.M{"$lte": lastPushBefore}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"push.send":   true,
			"push.status": models.PushPending,
			"updatedAt":   now,
		},
		"$unset": bson.M{"push.error": "", "push.leaseUntil": ""},
		"$inc":   bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// GetByID retrieves a notification by ID
func (r *MongoNotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ClaimDispatch leases a pending record for the synchronous dispatch path
func (r *MongoNotificationRepository) ClaimDispatch(ctx context.Context, id string, now time.Time, lease time.Duration) (*models.Notification, error) {
	filter := bson.M{
		"_id":         id,
		"push.send":   true,
		"push.status": models.PushPending,
		"$or":         leaseFree(now),
	}
	update := bson.M{"$set": bson.M{"push.leaseUntil": now.Add(lease)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n models.Notification
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// ClaimStalePending leases pending records that have outlived the grace window, oldest first
func (r *MongoNotificationRepository) ClaimStalePending(ctx context.Context, createdBefore, now time.Time, lease time.Duration, limit int) ([]*models.Notification, error) {
	filter := bson.M{
		"push.send":   true,
		"push.status": models.PushPending,
		"createdAt":   bson.M{"$lte": createdBefore},
		"$or":         leaseFree(now),
	}
	update := bson.M{"$set": bson.M{"push.leaseUntil": now.Add(lease)}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	var claimed []*models.Notification
	for len(claimed) < limit {
		var n models.Notification
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, &n)
	}
	return claimed, nil
}

// CompletePush persists the terminal delivery result of the current pending cycle
func (r *MongoNotificationRepository) CompletePush(ctx context.Context, id string, result models.PushResult, now time.Time) (bool, error) {
	set := bson.M{
		"push.status":     result.Status,
		"push.sentCount":  result.SentCount,
		"push.failCount":  result.FailCount,
		"push.tokenCount": result.TokenCount,
		"push.durationMs": result.DurationMs,
		"lastPushAt":      now,
		"updatedAt":       now,
	}
	unset := bson.M{"push.leaseUntil": ""}
	if result.Error != "" {
		set["push.error"] = result.Error
	} else {
		unset["push.error"] = ""
	}
	if result.Status == models.PushSent {
		set["push.sentAt"] = now
	}

	filter := bson.M{"_id": id, "push.status": models.PushPending}
	update := bson.M{"$set": set, "$unset": unset, "$inc": bson.M{"version": 1}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// WatchPending follows the collection change stream. Change streams need a replica set.
func (r *MongoNotificationRepository) WatchPending(ctx context.Context, onPending func(ctx context.Context, id string)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":            bson.M{"$in": bson.A{"insert", "update", "replace"}},
			"fullDocument.push.send":   true,
			"fullDocument.push.status": models.PushPending,
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("watch notifications: %w", err)
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var event struct {
			DocumentKey struct {
				ID string `bson:"_id"`
			} `bson:"documentKey"`
		}
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("decode change event: %w", err)
		}
		onPending(ctx, event.DocumentKey.ID)
	}
	if ctx.Err() != nil {
		return nil
	}
	return stream.Err()
}

// ListByRecipient returns a page of the user's unarchived notifications, newest first
func (r *MongoNotificationRepository) ListByRecipient(ctx context.Context, uid string, page, limit int) ([]models.Notification, int64, error) {
	filter := bson.M{"toUid": uid, "isArchived": false}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// GetUnreadCount returns the number of open notifications for a user
func (r *MongoNotificationRepository) GetUnreadCount(ctx context.Context, uid string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"toUid": uid, "isRead": false, "isArchived": false})
}

func (r *MongoNotificationRepository) setFlag(ctx context.Context, uid, id, field string) error {
	filter := bson.M{"_id": id, "toUid": uid}
	update := bson.M{
		"$set": bson.M{field: true, "updatedAt": time.Now()},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAsRead marks one of the user's notifications as read
func (r *MongoNotificationRepository) MarkAsRead(ctx context.Context, uid, id string) error {
	return r.setFlag(ctx, uid, id, "isRead")
}

// MarkAllAsRead marks every unread notification of the user as read
func (r *MongoNotificationRepository) MarkAllAsRead(ctx context.Context, uid string) error {
	filter := bson.M{"toUid": uid, "isRead": false}
	update := bson.M{
		"$set": bson.M{"isRead": true, "updatedAt": time.Now()},
		"$inc": bson.M{"version": 1},
	}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// Archive hides one of the user's notifications
func (r *MongoNotificationRepository) Archive(ctx context.Context, uid, id string) error {
	return r.setFlag(ctx, uid, id, "isArchived")
}
