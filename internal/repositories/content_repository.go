package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/campus-pulse/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ContentRepository resolves who wrote a post, comment or reply
type ContentRepository interface {
	GetPost(ctx context.Context, postID string) (*models.PostRef, error)
	GetComment(ctx context.Context, commentID string) (*models.CommentRef, error)
	GetReply(ctx context.Context, replyID string) (*models.ReplyRef, error)
}

// MongoContentRepository implements ContentRepository for MongoDB
type MongoContentRepository struct {
	posts    *mongo.Collection
	comments *mongo.Collection
	replies  *mongo.Collection
}

// NewMongoContentRepository creates a new MongoContentRepository
func NewMongoContentRepository(db *mongo.Database) *MongoContentRepository {
	return &MongoContentRepository{
		posts:    db.Collection("posts"),
		comments: db.Collection("comments"),
		replies:  db.Collection("replies"),
	}
}

// idFilter matches documents keyed either by a plain string or by an ObjectID
func idFilter(id string) bson.M {
	if objID, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, objID}}}
	}
	return bson.M{"_id": id}
}

func findRef(ctx context.Context, col *mongo.Collection, id string, projection bson.M, out interface{}) error {
	err := col.FindOne(ctx, idFilter(id), options.FindOne().SetProjection(projection)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// GetPost retrieves the authorship view of a post
func (r *MongoContentRepository) GetPost(ctx context.Context, postID string) (*models.PostRef, error) {
	var post models.PostRef
	if err := findRef(ctx, r.posts, postID, bson.M{"authorUid": 1, "campusId": 1, "createdAt": 1}, &post); err != nil {
		return nil, err
	}
	post.ID = postID
	return &post, nil
}

// GetComment retrieves the authorship view of a comment
func (r *MongoContentRepository) GetComment(ctx context.Context, commentID string) (*models.CommentRef, error) {
	var comment models.CommentRef
	if err := findRef(ctx, r.comments, commentID, bson.M{"authorUid": 1, "postId": 1}, &comment); err != nil {
		return nil, err
	}
	comment.ID = commentID
	return &comment, nil
}

// GetReply retrieves the authorship view of a reply
func (r *MongoContentRepository) GetReply(ctx context.Context, replyID string) (*models.ReplyRef, error) {
	var reply models.ReplyRef
	if err := findRef(ctx, r.replies, replyID, bson.M{"authorUid": 1, "commentId": 1, "postId": 1}, &reply); err != nil {
		return nil, err
	}
	reply.ID = replyID
	return &reply, nil
}
