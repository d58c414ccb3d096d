package models

import "time"

// PostRef is the authorship view of a post document (MongoDB)
type PostRef struct {
	ID        string    `bson:"_id"`
	AuthorUID string    `bson:"authorUid"`
	CampusID  string    `bson:"campusId,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

// CommentRef is the authorship view of a comment document (MongoDB)
type CommentRef struct {
	ID        string `bson:"_id"`
	PostID    string `bson:"postId"`
	AuthorUID string `bson:"authorUid"`
}

// ReplyRef is the authorship view of a reply document (MongoDB)
type ReplyRef struct {
	ID        string `bson:"_id"`
	CommentID string `bson:"commentId"`
	PostID    string `bson:"postId"`
	AuthorUID string `bson:"authorUid"`
}
