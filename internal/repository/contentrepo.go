package repository

import (
	"context"

	"github.com/and161185/topichub/internal/model"
)

// TopicRepository provides read access to seeded topics.
type TopicRepository interface {
	// List returns all topics ordered by ID.
	List(ctx context.Context) ([]model.Topic, error)
	// GetByID loads a topic by ID.
	GetByID(ctx context.Context, id int64) (*model.Topic, error)
	// GetByIDs loads every existing topic among ids.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Topic, error)
	// Exists reports whether a topic with id exists.
	Exists(ctx context.Context, id int64) (bool, error)
}

// PostRepository provides access to posts.
type PostRepository interface {
	// Create inserts a post and fills its ID and CreatedAt.
	Create(ctx context.Context, p *model.Post) error
	// GetByID loads a post by ID, including its comment linkage.
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	// ListByTopics returns posts of the given topics, newest first.
	ListByTopics(ctx context.Context, topicIDs []int64) ([]model.Post, error)
}

// CommentRepository provides access to comments.
type CommentRepository interface {
	// CreateLinked inserts c and appends its ID to the owning post's
	// comment list as one unit. Nothing is stored if either write fails.
	CreateLinked(ctx context.Context, c *model.Comment) error
	// ListByPost returns comments of a post ordered by creation.
	ListByPost(ctx context.Context, postID int64) ([]model.Comment, error)
}
