package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
)

// TopicRepo implements TopicRepository using PostgreSQL.
type TopicRepo struct{ db *DB }

// NewTopicRepo constructs a topic repository.
func NewTopicRepo(db *DB) *TopicRepo { return &TopicRepo{db: db} }

func (r *TopicRepo) query(ctx context.Context, q string, args ...any) ([]model.Topic, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.Description); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// List returns every topic.
func (r *TopicRepo) List(ctx context.Context) ([]model.Topic, error) {
	return r.query(ctx, `SELECT id, title, description FROM topics ORDER BY id`)
}

// GetByIDs returns the topics whose id is in ids.
func (r *TopicRepo) GetByIDs(ctx context.Context, ids []int64) ([]model.Topic, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT id, title, description FROM topics WHERE id = ANY($1) ORDER BY id`, ids)
}

// GetByID selects a topic by ID.
func (r *TopicRepo) GetByID(ctx context.Context, id int64) (*model.Topic, error) {
	const q = `SELECT id, title, description FROM topics WHERE id=$1`
	var t model.Topic
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.Title, &t.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrTopicNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Exists reports whether the topic row exists.
func (r *TopicRepo) Exists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM topics WHERE id=$1)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// PostRepo implements PostRepository using PostgreSQL.
type PostRepo struct{ db *DB }

// NewPostRepo constructs a post repository.
func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

// Create inserts a post row with an empty comment list.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	const q = `
INSERT INTO posts (title, content, author_id, topic_id)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	if err := r.db.Pool.QueryRow(ctx, q, p.Title, p.Content, p.AuthorID, p.TopicID).Scan(&p.ID, &p.CreatedAt); err != nil {
		return err
	}
	p.CommentIDs = []int64{}
	return nil
}

// GetByID selects a post by ID.
func (r *PostRepo) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	const q = `
SELECT id, title, content, author_id, topic_id, comment_ids, created_at
FROM posts WHERE id=$1`
	var p model.Post
	err := r.db.Pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.TopicID, &p.CommentIDs, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByTopics returns posts of the given topics, newest first.
func (r *PostRepo) ListByTopics(ctx context.Context, topicIDs []int64) ([]model.Post, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}
	const q = `
SELECT id, title, content, author_id, topic_id, comment_ids, created_at
FROM posts
WHERE topic_id = ANY($1)
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Pool.Query(ctx, q, topicIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.TopicID, &p.CommentIDs, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CommentRepo implements CommentRepository using PostgreSQL.
type CommentRepo struct{ db *DB }

// NewCommentRepo constructs a comment repository.
func NewCommentRepo(db *DB) *CommentRepo { return &CommentRepo{db: db} }

// CreateLinked inserts the comment and appends its id to posts.comment_ids in one transaction.
func (r *CommentRepo) CreateLinked(ctx context.Context, c *model.Comment) error {
	const ins = `
INSERT INTO comments (content, author_id, post_id)
VALUES ($1, $2, $3)
RETURNING id, created_at`
	const link = `UPDATE posts SET comment_ids = array_append(comment_ids, $2) WHERE id = $1`

	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, ins, c.Content, c.AuthorID, c.PostID).Scan(&c.ID, &c.CreatedAt); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, link, c.PostID, c.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrConsistency
		}
		return nil
	})
}

// ListByPost returns comments of a post ordered by creation.
func (r *CommentRepo) ListByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	const q = `
SELECT id, content, author_id, post_id, created_at
FROM comments
WHERE post_id=$1
ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.AuthorID, &c.PostID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
