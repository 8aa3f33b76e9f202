package service

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
	"github.com/and161185/topichub/internal/repository"
)

// TopicService lists the seeded topics.
type TopicService interface {
	List(ctx context.Context) ([]model.Topic, error)
}

type TopicServiceImpl struct {
	topics repository.TopicRepository
}

// NewTopicService constructs TopicService.
func NewTopicService(topics repository.TopicRepository) *TopicServiceImpl {
	return &TopicServiceImpl{topics: topics}
}

// List returns all topics ordered by ID.
func (s *TopicServiceImpl) List(ctx context.Context) ([]model.Topic, error) {
	return s.topics.List(ctx)
}

// PostService creates posts and builds the subscription feed.
type PostService interface {
	// Create stores a post authored by authorID in topicID.
	Create(ctx context.Context, authorID, topicID int64, in model.PostInput) (model.PostView, error)
	// Feed returns posts of the given topics, newest first.
	Feed(ctx context.Context, topicIDs []int64) ([]model.PostView, error)
}

type PostServiceImpl struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	topics repository.TopicRepository
	log    *zap.Logger
}

// NewPostService constructs PostService.
func NewPostService(posts repository.PostRepository, users repository.UserRepository, topics repository.TopicRepository, log *zap.Logger) *PostServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostServiceImpl{posts: posts, users: users, topics: topics, log: log}
}

func validatePost(in model.PostInput) error {
	return errs.Validation(validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, 254)),
		validation.Field(&in.Content, validation.Required),
	))
}

// Create checks that author and topic exist, stores the post and
// re-reads author and topic to fill the view.
func (s *PostServiceImpl) Create(ctx context.Context, authorID, topicID int64, in model.PostInput) (model.PostView, error) {
	if err := validatePost(in); err != nil {
		return model.PostView{}, err
	}
	if err := mustExist(ctx, s.users.Exists, authorID, errs.ErrUserNotFound); err != nil {
		return model.PostView{}, err
	}
	if err := mustExist(ctx, s.topics.Exists, topicID, errs.ErrTopicNotFound); err != nil {
		return model.PostView{}, err
	}

	p := &model.Post{Title: in.Title, Content: in.Content, AuthorID: authorID, TopicID: topicID}
	if err := s.posts.Create(ctx, p); err != nil {
		return model.PostView{}, err
	}
	s.log.Info("post created", zap.Int64("postID", p.ID), zap.Int64("authorID", authorID), zap.Int64("topicID", topicID))

	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return model.PostView{}, err
	}
	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		return model.PostView{}, err
	}
	return model.ToPostView(p, author, topic), nil
}

// Feed loads posts and their authors and topics in three batched reads.
func (s *PostServiceImpl) Feed(ctx context.Context, topicIDs []int64) ([]model.PostView, error) {
	out := []model.PostView{}
	if len(topicIDs) == 0 {
		return out, nil
	}
	posts, err := s.posts.ListByTopics(ctx, topicIDs)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return out, nil
	}

	authorIDs := make([]int64, 0, len(posts))
	postTopicIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
		postTopicIDs = append(postTopicIDs, p.TopicID)
	}
	authors, err := s.users.GetByIDs(ctx, distinct(authorIDs))
	if err != nil {
		return nil, err
	}
	topics, err := s.topics.GetByIDs(ctx, distinct(postTopicIDs))
	if err != nil {
		return nil, err
	}
	authorByID := make(map[int64]*model.User, len(authors))
	for i := range authors {
		authorByID[authors[i].ID] = &authors[i]
	}
	topicByID := make(map[int64]*model.Topic, len(topics))
	for i := range topics {
		topicByID[topics[i].ID] = &topics[i]
	}

	for i := range posts {
		out = append(out, model.ToPostView(&posts[i], authorByID[posts[i].AuthorID], topicByID[posts[i].TopicID]))
	}
	return out, nil
}

// CommentService creates and lists comments.
type CommentService interface {
	// Create stores a comment and links it to its post.
	Create(ctx context.Context, authorID, postID int64, in model.CommentInput) (model.CommentView, error)
	// ListByPost returns the post's comments with author usernames.
	ListByPost(ctx context.Context, postID int64) ([]model.CommentView, error)
}

type CommentServiceImpl struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	log      *zap.Logger
}

// NewCommentService constructs CommentService.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, users repository.UserRepository, log *zap.Logger) *CommentServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentServiceImpl{comments: comments, posts: posts, users: users, log: log}
}

func validateComment(in model.CommentInput) error {
	return errs.Validation(validation.ValidateStruct(&in,
		validation.Field(&in.Content, validation.Required),
	))
}

// Create fetches author and post, then stores the comment together with
// its post linkage in one repository call.
func (s *CommentServiceImpl) Create(ctx context.Context, authorID, postID int64, in model.CommentInput) (model.CommentView, error) {
	if err := validateComment(in); err != nil {
		return model.CommentView{}, err
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return model.CommentView{}, err
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return model.CommentView{}, err
	}

	c := &model.Comment{Content: in.Content, AuthorID: author.ID, PostID: postID}
	if err := s.comments.CreateLinked(ctx, c); err != nil {
		return model.CommentView{}, fmt.Errorf("create comment on post %d: %w", postID, err)
	}
	s.log.Debug("comment linked", zap.Int64("commentID", c.ID), zap.Int64("postID", postID), zap.Int64("authorID", author.ID))
	return model.ToCommentView(c, author), nil
}

// ListByPost fails with ErrPostNotFound for an unknown post.
func (s *CommentServiceImpl) ListByPost(ctx context.Context, postID int64) ([]model.CommentView, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	cs, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	out := make([]model.CommentView, 0, len(cs))
	if len(cs) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.AuthorID)
	}
	authors, err := s.users.GetByIDs(ctx, distinct(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.User, len(authors))
	for i := range authors {
		byID[authors[i].ID] = &authors[i]
	}
	for i := range cs {
		out = append(out, model.ToCommentView(&cs[i], byID[cs[i].AuthorID]))
	}
	return out, nil
}

func mustExist(ctx context.Context, exists func(context.Context, int64) (bool, error), id int64, notFound error) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
