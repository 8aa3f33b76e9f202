// Package model defines domain entities used by services and repositories.
package model

import (
	"slices"
	"time"
)

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account. PwdHash never leaves the service layer.
type User struct {
	ID                 int64  // PK
	Username           string // unique
	Email              string // unique
	PwdHash            []byte // bcrypt
	SubscribedTopicIDs []int64
	Version            int64 // bumped on every profile/membership write
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Subscribed reports whether topicID is in the user's membership set.
func (u *User) Subscribed(topicID int64) bool {
	return slices.Contains(u.SubscribedTopicIDs, topicID)
}

// Topic is read-only seed data.
type Topic struct {
	ID          int64
	Title       string
	Description string
}

// Post is created once by its author and never modified except for comment linkage.
type Post struct {
	ID         int64
	Title      string
	Content    string
	AuthorID   int64
	TopicID    int64
	CommentIDs []int64 // ordered by creation
	CreatedAt  time.Time
}

// Comment belongs to exactly one post.
type Comment struct {
	ID        int64
	Content   string
	AuthorID  int64
	PostID    int64
	CreatedAt time.Time
}

// PostInput is the author-supplied part of a new post.
type PostInput struct {
	Title   string
	Content string
}

// CommentInput is the author-supplied part of a new comment.
type CommentInput struct {
	Content string
}

// Profile is the public view of a user.
type Profile struct {
	ID                 int64
	Username           string
	Email              string
	SubscribedTopicIDs []int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PostView is a post enriched with its author's username and topic title.
type PostView struct {
	Post
	Username   string
	TopicTitle string
}

// CommentView is a comment enriched with its author's username.
type CommentView struct {
	Comment
	Username string
}

// ToProfile strips credentials from u.
func ToProfile(u *User) Profile {
	ids := make([]int64, len(u.SubscribedTopicIDs))
	copy(ids, u.SubscribedTopicIDs)
	return Profile{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              u.Email,
		SubscribedTopicIDs: ids,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// ToPostView attaches author and topic display fields to p.
func ToPostView(p *Post, author *User, topic *Topic) PostView {
	v := PostView{Post: *p}
	v.CommentIDs = slices.Clone(p.CommentIDs)
	if author != nil {
		v.Username = author.Username
	}
	if topic != nil {
		v.TopicTitle = topic.Title
	}
	return v
}

// ToCommentView attaches the author's username to c.
func ToCommentView(c *Comment, author *User) CommentView {
	v := CommentView{Comment: *c}
	if author != nil {
		v.Username = author.Username
	}
	return v
}
