// Package memory implements the repository interfaces in process memory.
// It backs dev mode and tests; all repositories share one Store so that
// multi-record units (comment + post linkage) run under a single lock.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
	"github.com/and161185/topichub/internal/repository"
)

var (
	_ repository.UserRepository    = (*Users)(nil)
	_ repository.TopicRepository   = (*Topics)(nil)
	_ repository.PostRepository    = (*Posts)(nil)
	_ repository.CommentRepository = (*Comments)(nil)
)

// SeedTopics mirrors the topics inserted by the SQL seed migration.
var SeedTopics = []model.Topic{
	{ID: 1, Title: "Go", Description: "Goroutines, channels and the standard library"},
	{ID: 2, Title: "JavaScript", Description: "The language of the browser"},
	{ID: 3, Title: "Java", Description: "JVM, Spring and friends"},
	{ID: 4, Title: "Python", Description: "Scripting, data and web"},
	{ID: 5, Title: "DevOps", Description: "CI/CD, containers and infrastructure"},
}

// Store holds all entities.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      int64
	users    map[int64]*model.User
	topics   map[int64]*model.Topic
	posts    map[int64]*model.Post
	comments map[int64]*model.Comment
}

// New constructs an empty store seeded with topics.
func New(topics ...model.Topic) *Store {
	s := &Store{
		now:      time.Now,
		users:    map[int64]*model.User{},
		topics:   map[int64]*model.Topic{},
		posts:    map[int64]*model.Post{},
		comments: map[int64]*model.Comment{},
	}
	for _, t := range topics {
		t := t
		s.topics[t.ID] = &t
		if t.ID > s.seq {
			s.seq = t.ID
		}
	}
	return s
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.SubscribedTopicIDs = slices.Clone(u.SubscribedTopicIDs)
	c.PwdHash = slices.Clone(u.PwdHash)
	return &c
}

func clonePost(p *model.Post) *model.Post {
	c := *p
	c.CommentIDs = slices.Clone(p.CommentIDs)
	return &c
}

// Users returns the UserRepository view.
func (s *Store) Users() *Users { return &Users{s} }

// Topics returns the TopicRepository view.
func (s *Store) Topics() *Topics { return &Topics{s} }

// Posts returns the PostRepository view.
func (s *Store) Posts() *Posts { return &Posts{s} }

// Comments returns the CommentRepository view.
func (s *Store) Comments() *Comments { return &Comments{s} }

// Users implements repository.UserRepository.
type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uniqueUser(0, u.Username, u.Email); err != nil {
		return err
	}
	u.ID = s.nextID()
	u.Version = 1
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	if u.SubscribedTopicIDs == nil {
		u.SubscribedTopicIDs = []int64{}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

// uniqueUser reports a clash with any user other than skip, emails before usernames.
// Callers hold s.mu.
func (s *Store) uniqueUser(skip int64, username, email string) error {
	for _, e := range s.users {
		if e.ID != skip && e.Email == email {
			return errs.ErrEmailTaken
		}
	}
	for _, e := range s.users {
		if e.ID != skip && e.Username == username {
			return errs.ErrUsernameTaken
		}
	}
	return nil
}

func (r *Users) find(match func(*model.User) bool) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (r *Users) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username })
}

func (r *Users) GetByIDs(_ context.Context, ids []int64) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Users) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.users[id]
	return ok, nil
}

// update applies fn to the stored user when its version equals baseVer.
func (r *Users) update(id, baseVer int64, fn func(u *model.User) error) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.Version != baseVer {
		return 0, errs.ErrVersionConflict
	}
	next := cloneUser(u)
	if err := fn(next); err != nil {
		return 0, err
	}
	next.Version++
	next.UpdatedAt = s.now()
	s.users[id] = next
	return next.Version, nil
}

func (r *Users) UpdateProfile(_ context.Context, id int64, username, email string, baseVer int64) (int64, error) {
	return r.update(id, baseVer, func(u *model.User) error {
		if err := r.s.uniqueUser(id, username, email); err != nil {
			return err
		}
		u.Username, u.Email = username, email
		return nil
	})
}

func (r *Users) UpdateSubscriptions(_ context.Context, id int64, topicIDs []int64, baseVer int64) (int64, error) {
	return r.update(id, baseVer, func(u *model.User) error {
		u.SubscribedTopicIDs = slices.Clone(topicIDs)
		if u.SubscribedTopicIDs == nil {
			u.SubscribedTopicIDs = []int64{}
		}
		return nil
	})
}

// Topics implements repository.TopicRepository.
type Topics struct{ s *Store }

func (r *Topics) List(_ context.Context) ([]model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Topic, 0, len(r.s.topics))
	for _, t := range r.s.topics {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Topics) GetByID(_ context.Context, id int64) (*model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.topics[id]
	if !ok {
		return nil, errs.ErrTopicNotFound
	}
	c := *t
	return &c, nil
}

func (r *Topics) GetByIDs(_ context.Context, ids []int64) ([]model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Topic
	for _, id := range ids {
		if t, ok := r.s.topics[id]; ok {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Topics) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.topics[id]
	return ok, nil
}

// Posts implements repository.PostRepository.
type Posts struct{ s *Store }

func (r *Posts) Create(_ context.Context, p *model.Post) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	p.CreatedAt = s.now()
	p.CommentIDs = []int64{}
	s.posts[p.ID] = clonePost(p)
	return nil
}

func (r *Posts) GetByID(_ context.Context, id int64) (*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, errs.ErrPostNotFound
	}
	return clonePost(p), nil
}

func (r *Posts) ListByTopics(_ context.Context, topicIDs []int64) ([]model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Post
	for _, p := range r.s.posts {
		if slices.Contains(topicIDs, p.TopicID) {
			out = append(out, *clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Comments implements repository.CommentRepository.
type Comments struct{ s *Store }

func (r *Comments) CreateLinked(_ context.Context, c *model.Comment) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[c.PostID]
	if !ok {
		return errs.ErrConsistency
	}
	c.ID = s.nextID()
	c.CreatedAt = s.now()
	cc := *c
	s.comments[c.ID] = &cc
	p.CommentIDs = append(p.CommentIDs, c.ID)
	return nil
}

func (r *Comments) ListByPost(_ context.Context, postID int64) ([]model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Comment
	for _, c := range r.s.comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
