package service

import (
	"context"
	"errors"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
	"github.com/and161185/topichub/internal/repository"
)

// UserService exposes the caller's profile and topic memberships.
type UserService interface {
	// Me returns the profile of the user the principal resolves to.
	Me(ctx context.Context, principal string) (model.Profile, error)
	// UpdateProfile changes username and email of the principal's user.
	UpdateProfile(ctx context.Context, principal, username, email string) (model.Profile, error)
	// Subscribe adds topicID to the user's membership set.
	Subscribe(ctx context.Context, userID, topicID int64) (model.Profile, error)
	// Unsubscribe removes topicID from the user's membership set.
	Unsubscribe(ctx context.Context, userID, topicID int64) (model.Profile, error)
}

type UserServiceImpl struct {
	users  repository.UserRepository
	topics repository.TopicRepository
	log    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository, topics repository.TopicRepository, log *zap.Logger) *UserServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserServiceImpl{users: users, topics: topics, log: log}
}

// Me resolves the principal by email, then username.
func (s *UserServiceImpl) Me(ctx context.Context, principal string) (model.Profile, error) {
	u, err := ResolveUser(ctx, s.users, principal)
	if err != nil {
		return model.Profile{}, err
	}
	return model.ToProfile(u), nil
}

// UpdateProfile checks, in order: email taken by another user, username taken by another user, field format.
// The write is rejected with ErrVersionConflict if the record changed since it was read.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, principal, username, email string) (model.Profile, error) {
	u, err := ResolveUser(ctx, s.users, principal)
	if err != nil {
		return model.Profile{}, err
	}
	if err := s.ownedByOther(ctx, s.users.GetByEmail, email, u.ID, errs.ErrEmailTaken); err != nil {
		return model.Profile{}, err
	}
	if err := s.ownedByOther(ctx, s.users.GetByUsername, username, u.ID, errs.ErrUsernameTaken); err != nil {
		return model.Profile{}, err
	}
	if err := (validation.Errors{
		"username": validation.Validate(username, validation.Required, validation.RuneLength(1, 64)),
		"email":    validation.Validate(email, validation.Required, validation.RuneLength(1, 248), is.EmailFormat),
	}).Filter(); err != nil {
		return model.Profile{}, errs.Validation(err)
	}

	if _, err := s.users.UpdateProfile(ctx, u.ID, username, email, u.Version); err != nil {
		return model.Profile{}, err
	}
	s.log.Info("profile updated", zap.Int64("userID", u.ID))
	return s.refreshed(ctx, u.ID)
}

func (s *UserServiceImpl) ownedByOther(ctx context.Context, get func(context.Context, string) (*model.User, error), key string, self int64, taken error) error {
	other, err := get(ctx, key)
	switch {
	case err == nil:
		if other.ID != self {
			return taken
		}
		return nil
	case errors.Is(err, errs.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Subscribe fails with ErrTopicNotFound, ErrUserNotFound or ErrAlreadySubscribed, checked in that order.
func (s *UserServiceImpl) Subscribe(ctx context.Context, userID, topicID int64) (model.Profile, error) {
	u, err := s.load(ctx, userID, topicID)
	if err != nil {
		return model.Profile{}, err
	}
	if u.Subscribed(topicID) {
		return model.Profile{}, errs.ErrAlreadySubscribed
	}

	next := append(slices.Clone(u.SubscribedTopicIDs), topicID)
	if _, err := s.users.UpdateSubscriptions(ctx, u.ID, next, u.Version); err != nil {
		return model.Profile{}, err
	}
	s.log.Info("subscribed", zap.Int64("userID", u.ID), zap.Int64("topicID", topicID))
	return s.refreshed(ctx, u.ID)
}

// Unsubscribe fails with ErrTopicNotFound, ErrUserNotFound or ErrNotSubscribed, checked in that order.
func (s *UserServiceImpl) Unsubscribe(ctx context.Context, userID, topicID int64) (model.Profile, error) {
	u, err := s.load(ctx, userID, topicID)
	if err != nil {
		return model.Profile{}, err
	}
	if !u.Subscribed(topicID) {
		return model.Profile{}, errs.ErrNotSubscribed
	}

	next := slices.DeleteFunc(slices.Clone(u.SubscribedTopicIDs), func(id int64) bool { return id == topicID })
	if _, err := s.users.UpdateSubscriptions(ctx, u.ID, next, u.Version); err != nil {
		return model.Profile{}, err
	}
	s.log.Info("unsubscribed", zap.Int64("userID", u.ID), zap.Int64("topicID", topicID))
	return s.refreshed(ctx, u.ID)
}

func (s *UserServiceImpl) load(ctx context.Context, userID, topicID int64) (*model.User, error) {
	ok, err := s.topics.Exists(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrTopicNotFound
	}
	return s.users.GetByID(ctx, userID)
}

func (s *UserServiceImpl) refreshed(ctx context.Context, userID int64) (model.Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return model.ToProfile(u), nil
}
