// Package service contains application services: authentication, memberships and authored content.
package service

import (
	"context"
	"errors"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/limiter"
	"github.com/and161185/topichub/internal/model"
	"github.com/and161185/topichub/internal/repository"
)

// MinPasswordLen is the minimum password length in characters.
const MinPasswordLen = 8

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(hash []byte, password string) (bool, error)
}

// TokenManager issues and validates bearer tokens.
type TokenManager interface {
	Issue(identity string) (model.Tokens, error)
	Validate(raw string) (string, error)
}

// AuthService defines registration, credential checks and token-based identity resolution.
type AuthService interface {
	// Register creates a new user with a hashed password and an empty membership set.
	Register(ctx context.Context, username, email, password string) (model.Profile, error)
	// Verify checks credentials; identifier is an email or a username.
	Verify(ctx context.Context, identifier, password string) (*model.User, error)
	// Login applies rate-limiting, verifies credentials and issues a token.
	Login(ctx context.Context, identifier, password, ip string) (model.Tokens, model.Profile, error)
	// Authenticate validates a raw token and returns the principal identifier it carries.
	Authenticate(ctx context.Context, rawToken string) (string, error)
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenManager
	lim    limiter.Limiter
	log    *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens TokenManager, lim limiter.Limiter, log *zap.Logger) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{users: users, hasher: hasher, tokens: tokens, lim: lim, log: log}
}

// Register checks, in order: email taken, username taken, field format, password too short.
// The first failing check wins and nothing is written.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (model.Profile, error) {
	if taken, err := s.taken(ctx, s.users.GetByEmail, email); err != nil {
		return model.Profile{}, err
	} else if taken {
		return model.Profile{}, errs.ErrEmailTaken
	}
	if taken, err := s.taken(ctx, s.users.GetByUsername, username); err != nil {
		return model.Profile{}, err
	} else if taken {
		return model.Profile{}, errs.ErrUsernameTaken
	}
	if err := (validation.Errors{
		"username": validation.Validate(username, validation.Required, validation.RuneLength(1, 64)),
		"email":    validation.Validate(email, validation.Required, validation.RuneLength(1, 248), is.EmailFormat),
	}).Filter(); err != nil {
		return model.Profile{}, errs.Validation(err)
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return model.Profile{}, errs.ErrPasswordTooShort
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.Profile{}, err
	}
	u := &model.User{
		Username:           username,
		Email:              email,
		PwdHash:            hash,
		SubscribedTopicIDs: []int64{},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Profile{}, err
	}
	s.log.Info("user registered", zap.Int64("userID", u.ID), zap.String("username", u.Username))
	return model.ToProfile(u), nil
}

func (s *AuthServiceImpl) taken(ctx context.Context, get func(context.Context, string) (*model.User, error), key string) (bool, error) {
	_, err := get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Verify looks the user up by email, then by username, and compares the password hash.
// It distinguishes ErrUserNotFound from ErrBadCredentials; Login folds both into ErrUnauthorized.
func (s *AuthServiceImpl) Verify(ctx context.Context, identifier, password string) (*model.User, error) {
	u, err := ResolveUser(ctx, s.users, identifier)
	if err != nil {
		return nil, err
	}
	ok, err := s.hasher.Verify(u.PwdHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrBadCredentials
	}
	return u, nil
}

// Login authenticates with rate limiting by (identifier, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password, ip string) (model.Tokens, model.Profile, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, identifier, ipHash)
	if err != nil {
		return model.Tokens{}, model.Profile{}, err
	}
	if !allowed {
		return model.Tokens{}, model.Profile{}, errs.ErrRateLimited
	}

	u, err := s.Verify(ctx, identifier, password)
	if err != nil {
		if !errors.Is(err, errs.ErrUserNotFound) && !errors.Is(err, errs.ErrBadCredentials) {
			return model.Tokens{}, model.Profile{}, err
		}
		s.log.Warn("login failed", zap.String("identifier", identifier), zap.Error(err))
		blocked, _, ferr := s.lim.Failure(ctx, identifier, ipHash)
		if ferr != nil {
			s.log.Warn("limiter failure", zap.String("identifier", identifier), zap.Error(ferr))
		} else if blocked {
			return model.Tokens{}, model.Profile{}, errs.ErrRateLimited
		}
		// unknown user and wrong password look the same to the caller
		return model.Tokens{}, model.Profile{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, identifier, ipHash)

	tok, err := s.tokens.Issue(u.Email)
	if err != nil {
		return model.Tokens{}, model.Profile{}, err
	}
	s.log.Debug("token issued", zap.Int64("userID", u.ID), zap.Time("expiresAt", tok.ExpiresAt))
	return tok, model.ToProfile(u), nil
}

// Authenticate validates the token signature and expiry.
func (s *AuthServiceImpl) Authenticate(_ context.Context, rawToken string) (string, error) {
	if rawToken == "" {
		return "", errs.ErrTokenInvalid
	}
	return s.tokens.Validate(rawToken)
}

// ResolveUser finds the user denoted by a principal identifier: email first, then username.
func ResolveUser(ctx context.Context, users repository.UserRepository, identifier string) (*model.User, error) {
	u, err := users.GetByEmail(ctx, identifier)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	u, err = users.GetByUsername(ctx, identifier)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUserNotFound
	}
	return nil, err
}
