// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/topichub/internal/model"
)

// UserRepository provides keyed access to user records.
type UserRepository interface {
	// Create inserts a new user and fills its ID, Version and timestamps.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByIDs loads every existing user among ids; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]model.User, error)
	// Exists reports whether a user with id exists.
	Exists(ctx context.Context, id int64) (bool, error)
	// UpdateProfile stores username/email if the stored version equals baseVer and returns the new version.
	UpdateProfile(ctx context.Context, id int64, username, email string, baseVer int64) (int64, error)
	// UpdateSubscriptions replaces the membership set if the stored version equals baseVer and returns the new version.
	UpdateSubscriptions(ctx context.Context, id int64, topicIDs []int64, baseVer int64) (int64, error)
}
