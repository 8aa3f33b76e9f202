package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
)

const userCols = `id, username, email, pwd_hash, subscribed_topic_ids, version, created_at, updated_at`

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PwdHash, &u.SubscribedTopicIDs, &u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// uniqueErr maps users unique constraints to validation errors.
func uniqueErr(err error) error {
	name, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	switch name {
	case "users_email_key":
		return errs.ErrEmailTaken
	case "users_username_key":
		return errs.ErrUsernameTaken
	default:
		return errs.ErrAlreadyExists
	}
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (username, email, pwd_hash, subscribed_topic_ids)
VALUES ($1, $2, $3, $4)
RETURNING id, version, created_at, updated_at`
	topics := u.SubscribedTopicIDs
	if topics == nil {
		topics = []int64{}
	}
	err := r.db.Pool.QueryRow(ctx, q, u.Username, u.Email, u.PwdHash, topics).
		Scan(&u.ID, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return uniqueErr(err)
	}
	u.SubscribedTopicIDs = topics
	return nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE username=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, username))
}

// GetByIDs selects all users whose id is in ids.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `SELECT ` + userCols + ` FROM users WHERE id = ANY($1) ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Exists reports whether the user row exists.
func (r *UserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// UpdateProfile sets username and email with a version check.
func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, username, email string, baseVer int64) (int64, error) {
	const q = `
UPDATE users
SET username = $2, email = $3, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $4
RETURNING version`
	var ver int64
	if err := r.db.Pool.QueryRow(ctx, q, id, username, email, baseVer).Scan(&ver); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrVersionConflict
		}
		return 0, uniqueErr(err)
	}
	return ver, nil
}

// UpdateSubscriptions replaces the membership set with a version check.
func (r *UserRepo) UpdateSubscriptions(ctx context.Context, id int64, topicIDs []int64, baseVer int64) (int64, error) {
	const q = `
UPDATE users
SET subscribed_topic_ids = $2, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $3
RETURNING version`
	if topicIDs == nil {
		topicIDs = []int64{}
	}
	var ver int64
	if err := r.db.Pool.QueryRow(ctx, q, id, topicIDs, baseVer).Scan(&ver); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrVersionConflict
		}
		return 0, err
	}
	return ver, nil
}
