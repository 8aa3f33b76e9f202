package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var userColumns = []string{"id", "username", "email", "pwd_hash", "subscribed_topic_ids", "version", "created_at", "updated_at"}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	const insert = `INSERT INTO users \(username, email, pwd_hash, subscribed_topic_ids\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id, version, created_at, updated_at`

	u := &model.User{Username: "alice", Email: "alice@x.com", PwdHash: []byte("h")}
	mock.ExpectQuery(insert).
		WithArgs("alice", "alice@x.com", []byte("h"), []int64{}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).AddRow(int64(7), int64(1), now, now))
	require.NoError(t, r.Create(ctx, u))
	require.Equal(t, int64(7), u.ID)
	require.Equal(t, int64(1), u.Version)
	require.NotNil(t, u.SubscribedTopicIDs)

	mock.ExpectQuery(insert).
		WithArgs("alice", "alice@x.com", []byte("h"), []int64{}).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	require.ErrorIs(t, r.Create(ctx, &model.User{Username: "alice", Email: "alice@x.com", PwdHash: []byte("h")}), errs.ErrEmailTaken)

	mock.ExpectQuery(insert).
		WithArgs("alice", "alice@x.com", []byte("h"), []int64{}).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
	require.ErrorIs(t, r.Create(ctx, &model.User{Username: "alice", Email: "alice@x.com", PwdHash: []byte("h")}), errs.ErrUsernameTaken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmailAndUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, username, email, pwd_hash, subscribed_topic_ids, version, created_at, updated_at FROM users WHERE email=\$1`).
		WithArgs("alice@x.com").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(int64(1), "alice", "alice@x.com", []byte("h"), []int64{3}, int64(2), now, now))
	u, err := r.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, []int64{3}, u.SubscribedTopicIDs)

	mock.ExpectQuery(`SELECT .* FROM users WHERE username=\$1`).
		WithArgs("bob").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUsername(ctx, "bob")
	require.ErrorIs(t, err, errs.ErrUserNotFound)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id=\$1`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, 9)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByIDs_And_Exists(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	got, err := r.GetByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, got)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = ANY\(\$1\) ORDER BY id`).
		WithArgs([]int64{1, 2}).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(int64(1), "alice", "a@x", []byte("h"), []int64{}, int64(1), now, now).
			AddRow(int64(2), "bob", "b@x", []byte("h"), []int64{}, int64(1), now, now))
	got, err = r.GetByIDs(ctx, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "bob", got[1].Username)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM users WHERE id=\$1\)`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := r.Exists(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateSubscriptions_VersionCheck(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	const upd = `UPDATE users SET subscribed_topic_ids = \$2, version = version \+ 1, updated_at = now\(\) WHERE id = \$1 AND version = \$3 RETURNING version`

	mock.ExpectQuery(upd).
		WithArgs(int64(1), []int64{4}, int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(3)))
	ver, err := r.UpdateSubscriptions(ctx, 1, []int64{4}, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), ver)

	mock.ExpectQuery(upd).
		WithArgs(int64(1), []int64{}, int64(2)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.UpdateSubscriptions(ctx, 1, nil, 2)
	require.ErrorIs(t, err, errs.ErrVersionConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateProfile(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	const upd = `UPDATE users SET username = \$2, email = \$3, version = version \+ 1, updated_at = now\(\) WHERE id = \$1 AND version = \$4 RETURNING version`

	mock.ExpectQuery(upd).
		WithArgs(int64(1), "alice2", "alice2@x.com", int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(2)))
	ver, err := r.UpdateProfile(ctx, 1, "alice2", "alice2@x.com", 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), ver)

	mock.ExpectQuery(upd).
		WithArgs(int64(1), "bob", "alice2@x.com", int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
	_, err = r.UpdateProfile(ctx, 1, "bob", "alice2@x.com", 2)
	require.ErrorIs(t, err, errs.ErrUsernameTaken)

	mock.ExpectQuery(upd).
		WithArgs(int64(1), "alice2", "alice2@x.com", int64(1)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.UpdateProfile(ctx, 1, "alice2", "alice2@x.com", 1)
	require.ErrorIs(t, err, errs.ErrVersionConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}
