package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestUserStoreCreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	s := NewUserStore(db)
	ctx := context.Background()
	u := &entities.User{ID: "u1", Email: "a@b.c", Nickname: "A", Code: "ABCD1234", PasswordHash: "h", BlockedWords: []string{"spoiler"}, CreatedAt: 42}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users(")).
		WithArgs("u1", "a@b.c", "A", "ABCD1234", "h", "", `["spoiler"]`, int64(42)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.Create(ctx, u))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users(")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.ErrorIs(t, s.Create(ctx, u), entities.ErrConflict)

	cols := []string{"id", "email", "nickname", "code", "password", "bio", "blocked_words", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE code=?")).
		WithArgs("ABCD1234").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "a@b.c", "A", "ABCD1234", "h", nil, `["spoiler"]`, int64(42)))
	got, err := s.GetByCode(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = s.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestUserStoreBlockedWordsMissingUser(t *testing.T) {
	db, mock := newMock(t)
	s := NewUserStore(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET blocked_words=?")).
		WithArgs(`["x"]`, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE id=?")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	assert.ErrorIs(t, s.UpdateBlockedWords(context.Background(), "ghost", []string{"x"}), entities.ErrNotFound)
}

func TestBlockStore(t *testing.T) {
	db, mock := newMock(t)
	s := NewBlockStore(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blocked_users")).
		WithArgs("me", "other", int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.Block(ctx, &entities.BlockedUser{UserID: "me", BlockedUserID: "other", BlockedAt: 7}))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM blocked_users")).
		WithArgs("me", "other").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	blocked, err := s.IsBlocked(ctx, "me", "other")
	require.NoError(t, err)
	assert.True(t, blocked)

	mock.ExpectQuery(regexp.QuoteMeta("FROM blocked_users WHERE user_id=?")).
		WithArgs("me").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "blocked_user_id", "blocked_at"}).AddRow("me", "other", int64(7)))
	list, err := s.List(ctx, "me")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "other", list[0].BlockedUserID)
}

func TestAttemptStore(t *testing.T) {
	db, mock := newMock(t)
	s := NewAttemptStore(db)
	ctx := context.Background()
	cols := []string{"id", "conversation_id", "sender_id", "receiver_id", "blocked_word", "content", "timestamp", "action"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM blocked_attempts WHERE receiver_id=? AND action=''")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a1", "alice_bob", "alice", "bob", "spoiler", "big spoiler", int64(9), ""))
	list, err := s.ListUnresolved(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, valueobjects.AttemptActionNone, list[0].Action)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE blocked_attempts SET action=?")).
		WithArgs("ignored", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.SetAction(ctx, "missing", "ignored"), entities.ErrNotFound)
}
