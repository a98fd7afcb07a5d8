package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"
)

// 屏蔽词拦截记录（MySQL blocked_attempts 表）
type AttemptStore struct{ DB *sql.DB }

var _ ports.AttemptStore = (*AttemptStore)(nil)

func NewAttemptStore(db *sql.DB) *AttemptStore { return &AttemptStore{DB: db} }

const attemptColumns = `id, conversation_id, sender_id, receiver_id, blocked_word, content, timestamp, action`

func (s *AttemptStore) Add(ctx context.Context, a *entities.BlockedAttempt) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO blocked_attempts(`+attemptColumns+`) VALUES(?,?,?,?,?,?,?,?)`,
		a.ID, a.ConversationID, a.SenderID, a.ReceiverID, a.BlockedWord, a.Content, a.Timestamp, string(a.Action))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (*entities.BlockedAttempt, error) {
	a := &entities.BlockedAttempt{}
	var action string
	if err := row.Scan(&a.ID, &a.ConversationID, &a.SenderID, &a.ReceiverID, &a.BlockedWord, &a.Content, &a.Timestamp, &action); err != nil {
		return nil, err
	}
	a.Action = valueobjects.AttemptAction(action)
	return a, nil
}

func (s *AttemptStore) Get(ctx context.Context, id string) (*entities.BlockedAttempt, error) {
	a, err := scanAttempt(s.DB.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM blocked_attempts WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	return a, err
}

// 尚未处理的拦截，按时间倒序
func (s *AttemptStore) ListUnresolved(ctx context.Context, receiverID string) ([]*entities.BlockedAttempt, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+attemptColumns+` FROM blocked_attempts WHERE receiver_id=? AND action='' ORDER BY timestamp DESC`, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*entities.BlockedAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AttemptStore) SetAction(ctx context.Context, id string, action string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE blocked_attempts SET action=? WHERE id=?`, action, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrNotFound
	}
	return nil
}
