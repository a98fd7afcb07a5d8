package store

import (
	"context"
	"database/sql"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// 拉黑关系存储（MySQL blocked_users 表），主键 (user_id, blocked_user_id)
type BlockStore struct{ DB *sql.DB }

var _ ports.BlockList = (*BlockStore)(nil)

func NewBlockStore(db *sql.DB) *BlockStore { return &BlockStore{DB: db} }

// 拉黑，重复拉黑只刷新时间
func (s *BlockStore) Block(ctx context.Context, b *entities.BlockedUser) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO blocked_users(user_id, blocked_user_id, blocked_at) VALUES(?,?,?) ON DUPLICATE KEY UPDATE blocked_at=VALUES(blocked_at)`,
		b.UserID, b.BlockedUserID, b.BlockedAt)
	return err
}

func (s *BlockStore) Unblock(ctx context.Context, userID, blockedID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM blocked_users WHERE user_id=? AND blocked_user_id=?`, userID, blockedID)
	return err
}

// userID 是否拉黑了 otherID
func (s *BlockStore) IsBlocked(ctx context.Context, userID, otherID string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocked_users WHERE user_id=? AND blocked_user_id=?`, userID, otherID).Scan(&n)
	return n > 0, err
}

// 拉黑列表，最近的在前
func (s *BlockStore) List(ctx context.Context, userID string) ([]*entities.BlockedUser, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT user_id, blocked_user_id, blocked_at FROM blocked_users WHERE user_id=? ORDER BY blocked_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*entities.BlockedUser
	for rows.Next() {
		b := &entities.BlockedUser{}
		if err := rows.Scan(&b.UserID, &b.BlockedUserID, &b.BlockedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
