package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"github.com/go-sql-driver/mysql"
)

// 用户存储（MySQL users 表）
type UserStore struct{ DB *sql.DB }

var _ ports.UserDirectory = (*UserStore)(nil)

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{DB: db} }

const userColumns = `id, email, nickname, code, password, bio, blocked_words, created_at`

// MySQL 唯一键冲突
const errDupEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

// 创建用户，邮箱或用户码重复返回 ErrConflict
func (s *UserStore) Create(ctx context.Context, u *entities.User) error {
	words, err := json.Marshal(u.BlockedWords)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES(?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.Nickname, u.Code, u.PasswordHash, u.Bio, string(words), u.CreatedAt)
	if isDuplicate(err) {
		return entities.ErrConflict
	}
	return err
}

func (s *UserStore) getBy(ctx context.Context, column, value string) (*entities.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+`=?`, value)
	u := &entities.User{}
	var bio, words sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.Nickname, &u.Code, &u.PasswordHash, &bio, &words, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFound
		}
		return nil, err
	}
	u.Bio = bio.String
	u.BlockedWords = []string{}
	if words.Valid && words.String != "" {
		if err := json.Unmarshal([]byte(words.String), &u.BlockedWords); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// 按 ID 查询用户
func (s *UserStore) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return s.getBy(ctx, "id", id)
}

// 按邮箱查询
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return s.getBy(ctx, "email", email)
}

// 按用户码查询
func (s *UserStore) GetByCode(ctx context.Context, code string) (*entities.User, error) {
	return s.getBy(ctx, "code", code)
}

func (s *UserStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE code=?`, code).Scan(&n)
	return n > 0, err
}

// 覆盖屏蔽词
func (s *UserStore) UpdateBlockedWords(ctx context.Context, id string, words []string) error {
	raw, err := json.Marshal(words)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET blocked_words=? WHERE id=?`, string(raw), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id=?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return entities.ErrNotFound
		}
	}
	return nil
}
