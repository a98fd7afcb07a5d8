package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"go.uber.org/zap"
)

const (
	minPasswordLength = 6
	maxCodeAttempts   = 10
)

// Accounts 注册、登录、登出
type Accounts struct {
	users     ports.UserDirectory
	passwords ports.PasswordService
	ids       ports.IDGenerator
	tokens    *auth.TokenResolver
	broker    *auth.Broker // 可为空
	now       func() time.Time
}

func NewAccounts(users ports.UserDirectory, passwords ports.PasswordService, ids ports.IDGenerator, tokens *auth.TokenResolver, broker *auth.Broker) *Accounts {
	return &Accounts{users: users, passwords: passwords, ids: ids, tokens: tokens, broker: broker, now: time.Now}
}

// CreateAccount 创建用户并分配唯一用户码
func (a *Accounts) CreateAccount(ctx context.Context, email, password, nickname string) (*entities.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", entities.ErrInvalidArgument, minPasswordLength)
	}
	if _, err := a.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", entities.ErrConflict)
	} else if !errors.Is(err, entities.ErrNotFound) {
		return nil, entities.Transient("lookup email", err)
	}
	code, err := a.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	hash, err := a.passwords.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if strings.TrimSpace(nickname) == "" {
		nickname = strings.SplitN(email, "@", 2)[0]
	}
	u, err := entities.NewUser(a.ids.GenerateUserID(), email, hash, nickname, code, a.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidArgument, err)
	}
	if err := a.users.Create(ctx, u); err != nil {
		return nil, entities.Transient("create user", err)
	}
	logger.L().Info("account.created", zap.String("uid", u.ID), zap.String("code", u.Code))
	return u, nil
}

func (a *Accounts) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := a.ids.GenerateUserCode()
		exists, err := a.users.CodeExists(ctx, code)
		if err != nil {
			return "", entities.Transient("check user code", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique user code", entities.ErrConflict)
}

// SignIn 校验密码并签发会话
func (a *Accounts) SignIn(ctx context.Context, email, password string) (string, *auth.Session, *entities.User, error) {
	u, err := a.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, entities.ErrNotFound) {
		return "", nil, nil, fmt.Errorf("%w: invalid email or password", entities.ErrUnauthenticated)
	}
	if err != nil {
		return "", nil, nil, entities.Transient("lookup user", err)
	}
	if !a.passwords.VerifyPassword(u.PasswordHash, password) {
		return "", nil, nil, fmt.Errorf("%w: invalid email or password", entities.ErrUnauthenticated)
	}
	token, sess, err := a.tokens.Issue(u.ID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("issue token: %w", err)
	}
	a.broker.Publish(auth.Event{Type: auth.SignedIn, UserID: u.ID, TokenID: sess.TokenID})
	return token, sess, u, nil
}

// SignOut 吊销令牌并通知订阅者；已失效的会话直接返回 ErrUnauthenticated
func (a *Accounts) SignOut(ctx context.Context, sess *auth.Session) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	if a.tokens.Revoker != nil && sess.TokenID != "" {
		until := sess.ExpiresAt
		if until.IsZero() {
			until = a.now().Add(24 * time.Hour)
		}
		if err := a.tokens.Revoker.Revoke(ctx, sess.TokenID, until); err != nil {
			return entities.Transient("revoke session", err)
		}
	}
	sess.Revoke()
	a.broker.Publish(auth.Event{Type: auth.SignedOut, UserID: uid, TokenID: sess.TokenID})
	logger.L().Info("account.signed_out", zap.String("uid", uid))
	return nil
}
