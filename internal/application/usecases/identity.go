package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// IdentityResolver 将会话中的身份映射为稳定的用户记录，是“我是谁”的唯一来源
type IdentityResolver struct {
	users ports.UserDirectory
}

func NewIdentityResolver(users ports.UserDirectory) *IdentityResolver {
	return &IdentityResolver{users: users}
}

// Resolve 会话无效或用户已不存在时返回 ErrUnauthenticated
func (r *IdentityResolver) Resolve(ctx context.Context, sess *auth.Session) (*entities.User, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	u, err := r.users.GetByID(ctx, uid)
	if errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s no longer exists", entities.ErrUnauthenticated, uid)
	}
	if err != nil {
		return nil, entities.Transient("resolve identity", err)
	}
	return u, nil
}
