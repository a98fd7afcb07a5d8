package memstore

import (
	"context"
	"errors"
	"strings"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"
)

// Users 实现 ports.UserDirectory
type Users struct{ s *Store }

var _ ports.UserDirectory = (*Users)(nil)

func cloneUser(u *entities.User) *entities.User {
	cp := *u
	cp.BlockedWords = append([]string{}, u.BlockedWords...)
	return &cp
}

func (r *Users) Create(_ context.Context, u *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok {
		return entities.ErrConflict
	}
	for _, cur := range r.s.users {
		if strings.EqualFold(cur.Email, u.Email) || cur.Code == u.Code {
			return entities.ErrConflict
		}
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *Users) find(match func(u *entities.User) bool) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, entities.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id string) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return u.ID == id })
}

func (r *Users) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *Users) GetByCode(_ context.Context, code string) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return u.Code == strings.ToUpper(code) })
}

func (r *Users) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByCode(ctx, code)
	if errors.Is(err, entities.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *Users) UpdateBlockedWords(_ context.Context, id string, words []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.BlockedWords = append([]string{}, words...)
	return nil
}

// Blocks 实现 ports.BlockList
type Blocks struct{ s *Store }

var _ ports.BlockList = (*Blocks)(nil)

func (r *Blocks) Block(_ context.Context, b *entities.BlockedUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *b
	r.s.blocks[entities.BlockKey(b.UserID, b.BlockedUserID)] = &cp
	return nil
}

func (r *Blocks) Unblock(_ context.Context, userID, blockedID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.blocks, entities.BlockKey(userID, blockedID))
	return nil
}

func (r *Blocks) IsBlocked(_ context.Context, userID, otherID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.blocks[entities.BlockKey(userID, otherID)]
	return ok, nil
}

func (r *Blocks) List(_ context.Context, userID string) ([]*entities.BlockedUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.BlockedUser
	for _, b := range r.s.blocks {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Attempts 实现 ports.AttemptStore
type Attempts struct{ s *Store }

var _ ports.AttemptStore = (*Attempts)(nil)

func (r *Attempts) Add(_ context.Context, a *entities.BlockedAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	r.s.attempts[a.ID] = &cp
	return nil
}

func (r *Attempts) Get(_ context.Context, id string) (*entities.BlockedAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.attempts[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *Attempts) ListUnresolved(_ context.Context, receiverID string) ([]*entities.BlockedAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.BlockedAttempt
	for _, a := range r.s.attempts {
		if a.ReceiverID == receiverID && !a.Action.IsResolved() {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *Attempts) SetAction(_ context.Context, id string, action string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attempts[id]
	if !ok {
		return entities.ErrNotFound
	}
	a.Action = valueobjects.AttemptAction(action)
	return nil
}
