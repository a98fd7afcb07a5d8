package usecases

import (
	"context"
	"fmt"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Typing 正在输入提示
type Typing struct {
	tracker ports.TypingTracker
	convs   ports.ConversationStore
}

func NewTyping(tracker ports.TypingTracker, convs ports.ConversationStore) *Typing {
	return &Typing{tracker: tracker, convs: convs}
}

// Set 开始/停止输入；条目到期自动消失
func (t *Typing) Set(ctx context.Context, sess *auth.Session, convID string, typing bool) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	conv, err := t.convs.Get(ctx, convID)
	if err != nil {
		return entities.Transient("load conversation", err)
	}
	if !conv.HasParticipant(uid) {
		return fmt.Errorf("%w: not a participant of %s", entities.ErrPermissionDenied, convID)
	}
	return entities.Transient("set typing", t.tracker.SetTyping(ctx, convID, uid, typing))
}

// Users 当前正在输入的用户（不含自己）
func (t *Typing) Users(ctx context.Context, sess *auth.Session, convID string) ([]string, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	all, err := t.tracker.TypingUsers(ctx, convID)
	if err != nil {
		return nil, entities.Transient("typing users", err)
	}
	out := make([]string, 0, len(all))
	for _, u := range all {
		if u != uid {
			out = append(out, u)
		}
	}
	return out, nil
}
