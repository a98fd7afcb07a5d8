package cache

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// UnreadCounter 未读计数：每个用户一个 HASH。
// 同时实现 EventPublisher：未接 Kafka 时提交事件直接在这里累加并通知接收方。
type UnreadCounter struct {
	client *redis.Client
}

var (
	_ ports.UnreadCounter  = (*UnreadCounter)(nil)
	_ ports.EventPublisher = (*UnreadCounter)(nil)
)

func NewUnreadCounter(c *redis.Client) *UnreadCounter { return &UnreadCounter{client: c} }

func (u *UnreadCounter) Increment(ctx context.Context, userID, convID string) error {
	return u.client.HIncrBy(ctx, UnreadKey(userID), convID, 1).Err()
}

func (u *UnreadCounter) Reset(ctx context.Context, userID, convID string) error {
	return u.client.HDel(ctx, UnreadKey(userID), convID).Err()
}

// Counts 缺失的会话计为 0
func (u *UnreadCounter) Counts(ctx context.Context, userID string, convIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(convIDs))
	if len(convIDs) == 0 {
		return out, nil
	}
	vals, err := u.client.HMGet(ctx, UnreadKey(userID), convIDs...).Result()
	if err != nil {
		return nil, err
	}
	for i, id := range convIDs {
		out[id] = 0
		if s, ok := vals[i].(string); ok {
			n, _ := strconv.ParseInt(s, 10, 64)
			out[id] = n
		}
	}
	return out, nil
}

// PublishCommitted 累加接收方未读并在其投递通道上广播事件
func (u *UnreadCounter) PublishCommitted(ctx context.Context, evt ports.CommitEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	pipe := u.client.Pipeline()
	pipe.HIncrBy(ctx, UnreadKey(evt.ReceiverID), evt.ConversationID, 1)
	pipe.Publish(ctx, DeliverChannel(evt.ReceiverID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Warn("unread publish failed", zap.String("msgId", evt.MessageID), zap.Error(err))
		return err
	}
	return nil
}

// SubscribeDeliveries 订阅用户的提交通知，ctx 结束时关闭
func SubscribeDeliveries(ctx context.Context, c *redis.Client, userID string, fn func(ports.CommitEvent)) error {
	sub := c.Subscribe(ctx, DeliverChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return err
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var evt ports.CommitEvent
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					logger.L().Warn("bad delivery payload", zap.Error(err))
					continue
				}
				fn(evt)
			}
		}
	}()
	return nil
}
