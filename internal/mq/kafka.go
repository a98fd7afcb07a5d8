// Package mq Kafka 上的消息提交事件：冲刷成功后生产，消费端累加接收方未读。
package mq

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// SplitBrokers 解析逗号分隔的 broker 列表
func SplitBrokers(csv string) []string {
	var out []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// KafkaProducer 提交事件生产者，按会话 ID 分区以保持会话内顺序
type KafkaProducer struct {
	Async sarama.AsyncProducer
	Topic string
}

var _ ports.EventPublisher = (*KafkaProducer)(nil)

func NewKafkaProducer(brokersCSV, topic string) (*KafkaProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	p, err := sarama.NewAsyncProducer(SplitBrokers(brokersCSV), cfg)
	if err != nil {
		return nil, err
	}
	return WrapProducer(p, topic), nil
}

// WrapProducer 包装已有生产者并开始消费其错误通道
func WrapProducer(p sarama.AsyncProducer, topic string) *KafkaProducer {
	go func() {
		for perr := range p.Errors() {
			logger.L().Warn("kafka produce failed", zap.String("topic", topic), zap.Error(perr.Err))
		}
	}()
	return &KafkaProducer{Async: p, Topic: topic}
}

func (p *KafkaProducer) Publish(ctx context.Context, value, key []byte) error {
	if p == nil || p.Async == nil {
		return nil
	}
	msg := &sarama.ProducerMessage{Topic: p.Topic, Key: sarama.ByteEncoder(key), Value: sarama.ByteEncoder(value)}
	select {
	case p.Async.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishCommitted 投递一条提交事件
func (p *KafkaProducer) PublishCommitted(ctx context.Context, evt ports.CommitEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.Publish(ctx, value, []byte(evt.ConversationID))
}

func (p *KafkaProducer) Close() error {
	if p == nil || p.Async == nil {
		return nil
	}
	return p.Async.Close()
}

// CommitConsumer 消费提交事件并累加接收方未读计数
type CommitConsumer struct {
	Unread ports.UnreadCounter
}

var _ sarama.ConsumerGroupHandler = (*CommitConsumer)(nil)

func (h *CommitConsumer) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *CommitConsumer) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *CommitConsumer) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.Handle(sess.Context(), msg.Value); err != nil {
			// 计数失败不重试，未读数只是提示
			logger.L().Warn("commit event dropped", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

// Handle 处理单条事件
func (h *CommitConsumer) Handle(ctx context.Context, value []byte) error {
	var evt ports.CommitEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return err
	}
	if evt.ReceiverID == "" || evt.ConversationID == "" {
		return nil
	}
	return h.Unread.Increment(ctx, evt.ReceiverID, evt.ConversationID)
}

// NewConsumerGroup 创建消费组客户端
func NewConsumerGroup(brokersCSV, group string) (sarama.ConsumerGroup, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	return sarama.NewConsumerGroup(SplitBrokers(brokersCSV), group, cfg)
}

// Consume 循环消费直到 ctx 结束
func Consume(ctx context.Context, group sarama.ConsumerGroup, topic string, h sarama.ConsumerGroupHandler) {
	for {
		if err := group.Consume(ctx, []string{topic}, h); err != nil {
			logger.L().Error("consume error", zap.String("topic", topic), zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}
