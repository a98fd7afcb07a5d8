package mq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/store/memstore"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092,,b:9092 "))
	assert.Nil(t, SplitBrokers(""))
}

func TestPublishCommitted(t *testing.T) {
	evt := ports.CommitEvent{MessageID: "m1", ConversationID: "alice_bob", SenderID: "alice", ReceiverID: "bob", CommittedAt: 42}
	mp := mocks.NewAsyncProducer(t, nil)
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "alice_bob", string(key))
		raw, err := msg.Value.Encode()
		require.NoError(t, err)
		var got ports.CommitEvent
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, evt, got)
		return nil
	})

	p := WrapProducer(mp, "comu.commits")
	require.NoError(t, p.PublishCommitted(context.Background(), evt))
	require.NoError(t, p.Close())
}

func TestCommitConsumerHandle(t *testing.T) {
	unread := memstore.NewUnread()
	h := &CommitConsumer{Unread: unread}
	ctx := context.Background()

	raw, _ := json.Marshal(ports.CommitEvent{MessageID: "m1", ConversationID: "alice_bob", ReceiverID: "bob"})
	require.NoError(t, h.Handle(ctx, raw))
	require.NoError(t, h.Handle(ctx, raw))
	assert.Error(t, h.Handle(ctx, []byte("{")))

	counts, err := unread.Counts(ctx, "bob", []string{"alice_bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["alice_bob"])
}

func TestNilProducerIsNoop(t *testing.T) {
	var p *KafkaProducer
	assert.NoError(t, p.Publish(context.Background(), nil, nil))
	assert.NoError(t, p.Close())
}
