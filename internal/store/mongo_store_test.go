package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"
	"github.com/GabrielFerreiraTelles/comu/internal/store/mongostore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMongoMessageDocumentRoundTrip(t *testing.T) {
	m := entities.NewMessage("a_b", "a", "b", valueobjects.ContentKindImage, "https://cdn/x.png", "r1")
	m.Commit(time.UnixMilli(1_700_000_000_000))
	m.SetReaction(entities.Reaction{Emoji: "👍", UserID: "b", Timestamp: 5})
	m.MarkReadBy("b", time.UnixMilli(1_700_000_000_500))

	raw, err := bson.Marshal(toMongoMessage(m))
	require.NoError(t, err)
	var doc mongoMessage
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, m, doc.toEntity())

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, m.ID, fields["_id"])
	assert.Equal(t, "a", fields["sender_id"])
	assert.Equal(t, "b", fields["receiver_id"])
}

func TestMongoDocumentNormalizesMissingArrays(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "_id", Value: "m1"}, {Key: "sender_id", Value: "a"}})
	require.NoError(t, err)
	var doc mongoMessage
	require.NoError(t, bson.Unmarshal(raw, &doc))
	m := doc.toEntity()
	assert.NotNil(t, m.Reactions)
	assert.NotNil(t, m.ReadBy)
	assert.Equal(t, valueobjects.ContentKindText, m.Kind)
}

// 需要副本集（事务与 change stream），未配置时跳过
func mongoTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("COMU_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("COMU_TEST_MONGO_URI not set")
	}
	db, err := mongostore.Connect(context.Background(), uri)
	require.NoError(t, err)
	db = db.Client().Database("comu_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})
	return db
}

func TestMongoStoresIntegration(t *testing.T) {
	db := mongoTestDB(t)
	ctx := context.Background()
	msgs := NewMongoMessageStore(db)
	convs := NewConversationStore(db)
	pending := NewMongoPendingStore(db)

	conv, err := entities.NewConversation("a", "b", time.Now())
	require.NoError(t, err)
	require.NoError(t, convs.Upsert(ctx, conv))
	require.NoError(t, convs.Upsert(ctx, &entities.Conversation{ID: conv.ID, Participants: conv.Participants}))

	m := entities.NewMessage(conv.ID, "a", "b", valueobjects.ContentKindText, "hi", "")
	require.NoError(t, pending.Put(ctx, m))
	list, err := pending.ListBySender(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 1)

	m.Commit(time.Now())
	created, err := msgs.CreateIfAbsent(ctx, m)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = msgs.CreateIfAbsent(ctx, m)
	require.NoError(t, err)
	assert.False(t, created)

	received, err := msgs.ListByField(ctx, ports.FieldReceiver, "b")
	require.NoError(t, err)
	require.Len(t, received, 1)

	require.NoError(t, convs.UpdateLastMessage(ctx, conv.ID, m, m.CommittedAt))
	require.NoError(t, convs.SetPinned(ctx, conv.ID, m.ID, true))
	got, err := convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, got.PinnedMessages)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, m.ID, got.LastMessage.ID)

	require.NoError(t, msgs.MarkRead(ctx, []string{m.ID}, "b", time.Now().UnixMilli()))
	stored, err := msgs.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, stored.ReadBy)
	assert.True(t, stored.Pinned)

	require.NoError(t, pending.Remove(ctx, m.ID))
	_, err = pending.Get(ctx, m.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.ErrorIs(t, convs.SetPinned(ctx, "missing", m.ID, true), entities.ErrNotFound)
}
