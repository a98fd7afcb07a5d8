package pebblequeue

import (
	"context"
	"testing"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, sender string) *entities.Message {
	return &entities.Message{
		ID:             id,
		ConversationID: entities.DeriveConversationID(sender, "bob"),
		SenderID:       sender,
		ReceiverID:     "bob",
		Kind:           valueobjects.ContentKindText,
		Content:        "hi " + id,
		Timestamp:      1000,
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	q, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, q.Put(ctx, msg("m1", "alice")))
	require.NoError(t, q.Put(ctx, msg("m2", "alice")))
	require.NoError(t, q.Put(ctx, msg("m3", "carol")))
	require.NoError(t, q.Close())

	q, err = Open(dir)
	require.NoError(t, err)
	defer q.Close()

	list, err := q.ListBySender(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, m := range list {
		assert.NotNil(t, m.Reactions)
		assert.NotNil(t, m.ReadBy)
	}

	got, err := q.Get(ctx, "m3")
	require.NoError(t, err)
	assert.Equal(t, "carol", got.SenderID)
}

func TestQueueRemoveAndClear(t *testing.T) {
	q, err := Open(t.TempDir())
	require.NoError(t, err)
	defer q.Close()
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, msg("m1", "alice")))
	require.NoError(t, q.Put(ctx, msg("m2", "alice")))
	require.NoError(t, q.Put(ctx, msg("m3", "carol")))

	require.NoError(t, q.Remove(ctx, "m1"))
	require.NoError(t, q.Remove(ctx, "m1"))
	_, err = q.Get(ctx, "m1")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	require.NoError(t, q.ClearAll(ctx, "alice"))
	list, err := q.ListBySender(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = q.Get(ctx, "m2")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	list, err = q.ListBySender(ctx, "carol")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestQueuePutOverwrites(t *testing.T) {
	q, err := Open(t.TempDir())
	require.NoError(t, err)
	defer q.Close()
	ctx := context.Background()

	m := msg("m1", "alice")
	require.NoError(t, q.Put(ctx, m))
	m.Content = "edited"
	m.Edited = true
	require.NoError(t, q.Put(ctx, m))

	list, err := q.ListBySender(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "edited", list[0].Content)
	assert.True(t, list[0].Edited)
}
