package store

import (
	"context"
	"errors"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationStore 会话存储（MongoDB conversations 集合）
type ConversationStore struct {
	DB *mongo.Database
}

var _ ports.ConversationStore = (*ConversationStore)(nil)

func NewConversationStore(db *mongo.Database) *ConversationStore {
	cs := &ConversationStore{DB: db}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = cs.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}, {Key: "last_activity", Value: -1}},
		Options: options.Index().SetName("idx_participant_activity"),
	})
	return cs
}

type mongoConversation struct {
	ID             string        `bson:"_id"`
	Participants   []string      `bson:"participants"`
	LastMessage    *mongoMessage `bson:"last_message,omitempty"`
	LastActivity   int64         `bson:"last_activity"`
	PinnedMessages []string      `bson:"pinned_messages"`
}

func (d *mongoConversation) toEntity() *entities.Conversation {
	c := &entities.Conversation{
		ID:             d.ID,
		Participants:   append([]string{}, d.Participants...),
		LastActivity:   d.LastActivity,
		PinnedMessages: append([]string{}, d.PinnedMessages...),
		TypingUsers:    []string{},
	}
	if d.LastMessage != nil {
		c.LastMessage = d.LastMessage.toEntity()
	}
	return c
}

func (s *ConversationStore) collection() *mongo.Collection {
	return s.DB.Collection("conversations")
}

func (s *ConversationStore) messages() *mongo.Collection {
	return s.DB.Collection("messages")
}

func (s *ConversationStore) Get(ctx context.Context, id string) (*entities.Conversation, error) {
	var doc mongoConversation
	err := s.collection().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

// Upsert 不存在则创建；存在只补全参与者，快照与置顶保持不变
func (s *ConversationStore) Upsert(ctx context.Context, c *entities.Conversation) error {
	update := bson.D{
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "last_activity", Value: c.LastActivity},
			{Key: "pinned_messages", Value: []string{}},
		}},
		{Key: "$addToSet", Value: bson.D{
			{Key: "participants", Value: bson.D{{Key: "$each", Value: c.Participants}}},
		}},
	}
	_, err := s.collection().UpdateOne(ctx, bson.D{{Key: "_id", Value: c.ID}}, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// 并发创建，另一方已插入
		return nil
	}
	return err
}

func (s *ConversationStore) ListByParticipant(ctx context.Context, userID string) ([]*entities.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}})
	cursor, err := s.collection().Find(ctx, bson.D{{Key: "participants", Value: userID}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*entities.Conversation
	for cursor.Next(ctx) {
		var doc mongoConversation
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	return out, cursor.Err()
}

// UpdateLastMessage 快照整体替换，活跃时间只增不减
func (s *ConversationStore) UpdateLastMessage(ctx context.Context, convID string, last *entities.Message, lastActivity int64) error {
	update := bson.D{{Key: "$max", Value: bson.D{{Key: "last_activity", Value: lastActivity}}}}
	if last != nil {
		update = append(update, bson.E{Key: "$set", Value: bson.D{{Key: "last_message", Value: toMongoMessage(last)}}})
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "last_message", Value: ""}}})
	}
	res, err := s.collection().UpdateOne(ctx, bson.D{{Key: "_id", Value: convID}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return entities.ErrNotFound
	}
	return nil
}

// Delete 只删会话文档，消息保留
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	_, err := s.collection().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

// SetPinned 事务内同时更新会话置顶列表与消息 pinned 标志
func (s *ConversationStore) SetPinned(ctx context.Context, convID, msgID string, pinned bool) error {
	op := "$pull"
	if pinned {
		op = "$addToSet"
	}
	return withTransaction(ctx, s.DB.Client(), func(sc mongo.SessionContext) error {
		res, err := s.collection().UpdateOne(sc, bson.D{{Key: "_id", Value: convID}},
			bson.D{{Key: op, Value: bson.D{{Key: "pinned_messages", Value: msgID}}}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return entities.ErrNotFound
		}
		_, err = s.messages().UpdateOne(sc, bson.D{{Key: "_id", Value: msgID}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "pinned", Value: pinned}}}})
		return err
	})
}
