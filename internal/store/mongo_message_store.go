package store

import (
	"context"
	"errors"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMessageStore 基于 MongoDB 的持久消息库。
// - 文档 _id 即消息 ID，upsert + $setOnInsert 实现“不存在才创建”
// - sender_id / receiver_id / conversation_id 建索引，对应三种等值查询
// - 已读批量在事务内完成
type MongoMessageStore struct {
	DB *mongo.Database
}

var _ ports.MessageStore = (*MongoMessageStore)(nil)

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	ms := &MongoMessageStore{DB: db}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = ms.collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}}, Options: options.Index().SetName("idx_sender")},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}}, Options: options.Index().SetName("idx_receiver")},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}}, Options: options.Index().SetName("idx_conv_ts")},
	})
	return ms
}

// mongoMessage 为存储层内部结构，与 entities.Message 一一映射
type mongoMessage struct {
	ID             string          `bson:"_id"`
	ConversationID string          `bson:"conversation_id"`
	SenderID       string          `bson:"sender_id"`
	ReceiverID     string          `bson:"receiver_id"`
	Kind           string          `bson:"kind"`
	Content        string          `bson:"content"`
	Timestamp      int64           `bson:"timestamp"`
	Committed      bool            `bson:"committed"`
	CommittedAt    int64           `bson:"committed_at,omitempty"`
	Edited         bool            `bson:"edited,omitempty"`
	EditedAt       int64           `bson:"edited_at,omitempty"`
	ReplyToID      string          `bson:"reply_to_id,omitempty"`
	Reactions      []mongoReaction `bson:"reactions"`
	ReadBy         []string        `bson:"read_by"`
	ReadAt         int64           `bson:"read_at,omitempty"`
	Pinned         bool            `bson:"pinned,omitempty"`
}

type mongoReaction struct {
	Emoji     string `bson:"emoji"`
	UserID    string `bson:"user_id"`
	Timestamp int64  `bson:"timestamp"`
}

func toMongoReactions(rs []entities.Reaction) []mongoReaction {
	out := make([]mongoReaction, 0, len(rs))
	for _, r := range rs {
		out = append(out, mongoReaction{Emoji: r.Emoji, UserID: r.UserID, Timestamp: r.Timestamp})
	}
	return out
}

func toMongoMessage(m *entities.Message) *mongoMessage {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return &mongoMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Kind:           m.Kind.String(),
		Content:        m.Content,
		Timestamp:      m.Timestamp,
		Committed:      m.Committed,
		CommittedAt:    m.CommittedAt,
		Edited:         m.Edited,
		EditedAt:       m.EditedAt,
		ReplyToID:      m.ReplyToID,
		Reactions:      toMongoReactions(m.Reactions),
		ReadBy:         readBy,
		ReadAt:         m.ReadAt,
		Pinned:         m.Pinned,
	}
}

func (d *mongoMessage) toEntity() *entities.Message {
	m := &entities.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		ReceiverID:     d.ReceiverID,
		Kind:           valueobjects.ContentKind(d.Kind),
		Content:        d.Content,
		Timestamp:      d.Timestamp,
		Committed:      d.Committed,
		CommittedAt:    d.CommittedAt,
		Edited:         d.Edited,
		EditedAt:       d.EditedAt,
		ReplyToID:      d.ReplyToID,
		Reactions:      make([]entities.Reaction, 0, len(d.Reactions)),
		ReadBy:         append([]string{}, d.ReadBy...),
		ReadAt:         d.ReadAt,
		Pinned:         d.Pinned,
	}
	for _, r := range d.Reactions {
		m.Reactions = append(m.Reactions, entities.Reaction{Emoji: r.Emoji, UserID: r.UserID, Timestamp: r.Timestamp})
	}
	m.Normalize()
	return m
}

func (s *MongoMessageStore) collection() *mongo.Collection {
	return s.DB.Collection("messages")
}

// CreateIfAbsent 幂等写入（upsert + $setOnInsert），并发重复写入视为已存在
func (s *MongoMessageStore) CreateIfAbsent(ctx context.Context, m *entities.Message) (bool, error) {
	filter := bson.D{{Key: "_id", Value: m.ID}}
	update := bson.D{{Key: "$setOnInsert", Value: toMongoMessage(m)}}
	res, err := s.collection().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

func (s *MongoMessageStore) Get(ctx context.Context, id string) (*entities.Message, error) {
	var doc mongoMessage
	err := s.collection().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

func fieldKey(field ports.MessageField) string {
	if field == ports.FieldReceiver {
		return "receiver_id"
	}
	return "sender_id"
}

func (s *MongoMessageStore) ListByField(ctx context.Context, field ports.MessageField, userID string) ([]*entities.Message, error) {
	return s.find(ctx, bson.D{{Key: fieldKey(field), Value: userID}})
}

func (s *MongoMessageStore) ListByConversation(ctx context.Context, convID string) ([]*entities.Message, error) {
	return s.find(ctx, bson.D{{Key: "conversation_id", Value: convID}, {Key: "committed", Value: true}})
}

func (s *MongoMessageStore) find(ctx context.Context, filter bson.D) ([]*entities.Message, error) {
	cursor, err := s.collection().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var result []*entities.Message
	for cursor.Next(ctx) {
		var doc mongoMessage
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, doc.toEntity())
	}
	return result, cursor.Err()
}

// set 更新单条文档，未命中返回 ErrNotFound
func (s *MongoMessageStore) set(ctx context.Context, id string, fields bson.D) error {
	res, err := s.collection().UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return entities.ErrNotFound
	}
	return nil
}

// MarkCommitted 只改 committed / committed_at
func (s *MongoMessageStore) MarkCommitted(ctx context.Context, id string, committedAt int64) error {
	return s.set(ctx, id, bson.D{{Key: "committed", Value: true}, {Key: "committed_at", Value: committedAt}})
}

func (s *MongoMessageStore) UpdateContent(ctx context.Context, id, content string, editedAt int64) error {
	return s.set(ctx, id, bson.D{
		{Key: "content", Value: content},
		{Key: "edited", Value: true},
		{Key: "edited_at", Value: editedAt},
	})
}

func (s *MongoMessageStore) SetReactions(ctx context.Context, id string, reactions []entities.Reaction) error {
	return s.set(ctx, id, bson.D{{Key: "reactions", Value: toMongoReactions(reactions)}})
}

// Delete 硬删除，不存在时无害
func (s *MongoMessageStore) Delete(ctx context.Context, id string) error {
	_, err := s.collection().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

// MarkRead 在事务内批量标记已读
func (s *MongoMessageStore) MarkRead(ctx context.Context, ids []string, readerID string, readAt int64) error {
	if len(ids) == 0 {
		return nil
	}
	return withTransaction(ctx, s.DB.Client(), func(sc mongo.SessionContext) error {
		filter := bson.D{
			{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
			{Key: "read_by", Value: bson.D{{Key: "$ne", Value: readerID}}},
		}
		update := bson.D{
			{Key: "$addToSet", Value: bson.D{{Key: "read_by", Value: readerID}}},
			{Key: "$set", Value: bson.D{{Key: "read_at", Value: readAt}}},
		}
		_, err := s.collection().UpdateMany(sc, filter, update)
		return err
	})
}

// withTransaction 在一个会话事务中执行 fn（需要副本集）
func withTransaction(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
