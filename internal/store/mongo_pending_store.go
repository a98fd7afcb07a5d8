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

// MongoPendingStore pending_messages 集合，按 sender_id 分区
type MongoPendingStore struct {
	DB *mongo.Database
}

var _ ports.PendingStore = (*MongoPendingStore)(nil)

func NewMongoPendingStore(db *mongo.Database) *MongoPendingStore {
	ps := &MongoPendingStore{DB: db}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = ps.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sender_id", Value: 1}},
		Options: options.Index().SetName("idx_sender"),
	})
	return ps
}

func (s *MongoPendingStore) collection() *mongo.Collection {
	return s.DB.Collection("pending_messages")
}

func (s *MongoPendingStore) Put(ctx context.Context, m *entities.Message) error {
	_, err := s.collection().ReplaceOne(ctx, bson.D{{Key: "_id", Value: m.ID}}, toMongoMessage(m), options.Replace().SetUpsert(true))
	return err
}

func (s *MongoPendingStore) Get(ctx context.Context, id string) (*entities.Message, error) {
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

func (s *MongoPendingStore) ListBySender(ctx context.Context, senderID string) ([]*entities.Message, error) {
	cursor, err := s.collection().Find(ctx, bson.D{{Key: "sender_id", Value: senderID}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*entities.Message
	for cursor.Next(ctx) {
		var doc mongoMessage
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	return out, cursor.Err()
}

func (s *MongoPendingStore) Remove(ctx context.Context, id string) error {
	_, err := s.collection().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

func (s *MongoPendingStore) ClearAll(ctx context.Context, senderID string) error {
	_, err := s.collection().DeleteMany(ctx, bson.D{{Key: "sender_id", Value: senderID}})
	return err
}
