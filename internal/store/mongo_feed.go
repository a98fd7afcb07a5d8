package store

import (
	"context"
	"sync"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoChangeFeed 基于 change stream 的实时订阅。
// 先打开 change stream 再做初始查询，保证两者之间的写入不会丢失；
// 每次变更后推送完整匹配集合。
type MongoChangeFeed struct {
	DB *mongo.Database
	// RetryDelay change stream 中断后的重连间隔
	RetryDelay time.Duration
}

var _ ports.ChangeFeed = (*MongoChangeFeed)(nil)

func NewMongoChangeFeed(db *mongo.Database) *MongoChangeFeed {
	return &MongoChangeFeed{DB: db, RetryDelay: time.Second}
}

type changeEvent struct {
	OperationType string   `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

// streamSub 一个订阅的后台 goroutine 与其取消句柄
type streamSub struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *streamSub) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// watchSet 维护某个过滤条件下的文档集合
type watchSet[T any] struct {
	coll    *mongo.Collection
	match   bson.D // 作用于文档字段
	decode  func(raw bson.Raw) (string, T, error)
	emit    func(items map[string]T, changes []ports.Change)
	retry   time.Duration
	logName string
}

func (w *watchSet[T]) run(ctx context.Context, ready chan<- error) {
	var once sync.Once
	signal := func(err error) { once.Do(func() { ready <- err }) }
	items := map[string]T{}
	first := true
	for {
		loaded, err := w.session(ctx, items, first, signal)
		if first && !loaded {
			// 首次加载失败直接返回给订阅方
			signal(err)
			return
		}
		first = false
		if ctx.Err() != nil {
			return
		}
		logger.L().Warn("feed.stream interrupted, reconnecting", zap.String("feed", w.logName), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry):
		}
	}
}

// session 打开 change stream、重新加载集合并推送，之后逐条处理变更
func (w *watchSet[T]) session(ctx context.Context, items map[string]T, first bool, signal func(error)) (bool, error) {
	fieldMatch := bson.D{}
	for _, e := range w.match {
		fieldMatch = append(fieldMatch, bson.E{Key: "fullDocument." + e.Key, Value: e.Value})
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			fieldMatch,
			bson.D{{Key: "operationType", Value: "delete"}},
		}}}}},
	}
	cs, err := w.coll.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return false, err
	}
	defer cs.Close(context.Background())

	cursor, err := w.coll.Find(ctx, w.match)
	if err != nil {
		return false, err
	}
	fresh := map[string]T{}
	for cursor.Next(ctx) {
		id, item, err := w.decode(cursor.Current)
		if err != nil {
			_ = cursor.Close(ctx)
			return false, err
		}
		fresh[id] = item
	}
	if err := cursor.Err(); err != nil {
		_ = cursor.Close(ctx)
		return false, err
	}
	_ = cursor.Close(ctx)

	var changes []ports.Change
	for id := range fresh {
		if _, ok := items[id]; ok {
			changes = append(changes, ports.Change{Type: ports.ChangeModified, ID: id})
		} else {
			changes = append(changes, ports.Change{Type: ports.ChangeAdded, ID: id})
		}
	}
	for id := range items {
		if _, ok := fresh[id]; !ok {
			changes = append(changes, ports.Change{Type: ports.ChangeRemoved, ID: id})
			delete(items, id)
		}
	}
	for id, item := range fresh {
		items[id] = item
	}
	signal(nil)
	if first || len(changes) > 0 {
		w.emit(items, changes)
	}

	for cs.Next(ctx) {
		var evt changeEvent
		if err := cs.Decode(&evt); err != nil {
			return true, err
		}
		id := evt.DocumentKey.ID
		var change ports.Change
		switch {
		case evt.OperationType == "delete" || len(evt.FullDocument) == 0:
			if _, ok := items[id]; !ok {
				continue
			}
			delete(items, id)
			change = ports.Change{Type: ports.ChangeRemoved, ID: id}
		default:
			_, item, err := w.decode(evt.FullDocument)
			if err != nil {
				return true, err
			}
			change = ports.Change{Type: ports.ChangeModified, ID: id}
			if _, ok := items[id]; !ok {
				change.Type = ports.ChangeAdded
			}
			items[id] = item
		}
		w.emit(items, []ports.Change{change})
	}
	return true, cs.Err()
}

func start[T any](ctx context.Context, w *watchSet[T]) (ports.Subscription, error) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &streamSub{cancel: cancel, done: make(chan struct{})}
	ready := make(chan error, 1)
	go func() {
		defer close(sub.done)
		w.run(ctx, ready)
	}()
	if err := <-ready; err != nil {
		_ = sub.Close()
		return nil, err
	}
	return sub, nil
}

// SubscribeMessages 订阅 sender_id 或 receiver_id 等于 userID 的消息
func (f *MongoChangeFeed) SubscribeMessages(ctx context.Context, field ports.MessageField, userID string, fn func(ports.MessageSnapshot)) (ports.Subscription, error) {
	w := &watchSet[*entities.Message]{
		coll:    f.DB.Collection("messages"),
		match:   bson.D{{Key: fieldKey(field), Value: userID}},
		retry:   f.RetryDelay,
		logName: "messages/" + string(field),
		decode: func(raw bson.Raw) (string, *entities.Message, error) {
			var doc mongoMessage
			if err := bson.Unmarshal(raw, &doc); err != nil {
				return "", nil, err
			}
			return doc.ID, doc.toEntity(), nil
		},
		emit: func(items map[string]*entities.Message, changes []ports.Change) {
			msgs := make([]*entities.Message, 0, len(items))
			for _, m := range items {
				msgs = append(msgs, m.Clone())
			}
			entities.SortMessages(msgs)
			fn(ports.MessageSnapshot{Messages: msgs, Changes: changes})
		},
	}
	return start(ctx, w)
}

// SubscribeConversations 订阅 participants 包含 userID 的会话
func (f *MongoChangeFeed) SubscribeConversations(ctx context.Context, userID string, fn func(ports.ConversationSnapshot)) (ports.Subscription, error) {
	w := &watchSet[*entities.Conversation]{
		coll:    f.DB.Collection("conversations"),
		match:   bson.D{{Key: "participants", Value: userID}},
		retry:   f.RetryDelay,
		logName: "conversations",
		decode: func(raw bson.Raw) (string, *entities.Conversation, error) {
			var doc mongoConversation
			if err := bson.Unmarshal(raw, &doc); err != nil {
				return "", nil, err
			}
			return doc.ID, doc.toEntity(), nil
		},
		emit: func(items map[string]*entities.Conversation, changes []ports.Change) {
			convs := make([]*entities.Conversation, 0, len(items))
			for _, c := range items {
				convs = append(convs, c.Clone())
			}
			entities.SortByActivity(convs)
			fn(ports.ConversationSnapshot{Conversations: convs, Changes: changes})
		},
	}
	return start(ctx, w)
}
