// Package pebblequeue 基于 pebble 的本地持久待发送队列，进程重启后未发送消息仍在。
//
// 键布局：
//
//	pending/s/<senderID>/<messageID> -> 消息 JSON
//	pending/i/<messageID>            -> senderID
package pebblequeue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

const (
	senderPrefix = "pending/s/"
	indexPrefix  = "pending/i/"
)

// Queue 实现 ports.PendingStore
type Queue struct {
	db *pebble.DB
}

var _ ports.PendingStore = (*Queue)(nil)

// Open 打开（或创建）目录下的队列
func Open(dir string) (*Queue, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		logger.L().Error("pebble_open_failed", zap.String("dir", dir), zap.Error(err))
		return nil, err
	}
	logger.L().Info("pending_outbox_opened", zap.String("dir", dir))
	return &Queue{db: db}, nil
}

func (q *Queue) Close() error { return q.db.Close() }

func senderKey(senderID, id string) []byte { return []byte(senderPrefix + senderID + "/" + id) }
func indexKey(id string) []byte            { return []byte(indexPrefix + id) }

func (q *Queue) lookup(key []byte) ([]byte, error) {
	v, closer, err := q.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

// Put 写入或覆盖；发送方变化时同时清理旧分区下的键
func (q *Queue) Put(_ context.Context, m *entities.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal pending: %w", err)
	}
	b := q.db.NewBatch()
	defer b.Close()
	if prev, err := q.lookup(indexKey(m.ID)); err == nil && string(prev) != m.SenderID {
		if err := b.Delete(senderKey(string(prev), m.ID), nil); err != nil {
			return err
		}
	}
	if err := b.Set(senderKey(m.SenderID, m.ID), data, nil); err != nil {
		return err
	}
	if err := b.Set(indexKey(m.ID), []byte(m.SenderID), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (q *Queue) Get(_ context.Context, id string) (*entities.Message, error) {
	sender, err := q.lookup(indexKey(id))
	if err != nil {
		return nil, err
	}
	data, err := q.lookup(senderKey(string(sender), id))
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func decode(data []byte) (*entities.Message, error) {
	m := &entities.Message{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode pending: %w", err)
	}
	m.Normalize()
	return m, nil
}

// 前缀的上界：最后一个字节加一
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}

func (q *Queue) scan(senderID string, fn func(key, value []byte) error) error {
	prefix := []byte(senderPrefix + senderID + "/")
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (q *Queue) ListBySender(_ context.Context, senderID string) ([]*entities.Message, error) {
	var out []*entities.Message
	err := q.scan(senderID, func(_, value []byte) error {
		m, err := decode(value)
		if err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// Remove 幂等
func (q *Queue) Remove(_ context.Context, id string) error {
	sender, err := q.lookup(indexKey(id))
	if errors.Is(err, entities.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Delete(senderKey(string(sender), id), nil); err != nil {
		return err
	}
	if err := b.Delete(indexKey(id), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (q *Queue) ClearAll(_ context.Context, senderID string) error {
	b := q.db.NewBatch()
	defer b.Close()
	prefix := senderPrefix + senderID + "/"
	err := q.scan(senderID, func(key, _ []byte) error {
		id := string(key[len(prefix):])
		if err := b.Delete(append([]byte(nil), key...), nil); err != nil {
			return err
		}
		return b.Delete(indexKey(id), nil)
	})
	if err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}
