// Package bootstrap 按配置装配存储、缓存、消息队列与用例，供服务端与 chatctl 共用。
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/application/usecases"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/cache"
	"github.com/GabrielFerreiraTelles/comu/internal/config"
	"github.com/GabrielFerreiraTelles/comu/internal/infrastructure/adapters/external"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/mq"
	apphttp "github.com/GabrielFerreiraTelles/comu/internal/presentation/http"
	"github.com/GabrielFerreiraTelles/comu/internal/ratelimit"
	"github.com/GabrielFerreiraTelles/comu/internal/services"
	"github.com/GabrielFerreiraTelles/comu/internal/store"
	"github.com/GabrielFerreiraTelles/comu/internal/store/memstore"
	"github.com/GabrielFerreiraTelles/comu/internal/store/mongostore"
	"github.com/GabrielFerreiraTelles/comu/internal/store/pebblequeue"
	"github.com/GabrielFerreiraTelles/comu/internal/store/sqlstore"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// App 装配好的进程级依赖
type App struct {
	Config *config.Config
	Tokens *auth.TokenResolver
	Broker *auth.Broker
	Redis  *redis.Client // 未配置 Redis 时为空

	Accounts      *usecases.Accounts
	Identity      *usecases.IdentityResolver
	Queue         *usecases.PendingQueue
	Outbox        *usecases.Outbox
	View          *usecases.MessageView
	Pump          *usecases.DeliveryPump
	Editor        *usecases.MessageEditor
	Feed          *usecases.LiveFeed
	Conversations *usecases.Conversations
	Receipts      *usecases.Receipts
	Pins          *usecases.Pins
	Reactions     *usecases.Reactions
	Typing        *usecases.Typing
	Moderation    *usecases.Moderation
	Media         *usecases.Media

	limiter apphttp.Limiter
	closers []func() error
}

// 文档库端口组
type documents struct {
	messages ports.MessageStore
	convs    ports.ConversationStore
	feed     ports.ChangeFeed
	pending  ports.PendingStore
}

// 用户库端口组
type directory struct {
	users    ports.UserDirectory
	blocks   ports.BlockList
	attempts ports.AttemptStore
}

// 短期状态端口组
type ephemeral struct {
	typing  ports.TypingTracker
	unread  ports.UnreadCounter
	revoker ports.SessionRevoker
	events  ports.EventPublisher
}

// Build 按配置装配。documentStore=memory 时整个进程只用内存存储（演示/测试）。
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Broker: auth.NewBroker()}
	mem := memstore.New()

	docs, err := a.openDocuments(ctx, cfg, mem)
	if err != nil {
		a.Close()
		return nil, err
	}
	dir, err := a.openDirectory(ctx, cfg, mem)
	if err != nil {
		a.Close()
		return nil, err
	}
	eph, err := a.openEphemeral(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Tokens = &auth.TokenResolver{Secret: cfg.JWTSecret, TTL: cfg.SessionTTL, Revoker: eph.revoker}
	a.Queue = usecases.NewPendingQueue(docs.pending)
	a.Moderation = usecases.NewModeration(dir.users, dir.blocks, dir.attempts)
	a.Accounts = usecases.NewAccounts(dir.users, external.NewPasswordServiceAdapter(), external.NewIDGeneratorAdapter(), a.Tokens, a.Broker)
	a.Identity = usecases.NewIdentityResolver(dir.users)
	a.Outbox = usecases.NewOutbox(a.Queue, a.Moderation)
	a.View = usecases.NewMessageView(docs.messages, a.Queue)
	a.Pump = usecases.NewDeliveryPump(a.Queue, docs.messages, docs.convs, eph.events)
	a.Editor = usecases.NewMessageEditor(a.Queue, docs.messages, docs.convs).WithWindow(cfg.EditWindow)
	a.Feed = usecases.NewLiveFeed(docs.feed, a.Queue, eph.typing)
	a.Conversations = usecases.NewConversations(docs.convs, dir.users, eph.typing, eph.unread)
	a.Receipts = usecases.NewReceipts(docs.messages, docs.convs, eph.unread)
	a.Pins = usecases.NewPins(docs.convs, docs.messages)
	a.Reactions = usecases.NewReactions(docs.messages)
	a.Typing = usecases.NewTyping(eph.typing, docs.convs)
	maxSize := int64(cfg.MediaMaxSizeMB) * 1024 * 1024
	a.Media = usecases.NewMedia(services.NewFileService(cfg.MediaDir, cfg.MediaBaseURL, maxSize), maxSize)
	return a, nil
}

func (a *App) openDocuments(ctx context.Context, cfg *config.Config, mem *memstore.Store) (*documents, error) {
	docs := &documents{}
	var db *mongo.Database
	switch cfg.DocumentStore {
	case "memory":
		docs.messages, docs.convs, docs.feed = mem.Messages(), mem.Conversations(), mem.Feed()
	case "mongodb", "":
		var err error
		db, err = mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("mongodb connection failed: %w", err)
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.Client().Disconnect(ctx)
		})
		docs.messages = store.NewMongoMessageStore(db)
		docs.convs = store.NewConversationStore(db)
		docs.feed = store.NewMongoChangeFeed(db)
	default:
		return nil, fmt.Errorf("unknown document store %q", cfg.DocumentStore)
	}

	switch cfg.PendingStore {
	case "memory":
		docs.pending = mem.Pending()
	case "pebble":
		q, err := pebblequeue.Open(cfg.OutboxDir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, q.Close)
		docs.pending = q
	case "mongodb", "":
		if db == nil {
			return nil, errors.New("pendingStore=mongodb requires documentStore=mongodb")
		}
		docs.pending = store.NewMongoPendingStore(db)
	default:
		return nil, fmt.Errorf("unknown pending store %q", cfg.PendingStore)
	}
	return docs, nil
}

func (a *App) openDirectory(ctx context.Context, cfg *config.Config, mem *memstore.Store) (*directory, error) {
	if cfg.DocumentStore == "memory" || cfg.MySQLDSN == "" {
		return &directory{users: mem.Users(), blocks: mem.Blocks(), attempts: mem.Attempts()}, nil
	}
	db, err := sqlstore.Open(cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	if err := ping(ctx, db); err != nil {
		return nil, fmt.Errorf("mysql unreachable: %w", err)
	}
	if err := sqlstore.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("mysql migrate: %w", err)
	}
	return &directory{users: store.NewUserStore(db), blocks: store.NewBlockStore(db), attempts: store.NewAttemptStore(db)}, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func (a *App) openEphemeral(ctx context.Context, cfg *config.Config) (*ephemeral, error) {
	eph := &ephemeral{}
	if cfg.RedisAddr == "" || cfg.DocumentStore == "memory" {
		unread := memstore.NewUnread()
		eph.typing = memstore.NewTyping(cfg.TypingTTL, nil)
		eph.unread, eph.events = unread, unread
		eph.revoker = memstore.NewRevoker()
	} else {
		rc := cache.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		a.closers = append(a.closers, rc.Close)
		if err := cache.Ping(ctx, rc); err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		a.Redis = rc
		unread := cache.NewUnreadCounter(rc)
		eph.typing = cache.NewTypingTracker(rc, cfg.TypingTTL)
		eph.unread, eph.events = unread, unread
		eph.revoker = cache.NewSessionRevoker(rc)
		a.limiter = ratelimit.NewTokenBucketLimiter(rc)
	}

	if cfg.KafkaBrokers != "" {
		p, err := mq.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaCommitTopic)
		if err != nil {
			// Kafka 不可用时退回直接累加未读
			logger.L().Warn("kafka producer unavailable, using direct unread counter", zap.Error(err))
		} else {
			a.closers = append(a.closers, p.Close)
			eph.events = p
		}
	}
	return eph, nil
}

// Handlers HTTP 路由依赖
func (a *App) Handlers() *apphttp.Handlers {
	return &apphttp.Handlers{
		Tokens:        a.Tokens,
		Accounts:      a.Accounts,
		Identity:      a.Identity,
		Queue:         a.Queue,
		Outbox:        a.Outbox,
		View:          a.View,
		Pump:          a.Pump,
		Editor:        a.Editor,
		Conversations: a.Conversations,
		Receipts:      a.Receipts,
		Pins:          a.Pins,
		Reactions:     a.Reactions,
		Typing:        a.Typing,
		Moderation:    a.Moderation,
		Media:         a.Media,
		Limiter:       a.limiter,
		SendQPS:       a.Config.SendQPS,
		SendBurst:     a.Config.SendBurst,
	}
}

// Close 逆序释放连接，可重复调用
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
