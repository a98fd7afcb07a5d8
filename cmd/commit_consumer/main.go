package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/GabrielFerreiraTelles/comu/internal/cache"
	"github.com/GabrielFerreiraTelles/comu/internal/config"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/mq"

	"go.uber.org/zap"
)

// 消费消息提交事件，为接收方累加未读数
func main() {
	cfg := config.Load()
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.KafkaBrokers == "" {
		logger.L().Fatal("COMU_KAFKA_BROKERS 未配置")
	}
	if cfg.RedisAddr == "" {
		logger.L().Fatal("COMU_REDIS_ADDR 未配置")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rc := cache.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rc.Close()
	if err := cache.Ping(ctx, rc); err != nil {
		logger.L().Fatal("redis unreachable", zap.Error(err))
	}

	group, err := mq.NewConsumerGroup(cfg.KafkaBrokers, cfg.KafkaConsumerGroup)
	if err != nil {
		logger.L().Fatal("consumer group", zap.Error(err))
	}
	defer group.Close()

	logger.L().Info("commit consumer started",
		zap.String("topic", cfg.KafkaCommitTopic), zap.String("group", cfg.KafkaConsumerGroup))
	mq.Consume(ctx, group, cfg.KafkaCommitTopic, &mq.CommitConsumer{Unread: cache.NewUnreadCounter(rc)})
	logger.L().Info("commit consumer stopped")
}
