package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/bootstrap"
	"github.com/GabrielFerreiraTelles/comu/internal/config"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/metrics"
	apphttp "github.com/GabrielFerreiraTelles/comu/internal/presentation/http"
	"github.com/GabrielFerreiraTelles/comu/internal/transport/ws"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.EnableMetrics {
		metrics.Init()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		logger.L().Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.Close()

	r := apphttp.NewRouter(app.Handlers(), apphttp.Options{EnableMetrics: cfg.EnableMetrics, MediaDir: cfg.MediaDir})

	// 实时推送；登出事件关闭对应连接
	wsServer := ws.NewServer(app.Tokens, app.Feed, app.Typing)
	detach := wsServer.Attach(app.Broker)
	defer detach()
	r.GET("/ws", wsServer.Handle)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L().Info("chat server listening", zap.String("addr", cfg.ListenAddr),
			zap.String("documentStore", cfg.DocumentStore), zap.String("pendingStore", cfg.PendingStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.L().Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.L().Info("server stopped")
}
