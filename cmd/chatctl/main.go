package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/GabrielFerreiraTelles/comu/internal/command"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
)

func main() {
	// 命令行只输出警告以上，避免干扰结果
	if err := logger.Init("warn", "console"); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := command.NewRootCmd(nil).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
