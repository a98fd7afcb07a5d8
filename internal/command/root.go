// Package command chatctl 的 cobra 命令：离线写入本地队列、冲刷、查看与实时订阅。
package command

import (
	"context"
	"os"

	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/bootstrap"
	"github.com/GabrielFerreiraTelles/comu/internal/config"

	"github.com/spf13/cobra"
)

const AppName = "chatctl"

// Opener 按配置装配应用，测试可替换为共享的内存实例
type Opener func(ctx context.Context, cfg *config.Config) (*bootstrap.App, error)

// CommandContext 单次命令共享的资源
type CommandContext struct {
	App      *bootstrap.App
	Session  *auth.Session
	JSONMode bool
}

func NewRootCmd(open Opener) *cobra.Command {
	if open == nil {
		open = bootstrap.Build
	}
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "chatctl - offline-first one-to-one chat client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "path to config YAML")
	cmd.PersistentFlags().String("token", "", "session token (default $COMU_TOKEN)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewLoginCmd(open),
		NewSendCmd(open),
		NewPendingCmd(open),
		NewFlushCmd(open),
		NewHistoryCmd(open),
		NewEditCmd(open),
		NewDeleteCmd(open),
		NewWatchCmd(open),
		NewConversationsCmd(open),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command) *config.Config {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// GetContext 装配应用；needSession 时解析 --token
func GetContext(cmd *cobra.Command, open Opener, needSession bool) (*CommandContext, error) {
	jsonMode, _ := cmd.Flags().GetBool("json")
	app, err := open(cmd.Context(), loadConfig(cmd))
	if err != nil {
		return nil, err
	}
	cc := &CommandContext{App: app, JSONMode: jsonMode}
	if !needSession {
		return cc, nil
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("COMU_TOKEN")
	}
	sess, err := app.Tokens.Resolve(cmd.Context(), token)
	if err != nil {
		app.Close()
		return nil, err
	}
	cc.Session = sess
	return cc, nil
}

func (c *CommandContext) Close() { _ = c.App.Close() }
