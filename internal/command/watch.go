package command

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"github.com/spf13/cobra"
)

// NewWatchCmd 实时打印会话，直到中断或 --count 次推送后退出
func NewWatchCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <conversationId>",
		Short: "Stream a conversation as it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			count, _ := cmd.Flags().GetInt("count")

			updates := make(chan []*entities.Message, 16)
			stop, err := ctx.App.Feed.WatchConversation(cmd.Context(), ctx.Session, args[0], func(msgs []*entities.Message) {
				select {
				case updates <- msgs:
				default:
					// 消费太慢时丢弃中间帧，下一帧仍是完整集合
				}
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sig)

			out := cmd.OutOrStdout()
			for seen := 0; count <= 0 || seen < count; seen++ {
				select {
				case msgs := <-updates:
					if !ctx.JSONMode {
						fmt.Fprintf(out, "--- %d message(s)\n", len(msgs))
					}
					if err := printMessages(out, ctx.JSONMode, msgs); err != nil {
						return err
					}
				case <-sig:
					return nil
				case <-cmd.Context().Done():
					return nil
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("count", 0, "exit after this many updates (0 = until interrupted)")
	return cmd
}

func NewConversationsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			list, err := ctx.App.Conversations.List(cmd.Context(), ctx.Session)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No conversations")
				return nil
			}
			for _, c := range list {
				last := ""
				if c.LastMessage != nil {
					last = c.LastMessage.Content
				}
				fmt.Fprintf(out, "%s  %s  unread=%d  %s\n", c.ID, stamp(c.LastActivity), c.Unread, last)
			}
			return nil
		},
	}
}
