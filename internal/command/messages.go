package command

import (
	"fmt"
	"strings"

	"github.com/GabrielFerreiraTelles/comu/internal/application/usecases"
	"github.com/GabrielFerreiraTelles/comu/internal/models"
	apphttp "github.com/GabrielFerreiraTelles/comu/internal/presentation/http"

	"github.com/spf13/cobra"
)

// NewLoginCmd 登录并打印令牌
func NewLoginCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in and print a session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			token, sess, u, err := ctx.App.Accounts.SignIn(cmd.Context(), args[0], args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), models.SessionResponse{Token: token, ExpiresAt: sess.ExpiresAt.UnixMilli(), User: u})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

// NewSendCmd 写入待发送队列，离线也能成功
func NewSendCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <receiverId> <message...>",
		Short: "Queue a message for delivery",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			kind, _ := cmd.Flags().GetString("kind")
			replyTo, _ := cmd.Flags().GetString("reply-to")
			m, err := ctx.App.Outbox.Compose(cmd.Context(), ctx.Session, usecases.ComposeRequest{
				ReceiverID: args[0],
				Kind:       kind,
				Content:    strings.Join(args[1:], " "),
				ReplyToID:  replyTo,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", m.ID)
			return nil
		},
	}
	cmd.Flags().String("kind", "text", "content kind (text, image, video, audio, gif)")
	cmd.Flags().String("reply-to", "", "message id being replied to")
	return cmd
}

func NewPendingCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List messages waiting for delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			uid, err := ctx.Session.Principal()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			msgs, err := ctx.App.Queue.ListBySender(cmd.Context(), uid)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printMessages(cmd.OutOrStdout(), ctx.JSONMode, msgs)
		},
	}
}

// NewFlushCmd 冲刷待发送队列；有逐条失败时以错误退出
func NewFlushCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Deliver queued messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			report, err := ctx.App.Pump.Drain(cmd.Context(), ctx.Session)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			out := models.FromReport(report, apphttp.ErrorCode)
			if ctx.JSONMode {
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Delivered %d, failed %d, already delivered %d\n",
					out.SuccessCount, out.FailureCount, out.AlreadyCommitted)
				for _, e := range out.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s): %s\n", e.MessageID, e.Code, e.Error)
				}
			}
			if out.FailureCount > 0 {
				return fmt.Errorf("%d message(s) still pending", out.FailureCount)
			}
			return nil
		},
	}
}

func NewHistoryCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "history <conversationId>",
		Short: "Show a conversation, pending messages included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			msgs, err := ctx.App.View.Conversation(cmd.Context(), ctx.Session, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printMessages(cmd.OutOrStdout(), ctx.JSONMode, msgs)
		},
	}
}

func NewEditCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <msgid> <message...>",
		Short: "Edit a message you sent",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			m, err := ctx.App.Editor.Edit(cmd.Context(), ctx.Session, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatMessage(m))
			return nil
		},
	}
}

func NewDeleteCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <msgid>",
		Short: "Delete a message you sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, open, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			if err := ctx.App.Editor.Delete(cmd.Context(), ctx.Session, args[0]); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
