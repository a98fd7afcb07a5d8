package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"github.com/spf13/cobra"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	if errors.Is(err, entities.ErrUnauthenticated) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: run `chatctl login` and pass the token with --token or $COMU_TOKEN")
	}
	return err
}

func stamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// 一行一条：时间 发送方: 内容 [标记]
func formatMessage(m *entities.Message) string {
	line := fmt.Sprintf("%s  %s  %s: %s", m.ID, stamp(m.Timestamp), m.SenderID, m.Content)
	if m.Kind != "" && m.Kind != "text" {
		line += fmt.Sprintf(" (%s)", m.Kind)
	}
	if !m.Committed {
		line += " [pending]"
	}
	if m.Edited {
		line += " [edited]"
	}
	return line
}

func printMessages(out io.Writer, jsonMode bool, msgs []*entities.Message) error {
	if jsonMode {
		if msgs == nil {
			msgs = []*entities.Message{}
		}
		return writeJSON(out, msgs)
	}
	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages")
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintln(out, formatMessage(m))
	}
	return nil
}
