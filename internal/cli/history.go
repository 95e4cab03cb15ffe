// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/hirechat/internal/ledger"
	"github.com/jeranaias/hirechat/internal/util"
)

// historyTimeFormat is how message times are shown in listings.
const historyTimeFormat = "2006-01-02 15:04"

type historyOptions struct {
	typ         string
	participant string
	limit       int
	full        bool
	markdown    bool
	asJSON      bool
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List conversations, or show one conversation's messages",
		Example: `  hirechat history
  hirechat history --participant darlene
  hirechat history --type candidate --participant maya-patel --markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(context.WithoutCancel(cmd.Context())); err == nil {
					err = cerr
				}
			}()
			if err := a.openLedger(cmd.Context()); err != nil {
				return err
			}

			if opts.participant == "" {
				return listConversations(cmd, a.ledger, opts)
			}
			key, err := conversationKey(opts.typ, opts.participant)
			if err != nil {
				return err
			}
			return showConversation(cmd, a.ledger, key, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.typ, "type", ledger.TypeAgent, "conversation type (agent or candidate)")
	f.StringVarP(&opts.participant, "participant", "p", "", "participant id; omit to list conversations")
	f.IntVarP(&opts.limit, "limit", "n", 0, "show only the most recent N messages")
	f.BoolVar(&opts.full, "full", false, "do not truncate message content")
	f.BoolVar(&opts.markdown, "markdown", false, "export the conversation as Markdown")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON")
	cmd.MarkFlagsMutuallyExclusive("markdown", "json")
	return cmd
}

func listConversations(cmd *cobra.Command, l *ledger.Ledger, opts *historyOptions) error {
	convs := l.List()
	if opts.asJSON {
		metas := make([]any, 0, len(convs))
		for _, c := range convs {
			rec := c.Record()
			metas = append(metas, rec.Meta())
		}
		return writeJSON(cmd, metas)
	}

	out := cmd.OutOrStdout()
	if len(convs) == 0 {
		fmt.Fprintln(out, DimStyle.Render("No conversations."))
		return nil
	}

	idWidth := 0
	for _, c := range convs {
		idWidth = max(idWidth, util.StringWidth(c.ID))
	}
	previewWidth := max(terminalWidth(out)-idWidth-len(historyTimeFormat)-12, 20)

	fmt.Fprintln(out, TitleStyle.Render("Conversations"))
	for _, c := range convs {
		rec := c.Record()
		meta := rec.Meta()
		updated := "-"
		if !meta.LastUpdated.IsZero() {
			updated = meta.LastUpdated.Local().Format(historyTimeFormat)
		}
		fmt.Fprintf(out, "  %s %4s  %s  %s\n",
			RenderLabel(meta.ID, idWidth),
			strconv.Itoa(meta.MessageCount),
			DimStyle.Render(updated),
			util.TruncateWidth(meta.Preview, previewWidth))
	}
	return nil
}

func showConversation(cmd *cobra.Command, l *ledger.Ledger, key ledger.Key, opts *historyOptions) error {
	conv, ok := l.Get(key)
	if !ok {
		return fmt.Errorf("no conversation %s", key.ID())
	}
	conv.Messages = l.Messages(key)
	if opts.limit > 0 && len(conv.Messages) > opts.limit {
		conv.Messages = conv.Messages[len(conv.Messages)-opts.limit:]
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.asJSON:
		return writeJSON(cmd, conv)
	case opts.markdown:
		rec := conv.Record()
		_, err := io.WriteString(out, rec.ExportMarkdown())
		return err
	}

	fmt.Fprintln(out, TitleStyle.Render(conv.ID))
	if len(conv.Messages) == 0 {
		fmt.Fprintln(out, DimStyle.Render("No messages."))
		return nil
	}
	width := terminalWidth(out)
	for _, m := range conv.Messages {
		fmt.Fprintln(out, formatHistoryLine(m, width, opts.full))
	}
	return nil
}

// formatHistoryLine renders one message as "time sender: content", with
// content collapsed to one line and cut to the terminal width unless full.
func formatHistoryLine(m ledger.Message, width int, full bool) string {
	stamp := m.Timestamp.Local().Format(historyTimeFormat)
	sender := m.SenderID
	if sender == "" {
		sender = string(m.Role)
	}
	prefix := stamp + " " + sender + ": "
	content := m.Content
	if !full {
		content = util.TruncateWidth(util.SingleLine(content), max(width-util.StringWidth(prefix), 20))
	}
	return DimStyle.Render(stamp) + " " + RenderRole(m.Role, sender) + ": " + content
}
