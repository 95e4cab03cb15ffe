// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/config"
	"github.com/jeranaias/hirechat/internal/conversation"
	"github.com/jeranaias/hirechat/internal/intent"
	"github.com/jeranaias/hirechat/internal/ledger"
)

// chatBacklog is how many earlier messages are shown when a chat opens.
const chatBacklog = 10

func newChatCmd(flags *globalFlags) *cobra.Command {
	var (
		typ         string
		participant string
		noModel     bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with an agent or candidate",
		Long: `Open an interactive conversation.

Each line is classified first. Navigation commands are shown and not
sent; everything else is added to the conversation and answered by the
model (agents) or a simulated reply (candidates).

Piped input is read line by line without line editing.`,
		Example: `  hirechat chat --participant darlene
  hirechat chat --type candidate --participant maya-patel
  printf 'hello\n/quit\n' | hirechat chat -p sofia`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			key, err := conversationKey(typ, participant)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(context.WithoutCancel(ctx)); err == nil {
					err = cerr
				}
			}()

			if !noModel {
				if err := a.openModel(ctx); err != nil {
					return err
				}
			}
			if err := a.openLedger(ctx); err != nil {
				return err
			}
			a.newClassifier()
			sessions := a.newManager()

			session, err := sessions.Session(ctx, key)
			if err != nil {
				return err
			}

			input := newLineReader(cmd.InOrStdin(), a.logger)
			defer input.Close()

			repl := &chatREPL{
				out:     cmd.OutOrStdout(),
				input:   input,
				session: session,
				render:  newMarkdownRenderer(cmd.OutOrStdout(), a.logger),
			}
			return repl.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&typ, "type", ledger.TypeAgent, "conversation type (agent or candidate)")
	f.StringVarP(&participant, "participant", "p", "", "participant id")
	f.BoolVar(&noModel, "no-model", false, "run without a model: no fallback classifier, simulated replies only")
	_ = cmd.MarkFlagRequired("participant")
	return cmd
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader yields one line of user input per call and io.EOF when the
// user is done.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// newLineReader uses liner for line editing and persistent history when
// in is a terminal, and a plain scanner otherwise.
func newLineReader(in io.Reader, logger *zap.Logger) lineReader {
	if isTerminal(in) {
		return newLinerReader(logger)
	}
	return &scanReader{sc: bufio.NewScanner(in)}
}

type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) ReadLine(string) (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// linerReader wraps liner with history kept in the config directory.
type linerReader struct {
	state       *liner.State
	historyFile string
	logger      *zap.Logger
}

func newLinerReader(logger *zap.Logger) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{
		state:       state,
		historyFile: filepath.Join(dir, "chat_history"),
		logger:      logger,
	}
	if f, err := os.Open(r.historyFile); err == nil {
		if _, err := state.ReadHistory(f); err != nil {
			logger.Debug("chat history unreadable", zap.Error(err))
		}
		f.Close()
	}
	return r
}

// ReadLine maps Ctrl+C at the prompt to io.EOF.
func (r *linerReader) ReadLine(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		r.state.AppendHistory(line)
	}
	return line, nil
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	defer r.state.Close()
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err != nil {
		r.logger.Debug("chat history not saved", zap.Error(err))
		return nil
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		r.logger.Debug("chat history not saved", zap.Error(err))
		return nil
	}
	defer f.Close()
	if _, err := r.state.WriteHistory(f); err != nil {
		r.logger.Debug("chat history not saved", zap.Error(err))
	}
	return nil
}

// =============================================================================
// RENDERING
// =============================================================================

// newMarkdownRenderer renders replies with glamour when out is a terminal.
// Other writers get the text unchanged.
func newMarkdownRenderer(out io.Writer, logger *zap.Logger) func(string) string {
	plain := func(s string) string { return s }
	if !isTerminal(out) || !ColorsEnabled() {
		return plain
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(terminalWidth(out)-4),
	)
	if err != nil {
		logger.Debug("markdown rendering disabled", zap.Error(err))
		return plain
	}
	return func(s string) string {
		rendered, err := renderer.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(rendered, "\n")
	}
}

// =============================================================================
// REPL
// =============================================================================

// chatREPL is the interactive loop for one conversation.
type chatREPL struct {
	out     io.Writer
	input   lineReader
	session *conversation.Session
	render  func(string) string
}

// Run reads lines until EOF, /quit, or ctx is done.
func (r *chatREPL) Run(ctx context.Context) error {
	r.printHeader()

	prompt := PromptStyle.Render("you> ")
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.input.ReadLine(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.slashCommand(line)
			if err != nil {
				fmt.Fprintln(r.out, ErrorStyle.Render("Error:"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(r.out, ErrorStyle.Render("Error:"), err)
		}
	}
}

func (r *chatREPL) printHeader() {
	key := r.session.Key()
	fmt.Fprintln(r.out, TitleStyle.Render("Chat: "+key.ID()))
	mode := "model replies"
	if r.session.Simulated() {
		mode = "simulated replies"
	}
	fmt.Fprintln(r.out, DimStyle.Render(mode+" | /help for commands, /quit to exit"))

	msgs := r.session.Messages()
	if len(msgs) > chatBacklog {
		fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("(%d earlier messages)", len(msgs)-chatBacklog)))
		msgs = msgs[len(msgs)-chatBacklog:]
	}
	width := terminalWidth(r.out)
	for _, m := range msgs {
		fmt.Fprintln(r.out, formatHistoryLine(m, width, false))
	}
	fmt.Fprintln(r.out, RenderSeparator(min(width, 70)))
}

// send routes line through the session. Commands are reported and
// dropped; messages wait for their reply.
func (r *chatREPL) send(ctx context.Context, line string) error {
	res, err := r.session.SendMessage(ctx, line, ledger.MediumText)
	if err != nil {
		return err
	}
	if res.IsCommand() {
		fmt.Fprintln(r.out, CommandStyle.Render("-> "+res.Intent.CommandID()), DimStyle.Render(describeResult(res.Intent)))
		return nil
	}

	if err := r.waitReply(ctx); err != nil {
		return err
	}
	for _, m := range repliesAfter(r.session.Messages(), res.Message.ID) {
		fmt.Fprintf(r.out, "%s: %s\n", RenderRole(m.Role, m.SenderID), r.render(m.Content))
	}
	return nil
}

// waitReply blocks until the session's pending replies finish or ctx is
// done. An abandoned wait ends when the session is unmounted.
func (r *chatREPL) waitReply(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.session.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// repliesAfter returns the non-user messages that follow the message with
// id sent.
func repliesAfter(msgs []ledger.Message, sent string) []ledger.Message {
	for i, m := range msgs {
		if m.ID != sent {
			continue
		}
		var out []ledger.Message
		for _, reply := range msgs[i+1:] {
			if reply.Role != ledger.RoleUser {
				out = append(out, reply)
			}
		}
		return out
	}
	return nil
}

func (r *chatREPL) slashCommand(line string) (quit bool, err error) {
	name, _, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		for _, h := range [][2]string{
			{"/history", "show this conversation"},
			{"/clear", "remove every message"},
			{"/commands", "list navigation commands"},
			{"/quit", "leave the chat"},
		} {
			fmt.Fprintf(r.out, "  %s %s\n", RenderLabel(h[0], 10), DimStyle.Render(h[1]))
		}

	case "history":
		width := terminalWidth(r.out)
		for _, m := range r.session.Messages() {
			fmt.Fprintln(r.out, formatHistoryLine(m, width, false))
		}

	case "clear":
		if err := r.session.ClearConversation(); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Conversation cleared."))

	case "commands":
		for _, e := range intent.Catalogue() {
			fmt.Fprintf(r.out, "  %s\n", e.ID)
		}

	default:
		return false, fmt.Errorf("unknown command /%s (try /help)", name)
	}
	return false, nil
}
