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
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	orchestrator "github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/render"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// Replaced in tests.
var (
	clipboardWrite = clipboard.WriteAll
	nowFunc        = time.Now
)

func newChatCommand(flags *globalFlags, streams IO) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a line-oriented chat session",
		Long: `Start a line-oriented chat session in the current conversation.

Lines starting with / are commands; type /help to list them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, true, streams, func(app *App) error {
				return runChat(commandContext(cmd), app, streams)
			})
		},
	}
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of input at a time.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// linerReader edits lines with history when stdin is a terminal.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// scanReader reads lines from a pipe. Prompts are not echoed.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) ReadLine(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() error { return nil }

func newLineReader(in io.Reader) lineReader {
	if isTerminalReader(in) {
		return newLinerReader()
	}
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scanReader{scanner: s}
}

// =============================================================================
// SESSION
// =============================================================================

// replObserver shows progress on the output stream.
// theme is nil when out is not a terminal.
type replObserver struct {
	out   io.Writer
	err   io.Writer
	theme *styles.Theme
}

func (o replObserver) TypingStarted(string) {
	if o.theme != nil {
		fmt.Fprint(o.out, styles.StatusIndicators.Info+" Assistant is typing...")
	}
}

func (o replObserver) TypingStopped(string) {
	if o.theme != nil {
		fmt.Fprint(o.out, "\r\033[K")
	}
}

func (o replObserver) Notify(level orchestrator.Level, msg string) {
	if level != orchestrator.LevelError {
		return
	}
	if o.theme != nil {
		fmt.Fprintln(o.err, o.theme.RenderStatus(false, msg))
		return
	}
	fmt.Fprintf(o.err, "%s %s\n", styles.StatusIndicators.Error, msg)
}

// chatSession is one REPL run.
type chatSession struct {
	app     *App
	orch    *orchestrator.Orchestrator
	out     io.Writer
	printer *printer
	input   lineReader
}

func runChat(ctx context.Context, app *App, streams IO) error {
	observer := replObserver{out: streams.Out, err: streams.Err}
	if isTerminal(streams.Out) {
		observer.theme = styles.NewTheme(app.Config.UI.Theme)
	}
	orch, err := app.Orchestrator(observer)
	if err != nil {
		return err
	}
	app.Watch(ctx)

	s := &chatSession{
		app:     app,
		orch:    orch,
		out:     streams.Out,
		printer: newPrinter(streams.Out, app.Config.UI.Theme),
		input:   newLineReader(streams.In),
	}
	defer s.input.Close()

	app.Store.EnsureCurrent()
	s.banner()

	for {
		line, err := s.input.ReadLine("> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		quit, err := s.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(s.out, "%s %v\n", styles.StatusIndicators.Error, err)
		}
		if quit {
			return nil
		}
	}
}

func (s *chatSession) banner() {
	conv, _ := s.app.Store.Current()
	fmt.Fprintf(s.out, "parley %s · %s\n", Version, conv.DisplayTitle())
	fmt.Fprintln(s.out, "Type a message, or /help for commands.")
}

// handle runs one input line. It returns true when the session should end.
func (s *chatSession) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, s.send(ctx, line)
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "quit", "q", "exit":
		return true, nil
	case "help", "h", "?":
		s.help()
	case "new", "n":
		conv := s.app.Store.Create()
		fmt.Fprintf(s.out, "Started %q.\n", conv.DisplayTitle())
	case "list", "ls":
		printList(s.out, s.app.Store.List(arg == "all"), s.app.Store.CurrentID(), nowFunc())
	case "search":
		if arg == "" {
			return false, &UsageError{Reason: "usage: /search <term>"}
		}
		printList(s.out, s.app.Store.Search(arg, true), s.app.Store.CurrentID(), nowFunc())
	case "switch", "s":
		return false, s.switchTo(arg)
	case "show", "history":
		conv, _ := s.app.Store.Current()
		s.printer.transcript(conv)
	case "rename":
		return false, s.rename(arg)
	case "archive":
		return false, s.archive()
	case "delete":
		return false, s.delete()
	case "export":
		return false, s.export(arg)
	case "import":
		return false, s.importFile(arg)
	case "copy":
		return false, s.copy(arg)
	default:
		return false, &UsageError{Reason: fmt.Sprintf("unknown command /%s (type /help)", name)}
	}
	return false, nil
}

func (s *chatSession) help() {
	fmt.Fprint(s.out, `Commands:
  /new               start a new conversation
  /list [all]        list conversations (all includes archived)
  /switch <n|id>     switch to a conversation
  /search <term>     find conversations
  /show              print the current conversation
  /rename <title>    rename the current conversation
  /archive           archive or unarchive the current conversation
  /delete            delete the current conversation
  /export [dir]      export the current conversation as JSON
  /import <file>     import a conversation
  /copy [n]          copy code block n (default: the last one)
  /quit              leave
`)
}

// send runs one cycle. Ctrl+C cancels the request in flight.
func (s *chatSession) send(ctx context.Context, text string) error {
	id := s.app.Store.EnsureCurrent()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := s.orch.Send(ctx, id, text)
	if err != nil {
		return err
	}
	s.printer.message(res.Reply)
	return nil
}

func (s *chatSession) currentID() (string, error) {
	id := s.app.Store.CurrentID()
	if id == "" {
		return "", errors.New("no active conversation")
	}
	return id, nil
}

func (s *chatSession) switchTo(ref string) error {
	conv, err := s.app.Resolve(ref)
	if err != nil {
		return err
	}
	s.app.Store.SetCurrent(conv.ID)
	fmt.Fprintf(s.out, "Switched to %q (%d messages).\n", conv.DisplayTitle(), len(conv.Messages))
	return nil
}

func (s *chatSession) rename(title string) error {
	if title == "" {
		return &UsageError{Reason: "usage: /rename <title>"}
	}
	id, err := s.currentID()
	if err != nil {
		return err
	}
	if err := s.app.Store.Rename(id, title); err != nil {
		return err
	}
	conv, _ := s.app.Store.Find(id)
	fmt.Fprintf(s.out, "Renamed to %q.\n", conv.DisplayTitle())
	return nil
}

func (s *chatSession) archive() error {
	id, err := s.currentID()
	if err != nil {
		return err
	}
	archived, err := s.app.Store.ToggleArchive(id)
	if err != nil {
		return err
	}
	if archived {
		fmt.Fprintln(s.out, "Conversation archived.")
	} else {
		fmt.Fprintln(s.out, "Conversation unarchived.")
	}
	return nil
}

func (s *chatSession) delete() error {
	id, err := s.currentID()
	if err != nil {
		return err
	}
	answer, err := s.input.ReadLine("Delete this conversation permanently? [y/N] ")
	if err != nil || !isYes(answer) {
		fmt.Fprintln(s.out, "Cancelled.")
		return nil
	}
	next, err := s.app.Store.Delete(id)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Conversation deleted.")
	if conv, ok := s.app.Store.Find(next); ok {
		fmt.Fprintf(s.out, "Now in %q.\n", conv.DisplayTitle())
	}
	return nil
}

func (s *chatSession) export(dir string) error {
	id, err := s.currentID()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = "."
	}
	exporter, err := export.ForFormat("json", nil)
	if err != nil {
		return err
	}
	path, err := export.ExportToFile(s.app.Store, id, dir, exporter)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Exported to %s\n", path)
	return nil
}

func (s *chatSession) importFile(path string) error {
	if path == "" {
		return &UsageError{Reason: "usage: /import <file>"}
	}
	conv, err := export.ImportFile(s.app.Store, path)
	if err != nil {
		s.app.Log.WithFields(logrus.Fields{"path": path, "error": err}).Warn("IMPORT_FAILED")
		return errors.New("failed to import file")
	}
	fmt.Fprintf(s.out, "Conversation imported successfully! Now in %q.\n", conv.DisplayTitle())
	return nil
}

// copy puts a code block of the current conversation on the clipboard.
// Blocks are numbered from 1 in conversation order.
func (s *chatSession) copy(arg string) error {
	conv, ok := s.app.Store.Current()
	if !ok {
		return errors.New("no active conversation")
	}
	var blocks []render.CodeBlock
	for _, msg := range conv.Messages {
		blocks = append(blocks, render.CodeBlocks(render.Parse(msg.Content))...)
	}
	if len(blocks) == 0 {
		return errors.New("no code block to copy")
	}

	n := len(blocks)
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 || v > len(blocks) {
			return &UsageError{Reason: fmt.Sprintf("code block must be between 1 and %d", len(blocks))}
		}
		n = v
	}
	if err := clipboardWrite(blocks[n-1].Code); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	fmt.Fprintf(s.out, "Copied code block %d of %d to clipboard.\n", n, len(blocks))
	return nil
}

// =============================================================================
// CONFIRMATION
// =============================================================================

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// confirm asks a yes/no question on the command's streams.
func confirm(streams IO, question string) bool {
	fmt.Fprintf(streams.Out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(streams.In).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return isYes(answer)
}
