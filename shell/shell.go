// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/signalgrid/sigctl/broker"
)

// APIVersion is the broker API generation this client speaks. It shows
// up in the banner and the connected prompt.
const APIVersion = "grid.signal.v1"

// errQuit unwinds the read loop on quit/exit.
var errQuit = errors.New("quit")

// command is one entry in the dispatch table.
type command struct {
	name string
	args string
	help string
	run  func(s *Shell, ctx context.Context, args string) error
}

// commandTable is populated in init to break the initialization cycle
// between the table and handlers that reference it (e.g. printUsage).
var commandTable []command

func init() {
	commandTable = []command{
		{"connect", "[URI]", "Connect to server", (*Shell).cmdConnect},
		{"get", "<PATH> [[PATH] ...]", "Get signal value(s)", (*Shell).cmdGet},
		{"set", "<PATH> <VALUE>", "Set actuator signal", (*Shell).cmdSet},
		{"subscribe", "<QUERY>", "Subscribe to signals with QUERY", (*Shell).cmdSubscribe},
		{"feed", "<PATH> <VALUE>", "Publish signal value", (*Shell).cmdFeed},
		{"metadata", "[PATTERN]", "Fetch metadata. Provide PATTERN to list metadata of signals matching pattern.", (*Shell).cmdMetadata},
		{"token", "<TOKEN>", "Use TOKEN as access token", (*Shell).cmdToken},
		{"token-file", "<FILE>", "Use content of FILE as access token", (*Shell).cmdTokenFile},
		{"help", "", "You're looking at it.", (*Shell).cmdHelp},
		{"quit", "", "Quit", (*Shell).cmdQuit},
	}
}

// Shell is the interactive dispatcher: a single-threaded read loop
// over a line editor, a namespace cache, and the background sessions
// spawned by subscribe.
type Shell struct {
	client  broker.Client
	ns      *Namespace
	styles  Styles
	logger  *slog.Logger
	now     func() time.Time
	sink    *Sink
	printer *Printer

	rl          *readline.Instance
	historyFile string

	nextSubscription int
	sessions         []*Session
}

// New creates a shell around a broker client. Output goes nowhere
// until Run wires the line editor, or a test calls SetOutput.
func New(client broker.Client, styles Styles, logger *slog.Logger) *Shell {
	return &Shell{
		client:           client,
		ns:               NewNamespace(),
		styles:           styles,
		logger:           logger,
		now:              time.Now,
		nextSubscription: 1,
	}
}

// SetOutput routes command responses to w through a fresh sink.
func (s *Shell) SetOutput(w io.Writer) {
	s.sink = NewSink(w)
	s.printer = NewPrinter(s.sink, s.styles)
}

// Namespace exposes the cache for the completer and for tests.
func (s *Shell) Namespace() *Namespace { return s.ns }

// SetHistoryFile sets where the line editor persists input history.
// Must be called before Run; empty disables persistence.
func (s *Shell) SetHistoryFile(path string) { s.historyFile = path }

// Close flushes and stops the output sink. Run does this itself; only
// callers driving the shell through RunCommand need to call it.
func (s *Shell) Close() {
	if s.sink != nil {
		s.sink.Close()
	}
}

// RunCommand executes a single command line without the interactive
// loop. The caller routes output with SetOutput first and flushes with
// Close when done.
func (s *Shell) RunCommand(ctx context.Context, line string) error {
	if err := s.dispatch(ctx, line); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

// Run drives the interactive loop until quit or EOF. It connects,
// loads the namespace, starts the connection-state watcher, and then
// reads and dispatches one line at a time. Background sessions keep
// running between lines; the interrupt signal only cancels the line
// being edited.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(false),
		AutoComplete:    &completer{ns: s.ns},
		HistoryFile:     s.historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("initializing line editor: %w", err)
	}
	defer rl.Close()
	s.rl = rl
	s.SetOutput(rl.Stdout())
	defer s.sink.Close()

	go s.watchConnectionState()

	if err := s.client.Connect(ctx); err != nil {
		s.printer.ClientError("connect", err)
	} else {
		s.printer.Infof("Successfully connected to %s", s.client.URI())
		s.refreshMetadata(ctx)
	}

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			// Ctrl-C cancels the current line, nothing else.
			continue
		case errors.Is(err, io.EOF):
			s.printer.Linef("Bye bye!")
			return nil
		case err != nil:
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := s.dispatch(ctx, line); errors.Is(err, errQuit) {
			return nil
		}
	}
}

// dispatch tokenizes one input line into command and argument text and
// runs the matching handler. Unknown commands get a pointer at help.
func (s *Shell) dispatch(ctx context.Context, line string) error {
	name, args := splitFirstWord(line)
	if name == "exit" {
		name = "quit"
	}
	for i := range commandTable {
		if commandTable[i].name == name {
			s.logger.Debug("dispatching command", "command", name)
			return commandTable[i].run(s, ctx, args)
		}
	}
	s.printer.Linef("Unknown command. See `help` for a list of available commands.")
	return nil
}

// splitFirstWord separates the first whitespace-delimited word from
// the rest of the line, trimming the remainder.
func splitFirstWord(line string) (first, rest string) {
	trimmed := strings.TrimSpace(line)
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		return trimmed[:i], strings.TrimSpace(trimmed[i+1:])
	}
	return trimmed, ""
}

func (s *Shell) prompt(connected bool) string {
	if connected {
		return s.styles.PromptReady.Render(APIVersion + " > ")
	}
	return s.styles.PromptOffline.Render("not connected > ")
}

// watchConnectionState keeps the prompt in sync with the transport.
// Runs on its own goroutine for the life of the client's state stream.
func (s *Shell) watchConnectionState() {
	for state := range s.client.ConnectionStates() {
		s.logger.Debug("connection state changed", "state", state.String())
		s.rl.SetPrompt(s.prompt(state == broker.StateConnected))
		s.rl.Refresh()
	}
}

// refreshMetadata reloads the namespace snapshot, reporting any
// failure under the metadata command tag. The previous snapshot stays
// queryable on failure.
func (s *Shell) refreshMetadata(ctx context.Context) bool {
	if err := s.ns.Refresh(ctx, s.client, nil); err != nil {
		s.printer.ClientError("metadata", err)
		return false
	}
	s.logger.Debug("namespace refreshed", "signals", len(s.ns.Descriptors()))
	return true
}

func (s *Shell) printUsage(name string) {
	for _, cmd := range commandTable {
		if cmd.name == name {
			s.printer.Linef("Usage: %s %s", cmd.name, cmd.args)
			return
		}
	}
}

func (s *Shell) cmdHelp(context.Context, string) error {
	var b strings.Builder
	b.WriteString("\n")
	for _, cmd := range commandTable {
		fmt.Fprintf(&b, "  %-24s %s\n", cmd.name+" "+cmd.args, cmd.help)
	}
	b.WriteString("\n")
	s.sink.Block(b.String())
	return nil
}

func (s *Shell) cmdQuit(context.Context, string) error {
	s.printer.Linef("Bye bye!")
	return errQuit
}

func (s *Shell) cmdGet(ctx context.Context, args string) error {
	if args == "" {
		s.printUsage("get")
		return nil
	}
	paths := strings.Fields(args)

	entries, err := s.client.Get(ctx, paths)
	if err != nil {
		s.printer.ClientError("get", err)
		return nil
	}
	s.printer.OK("get")
	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s: %s\n", entry.Path, entry.Value.Display())
	}
	s.sink.Block(b.String())
	return nil
}

// resolveWriteTarget is the shared front half of set and feed: resolve
// the path against the namespace snapshot, then coerce the value text
// with the declared type. A miss or a coercion failure is reported and
// ends the command without touching the broker.
func (s *Shell) resolveWriteTarget(path, valueText string) (broker.Descriptor, broker.Value, bool) {
	descriptor, ok := s.ns.Lookup(path)
	if !ok {
		s.printer.Infof("No metadata available for %s. Needed to determine data type for serialization.", path)
		return broker.Descriptor{}, nil, false
	}
	value, err := broker.Coerce(valueText, descriptor.DataType)
	if err != nil {
		s.printer.Linef("Could not parse %q as %s", valueText, descriptor.DataType)
		return broker.Descriptor{}, nil, false
	}
	return descriptor, value, true
}

func (s *Shell) cmdSet(ctx context.Context, args string) error {
	path, valueText := splitFirstWord(args)
	if valueText == "" {
		s.printUsage("set")
		return nil
	}

	descriptor, value, ok := s.resolveWriteTarget(path, valueText)
	if !ok {
		return nil
	}
	if descriptor.Kind != broker.KindActuator {
		s.printer.Errorf("set", "%s is not an actuator.", descriptor.Name)
		s.printer.Infof("If you want to provide the signal value, use `feed`.")
		return nil
	}

	updates := map[string]broker.Datapoint{
		descriptor.Name: {Timestamp: s.now(), Value: value},
	}
	fieldErrors, err := s.client.Set(ctx, updates)
	if err != nil {
		s.printer.ClientError("set", err)
		return nil
	}
	// The batch call succeeded even when individual fields were
	// rejected, so the OK line always prints.
	s.printer.OK("set")
	for field, fieldErr := range fieldErrors {
		s.printer.Linef("Error setting %s: %s", field, s.styles.Error.Render(fieldErr.String()))
	}
	return nil
}

func (s *Shell) cmdFeed(ctx context.Context, args string) error {
	path, valueText := splitFirstWord(args)
	if valueText == "" {
		s.printUsage("feed")
		return nil
	}

	descriptor, value, ok := s.resolveWriteTarget(path, valueText)
	if !ok {
		return nil
	}

	updates := map[uint32]broker.Datapoint{
		descriptor.ID: {Timestamp: s.now(), Value: value},
	}
	fieldErrors, err := s.client.Feed(ctx, updates)
	if err != nil {
		s.printer.ClientError("feed", err)
		return nil
	}
	if len(fieldErrors) == 0 {
		s.printer.OK("feed")
		return nil
	}
	for id, fieldErr := range fieldErrors {
		identifier := fmt.Sprintf("id %d", id)
		if id == descriptor.ID {
			identifier = descriptor.Name
		}
		s.printer.OKf("feed", "Error providing %s: %s", identifier, fieldErr)
	}
	return nil
}

func (s *Shell) cmdSubscribe(ctx context.Context, args string) error {
	if args == "" {
		s.printUsage("subscribe")
		return nil
	}

	sub, err := s.client.Subscribe(ctx, args)
	if err != nil {
		s.printer.ClientError("subscribe", err)
		return nil
	}

	number := s.nextSubscription
	s.nextSubscription++
	s.sessions = append(s.sessions, startSession(number, sub, s.printer, s.styles))
	s.logger.Debug("subscription started", "number", number, "query", args)

	s.printer.OK("subscribe")
	s.printer.Infof("Subscription is now running in the background. Received data is identified by [%d].", number)
	return nil
}

func (s *Shell) cmdConnect(ctx context.Context, args string) error {
	if s.client.Connected() && args == "" {
		return nil
	}

	var err error
	if args == "" {
		err = s.client.Connect(ctx)
	} else {
		err = s.client.ConnectTo(ctx, strings.TrimSpace(args))
	}
	if err != nil {
		s.printer.ClientError("connect", err)
	} else {
		s.printer.Infof("[connect] Successfully connected to %s", s.client.URI())
	}

	if s.client.Connected() {
		s.refreshMetadata(ctx)
	}
	return nil
}

func (s *Shell) cmdMetadata(ctx context.Context, args string) error {
	patterns := strings.Fields(args)

	if !s.refreshMetadata(ctx) {
		return nil
	}
	s.printer.OK("metadata")

	if len(patterns) == 0 {
		s.printer.Infof("If you want to list metadata of signals, use `metadata PATTERN`")
		return nil
	}

	var matched []broker.Descriptor
	for _, pattern := range patterns {
		re, err := broker.CompilePathPattern(pattern)
		if err != nil {
			s.printer.Infof("Invalid pattern: %v", err)
			continue
		}
		for _, descriptor := range s.ns.Descriptors() {
			if re.MatchString(descriptor.Name) {
				matched = append(matched, descriptor)
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	pathWidth := len("Path")
	for _, descriptor := range matched {
		if len(descriptor.Name) > pathWidth {
			pathWidth = len(descriptor.Name)
		}
	}
	s.printer.Infof("%-*s %-10s %-9s", pathWidth, "Path", "Entry type", "Data type")
	var b strings.Builder
	for _, descriptor := range matched {
		fmt.Fprintf(&b, "%-*s %-10s %-9s\n", pathWidth, descriptor.Name, descriptor.Kind, descriptor.DataType)
	}
	s.sink.Block(b.String())
	return nil
}

func (s *Shell) cmdToken(ctx context.Context, args string) error {
	if args == "" {
		s.printUsage("token")
		return nil
	}
	s.installToken(ctx, "token", args)
	return nil
}

func (s *Shell) cmdTokenFile(ctx context.Context, args string) error {
	if args == "" {
		s.printUsage("token-file")
		return nil
	}
	filename := strings.TrimSpace(args)
	token, err := os.ReadFile(filename)
	if err != nil {
		s.printer.Errorf("token-file", "Failed to open token file %q: %v", filename, err)
		return nil
	}
	s.installToken(ctx, "token-file", string(token))
	return nil
}

// installToken sets the credential and immediately refreshes the
// namespace so the new credential's signal visibility takes effect.
func (s *Shell) installToken(ctx context.Context, command, token string) {
	if err := s.client.SetAccessToken(token); err != nil {
		s.printer.Errorf(command, "Malformed token: %v", err)
		return
	}
	s.printer.Infof("Access token set.")
	s.refreshMetadata(ctx)
}
