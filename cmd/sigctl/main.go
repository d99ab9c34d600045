// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/signalgrid/sigctl/broker"
	"github.com/signalgrid/sigctl/config"
	"github.com/signalgrid/sigctl/shell"
)

// version is stamped by the build.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("sigctl", pflag.ContinueOnError)
	serverFlag := flags.StringP("server", "s", "", "broker URI to connect to")
	configFlag := flags.String("config", "", "path to config file (overrides SIGCTL_CONFIG)")
	tokenFileFlag := flags.String("token-file", "", "file whose content is used as access token")
	colorFlag := flags.String("color", "", "color output: auto, always, or never")
	verboseFlag := flags.BoolP("verbose", "v", false, "enable debug logging")
	versionFlag := flags.Bool("version", false, "print version and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sigctl [flags] [COMMAND [ARG ...]]\n\n"+
			"Interactive signal broker client. With a COMMAND, runs it once and\n"+
			"exits; without one, starts the interactive shell.\n\nFlags:\n%s",
			flags.FlagUsages())
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if *versionFlag {
		fmt.Printf("sigctl %s (%s)\n", version, shell.APIVersion)
		return nil
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	if *serverFlag != "" {
		cfg.Server = *serverFlag
	}
	if *tokenFileFlag != "" {
		cfg.TokenFile = *tokenFileFlag
	}
	if *colorFlag != "" {
		cfg.Color = *colorFlag
	}
	if *verboseFlag {
		cfg.Verbose = true
	}

	logger := newLogger(cfg.Verbose)
	styles := shell.NewStyles(shell.NewRenderer(os.Stdout, shell.ColorMode(cfg.Color)))

	client, err := broker.Dial(cfg.Server)
	if err != nil {
		return err
	}
	if cfg.TokenFile != "" {
		token, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return fmt.Errorf("reading token file: %w", err)
		}
		if err := client.SetAccessToken(string(token)); err != nil {
			return fmt.Errorf("malformed token: %w", err)
		}
	}

	s := shell.New(client, styles, logger)
	ctx := context.Background()

	if args := flags.Args(); len(args) > 0 {
		return runOnce(ctx, s, client, strings.Join(args, " "))
	}

	printBanner(styles)
	if cfg.HistoryFile != "" {
		// A missing cache directory should not break history.
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryFile), 0o755); err == nil {
			s.SetHistoryFile(cfg.HistoryFile)
		}
	}
	return s.Run(ctx)
}

// runOnce executes a single command against the broker and exits. The
// namespace is loaded first so set and feed can resolve data types the
// same way they do interactively.
func runOnce(ctx context.Context, s *shell.Shell, client broker.Client, line string) error {
	s.SetOutput(os.Stdout)
	defer s.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := s.Namespace().Refresh(ctx, client, nil); err != nil {
		return fmt.Errorf("loading metadata: %w", err)
	}
	return s.RunCommand(ctx, line)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newLogger builds the command logger. A terminal on stderr gets
// human-readable text; a pipe gets JSON for ingestion.
func newLogger(verbose bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		options.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

func printBanner(styles shell.Styles) {
	fmt.Println(styles.Logo.Render("sigctl " + version))
	fmt.Printf("interactive %s client\n\n", shell.APIVersion)
}
