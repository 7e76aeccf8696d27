// Command crmctl is a terminal client for the CRM API that keeps a local
// cache of the signed-in user's data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bissquit/crmdesk/internal/client/api"
	"github.com/bissquit/crmdesk/internal/client/cli"
	"github.com/bissquit/crmdesk/internal/client/session"
	"github.com/bissquit/crmdesk/internal/client/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	server := flag.String("server", envOr("CRMCTL_SERVER", "http://localhost:8080"), "CRM API base URL")
	storePath := flag.String("store", envOr("CRMCTL_STORE", defaultStorePath()), "path to the local session database")
	timeout := flag.Duration("timeout", 10*time.Second, "HTTP request timeout")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(*storePath), 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "crmctl: %v\n", err)
		return 1
	}
	st, err := store.OpenSQLite(ctx, *storePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crmctl: %v\n", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	client := api.New(api.Config{BaseURL: *server, Timeout: *timeout})
	s := session.New(st, client, logger)

	if err := cli.NewApp(s, client, os.Stdout).Run(ctx, flag.Args()); err != nil {
		if !errors.Is(err, cli.ErrUsage) || flag.NArg() > 0 {
			fmt.Fprintf(os.Stderr, "crmctl: %v\n", err)
		}
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "crmctl.db"
	}
	return filepath.Join(dir, "crmctl", "session.db")
}
