package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/offsync/offsync/internal/client/api"
	"github.com/offsync/offsync/internal/client/cli"
	"github.com/offsync/offsync/internal/client/iocli"
	"github.com/offsync/offsync/internal/client/netmon"
	"github.com/offsync/offsync/internal/client/storage/boltdb"
	"github.com/offsync/offsync/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "offsync-client.db", "Path to local database")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(*serverURL)
	monitor := netmon.New(apiClient.Health, logger)

	svc, err := sync.NewService(ctx, store, apiClient, monitor, sync.DefaultConfig(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize sync service: %v\n", err)
		os.Exit(1)
	}

	c := cli.New(iocli.NewStdio(), svc, apiClient, store)
	c.LoadSession(ctx)
	c.Run(ctx, args[0], args[1:])
}

func printVersion() {
	fmt.Printf("offsync client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
