package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/driftnotes/drift/internal/config"
	"github.com/driftnotes/drift/internal/orchestrator"
	"github.com/driftnotes/drift/internal/remote"
	"github.com/driftnotes/drift/internal/session"
	"github.com/driftnotes/drift/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "drift",
	Short: "Offline-first notes with cloud sync",
	Long: `drift keeps your notes in a local database that works fully offline.

When signed in, every change is mirrored to the cloud store and changes
made on other devices stream back in realtime. Conflicts between devices
resolve last-writer-wins on the note's update timestamp.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: <data-dir>/config.yaml)")
	rootCmd.AddGroup(
		&cobra.Group{ID: "notes", Title: "Notes"},
		&cobra.Group{ID: "session", Title: "Session"},
	)
}

// app is the fully wired engine for one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	store    *store.Store
	client   *remote.Client
	sessions *session.Manager
	engine   *orchestrator.Orchestrator
}

// newApp loads configuration and opens the local store. When online is
// true and a cloud backend is configured, the cloud client is dialed too;
// an unreachable backend degrades to local-only with a logged warning
// instead of failing the command.
func newApp(ctx context.Context, online bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	st, err := store.Open(cfg.StorePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		sessions: session.NewManager(cfg.TokenPath, logger),
	}

	var cloud orchestrator.CloudStore
	if online && cfg.RemoteDSN != "" {
		client, err := remote.Dial(ctx, cfg.RemoteDSN, cfg.RealtimeURL, logger)
		if err != nil {
			logger.Printf("Warning: cloud store unreachable, continuing local-only: %v", err)
		} else if err := client.InitSchema(ctx); err != nil {
			logger.Printf("Warning: cloud schema init failed: %v", err)
			client.Close()
		} else {
			a.client = client
			cloud = orchestrator.Cloud(client)
		}
	}

	a.engine = orchestrator.New(st, cloud, logger)
	return a, nil
}

// restoreSession signs the engine in from a persisted session, if one
// exists. Returns true when signed in.
func (a *app) restoreSession(ctx context.Context) bool {
	id := a.sessions.Restore()
	if id == nil {
		return false
	}
	a.engine.SignIn(ctx, *id)
	return true
}

// close flushes pending cloud writes and releases every resource. Safe to
// defer immediately after newApp succeeds.
func (a *app) close() {
	a.engine.Flush()
	a.engine.Close()
	if a.client != nil {
		a.client.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Printf("Warning: failed to close store: %v", err)
	}
}

// newLogger writes to stderr and a rotating log file in the data dir.
func newLogger(cfg *config.Config) *log.Logger {
	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return log.New(io.MultiWriter(os.Stderr, rotator), "[drift] ", log.LstdFlags)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
