// Package cmd provides the CLI commands for recall.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/TSLeslie/recall/internal/config"
	"github.com/TSLeslie/recall/internal/feed"
	"github.com/TSLeslie/recall/internal/index"
	"github.com/TSLeslie/recall/internal/knowledge"
	"github.com/TSLeslie/recall/internal/logging"
	"github.com/TSLeslie/recall/internal/store"
	"github.com/TSLeslie/recall/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the recall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Local note and transcript capture with full-text search",
		Long: `Recall captures meeting transcripts and notes as plain markdown files
and keeps a local search index in sync with them.

Documents live under the storage directory as markdown with YAML
frontmatter; edit, add, or delete them with any tool and run
'recall sync' (or 'recall watch') to bring the index up to date.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("recall version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.recall/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.recall/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newNoteCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newChangesCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newFilterCmd())
	cmd.AddCommand(newRebuildCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging configures slog based on the --debug flag.
func setupLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// app bundles the wired components behind one Close.
type app struct {
	cfg    *config.Config
	store  *store.Store
	index  *index.Index
	feed   feed.Feed
	engine *knowledge.Engine
}

// openApp loads config and wires store, index, feed, and engine.
func openApp() (*app, error) {
	cfg := config.Load(configPath)

	st, err := store.NewStore(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	ix, err := index.New(cfg.IndexPath)
	if err != nil {
		return nil, err
	}

	fd, err := feed.NewSQLiteFeed(cfg.FeedDB)
	if err != nil {
		_ = ix.Close()
		return nil, err
	}

	engine := knowledge.NewEngine(st, ix, fd, cfg.StateFile, cfg.ChunkSize, cfg.ChunkOverlap)

	return &app{cfg: cfg, store: st, index: ix, feed: fd, engine: engine}, nil
}

// Close releases the index and feed.
func (a *app) Close() {
	_ = a.index.Close()
	_ = a.feed.Close()
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}
