package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TSLeslie/recall/internal/ui"
	"github.com/TSLeslie/recall/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the storage directory and sync on changes",
		Long: `Run an initial sync, then watch the storage directory and sync
whenever documents change. Stops on Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before syncing after a change burst")

	return cmd
}

func runWatch(cmd *cobra.Command, debounce time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	printer := ui.NewPrinter(cmd.OutOrStdout())

	res, err := a.engine.Sync(ctx)
	if err != nil {
		return err
	}
	printer.SyncResult(res)

	w, err := watcher.New(watcher.Options{DebounceWindow: debounce})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Start(ctx, a.cfg.StorageDir)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl-C to stop)\n", a.cfg.StorageDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		case err := <-w.Errors():
			slog.Warn("watcher error", slog.String("error", err.Error()))
		case _, ok := <-w.Triggers():
			if !ok {
				return nil
			}
			res, err := a.engine.Sync(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				printer.Errorf("sync failed: %v", err)
				continue
			}
			if res.Changed() || res.Errors > 0 {
				printer.SyncResult(res)
			}
		}
	}
}
