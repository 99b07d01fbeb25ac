package cmd

import (
	"github.com/spf13/cobra"

	"github.com/TSLeslie/recall/internal/ui"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Bring the search index up to date with the document store",
		Long: `Scan the storage directory, detect new, modified, and deleted
documents by content digest, and apply the changes to the search
index and knowledge feed.

Safe to run repeatedly; an unchanged store is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Sync(cmd.Context())
			if err != nil {
				return err
			}

			ui.NewPrinter(cmd.OutOrStdout()).SyncResult(res)
			return nil
		},
	}
}

func newChangesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "changes",
		Short: "Show pending changes without syncing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			changes, err := a.engine.PendingChanges()
			if err != nil {
				return err
			}

			ui.NewPrinter(cmd.OutOrStdout()).Changes(changes)
			return nil
		},
	}
}

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Discard the index and sync state, then reindex everything",
		Long: `Clear all tracked sync state and the entire search index, then run
a full sync. Use this to recover from index drift or corruption.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.ForceRebuild(cmd.Context())
			if err != nil {
				return err
			}

			ui.NewPrinter(cmd.OutOrStdout()).SyncResult(res)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index and sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.engine.Status()
			if err != nil {
				return err
			}

			ui.NewPrinter(cmd.OutOrStdout()).Status(st)
			return nil
		},
	}
}
