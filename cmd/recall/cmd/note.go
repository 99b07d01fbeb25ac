package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TSLeslie/recall/internal/store"
	"github.com/TSLeslie/recall/internal/ui"
)

// noteOptions holds CLI flags for note capture.
type noteOptions struct {
	source string
	title  string
	tags   []string
	sync   bool
}

func newNoteCmd() *cobra.Command {
	var opts noteOptions

	cmd := &cobra.Command{
		Use:   "note [text...]",
		Short: "Capture a note as a markdown document",
		Long: `Capture a note into the document store.

The note body comes from the arguments, or from stdin when no
arguments are given (pipe or type, then Ctrl-D).

Examples:
  recall note "remember to rotate the API keys"
  pbpaste | recall note --source zoom --title "standup"
  recall note --tags infra,oncall "pager escalation changed"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNote(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "note", "Document source: zoom, youtube, microphone, system, note")
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Document title")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "Comma-separated tags")
	cmd.Flags().BoolVar(&opts.sync, "sync", true, "Sync the index after saving")

	return cmd
}

func runNote(cmd *cobra.Command, args []string, opts noteOptions) error {
	body := strings.Join(args, " ")
	if strings.TrimSpace(body) == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read note from stdin: %w", err)
		}
		body = string(data)
	}

	source, err := store.ParseSource(opts.source)
	if err != nil {
		return err
	}

	doc, err := store.NewDocument(source, body)
	if err != nil {
		return err
	}
	doc.Title = opts.title
	doc.Tags = opts.tags

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	relPath, err := a.store.Save(doc)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", relPath)

	if opts.sync {
		res, err := a.engine.Sync(cmd.Context())
		if err != nil {
			return err
		}
		printer.SyncResult(res)
	}

	return nil
}
