// Package ui renders search results and sync summaries to the terminal.
// Color is used only when writing to a TTY without NO_COLOR set.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/TSLeslie/recall/internal/index"
	"github.com/TSLeslie/recall/internal/knowledge"
)

// Printer writes formatted output to a single writer.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a Printer for w. Styling is decided from w: plain
// output for pipes, files, and NO_COLOR environments.
func NewPrinter(w io.Writer) *Printer {
	noColor := !IsTTY(w) || DetectNoColor()
	return &Printer{out: w, styles: GetStyles(noColor)}
}

// Hits renders search or filter results, most relevant first.
func (p *Printer) Hits(hits []index.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(p.out, p.styles.Dim.Render("No results."))
		return
	}

	fmt.Fprintln(p.out, p.styles.Header.Render(fmt.Sprintf("%d result(s)", len(hits))))
	for _, h := range hits {
		fmt.Fprintf(p.out, "\n%s  %s  %s\n",
			p.styles.Title.Render(h.Path),
			p.styles.Source.Render("["+string(h.Source)+"]"),
			p.styles.Date.Render(h.CreatedAt.Format("2006-01-02 15:04")))
		if h.Snippet != "" {
			fmt.Fprintf(p.out, "  %s\n", p.styles.Snippet.Render(h.Snippet))
		}
	}
}

// SyncResult renders the outcome of a sync pass.
func (p *Printer) SyncResult(res *knowledge.Result) {
	if !res.Changed() && res.Errors == 0 {
		fmt.Fprintln(p.out, p.styles.Dim.Render("Already up to date."))
		return
	}

	fmt.Fprintf(p.out, "%s %d added, %d modified, %d deleted (%s)\n",
		p.styles.Success.Render("Synced:"),
		res.Added, res.Modified, res.Deleted,
		res.Duration.Round(time.Millisecond))

	if res.Errors > 0 {
		fmt.Fprintln(p.out, p.styles.Warning.Render(
			fmt.Sprintf("%d document(s) failed; they will be retried on the next sync", res.Errors)))
	}
}

// Changes renders a pending change set without applying it.
func (p *Printer) Changes(changes *knowledge.ChangeSet) {
	if !changes.HasChanges() {
		fmt.Fprintln(p.out, p.styles.Dim.Render("No pending changes."))
		return
	}

	for _, path := range changes.New {
		fmt.Fprintf(p.out, "%s %s\n", p.styles.Success.Render("new:"), path)
	}
	for _, path := range changes.Modified {
		fmt.Fprintf(p.out, "%s %s\n", p.styles.Warning.Render("modified:"), path)
	}
	for _, path := range changes.Deleted {
		fmt.Fprintf(p.out, "%s %s\n", p.styles.Error.Render("deleted:"), path)
	}
	fmt.Fprintf(p.out, "\n%d change(s) pending\n", changes.Total())
}

// Status renders the engine's persistent state.
func (p *Printer) Status(st *knowledge.Status) {
	last := "never"
	if st.LastSync != nil {
		last = st.LastSync.Format("2006-01-02 15:04:05")
	}

	fmt.Fprintln(p.out, p.styles.Header.Render("recall status"))
	fmt.Fprintf(p.out, "  %s %s\n", p.styles.Dim.Render("store:"), st.StoreRoot)
	fmt.Fprintf(p.out, "  %s %s\n", p.styles.Dim.Render("state:"), st.StatePath)
	fmt.Fprintf(p.out, "  %s %s\n", p.styles.Dim.Render("last sync:"), last)
	fmt.Fprintf(p.out, "  %s %d\n", p.styles.Dim.Render("tracked:"), st.TrackedDocs)
	fmt.Fprintf(p.out, "  %s %d\n", p.styles.Dim.Render("indexed:"), st.IndexedDocs)
}

// Errorf renders an error line.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
