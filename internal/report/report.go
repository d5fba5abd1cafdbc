// Package report renders a pass report for the terminal.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/foresyt/fleetsync/internal/models"
)

var (
	header  = color.New(color.Bold)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	warning = color.New(color.FgYellow)
)

// Render writes a human-readable pass summary. Every counter is printed,
// including zeros, so an operator can account for each record that entered
// the pass.
func Render(w io.Writer, r *models.PassReport) {
	header.Fprintf(w, "Sync pass %s -> %s (%s)\n",
		r.Started.Format("15:04:05"), r.Finished.Format("15:04:05"),
		r.Finished.Sub(r.Started).Round(1e7),
	)

	fmt.Fprintln(w, "Fetched:")
	for _, source := range sortedKeys(r.FetchedBySource) {
		fmt.Fprintf(w, "  %-28s %d\n", source, r.FetchedBySource[source])
	}
	for _, source := range sortedKeys(r.ProviderErrors) {
		bad.Fprintf(w, "  %-28s failed: %s\n", source, r.ProviderErrors[source])
	}

	fmt.Fprintf(w, "Normalized:           %d (skipped %d)\n", r.Normalized, r.SkippedNormalize)
	fmt.Fprintf(w, "Removed by dedupe:    %d\n", r.RemovedDedupe)
	fmt.Fprintf(w, "Removed as stale:     %d\n", r.RemovedStale)
	fmt.Fprintf(w, "Skipped blocklisted:  %d\n", r.SkippedBlocklisted)

	if r.PersistErrors > 0 {
		bad.Fprintf(w, "Persist errors:       %d\n", r.PersistErrors)
	} else {
		fmt.Fprintf(w, "Persist errors:       0\n")
	}
	good.Fprintf(w, "Positions written:    %d\n", r.Inserted)

	renderAssignments(w, r.Assignments)
}

func renderAssignments(w io.Writer, a models.AssignmentSummary) {
	if a.NoSites {
		warning.Fprintln(w, "Site assignment: no job sites configured")
		return
	}

	fmt.Fprintln(w, "Site assignment:")
	for _, site := range sortedKeys(a.BySite) {
		fmt.Fprintf(w, "  %-28s %d\n", site, a.BySite[site])
	}
	if a.Unassigned > 0 {
		warning.Fprintf(w, "  %-28s %d\n", "(unassigned)", a.Unassigned)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
