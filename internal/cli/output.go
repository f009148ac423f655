package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/laget-events/internal/calendar"
	"github.com/pfrederiksen/laget-events/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt     time.Time          `json:"checked_at"`
	EventCount    int                `json:"event_count"`
	Events        []*event.Event     `json:"events"`
	ICSPath       string             `json:"ics_path,omitempty"`
	Sync          []*calendar.Result `json:"sync,omitempty"`
	BackendErrors []string           `json:"backend_errors,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.EventCount == 0 {
		fmt.Fprintln(w, "No registrations found.")
	} else {
		fmt.Fprintf(w, "Found %d registrations:\n", result.EventCount)
		for _, evt := range result.Events {
			fmt.Fprintf(w, "  %s: %s\n", evt.Start.Format("Mon 2 Jan 15:04"), evt.Summary())
			if verbose {
				fmt.Fprintf(w, "       UID: %s\n", evt.UID)
				if loc := evt.FullLocation(); loc != "" {
					fmt.Fprintf(w, "       Location: %s\n", loc)
				}
				if evt.Team != "" {
					fmt.Fprintf(w, "       Team: %s\n", evt.Team)
				}
			}
		}
	}

	if result.ICSPath != "" {
		fmt.Fprintf(w, "\nICS export written to %s\n", result.ICSPath)
	}

	for _, sync := range result.Sync {
		fmt.Fprintf(w, "%s: %d added, %d updated, %d unchanged\n",
			sync.Backend, sync.Added, sync.Updated, sync.Unchanged)
		for _, msg := range sync.Errors {
			fmt.Fprintf(w, "  error: %s\n", msg)
		}
	}

	for _, msg := range result.BackendErrors {
		fmt.Fprintf(w, "backend error: %s\n", msg)
	}

	return nil
}
