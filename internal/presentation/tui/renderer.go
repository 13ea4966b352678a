package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ReportMarkdown formats a run report as a markdown document: a summary line and one
// table row per process.
func ReportMarkdown(title string, rep domain.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	state := "running"
	if rep.Quiescent {
		state = "quiescent"
	}
	fmt.Fprintf(&sb, "Run `%s` is **%s** at t = %g, %d delivered, %d in flight.\n\n",
		rep.RunID, state, rep.Now, rep.Delivered, rep.InFlight)

	if len(rep.Processes) == 0 {
		sb.WriteString("_No processes._\n")
		return sb.String()
	}
	sb.WriteString("| Process | Status | Parent | Sent | Received | Fields |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range rep.Processes {
		status := string(p.Status)
		if p.Decided {
			status += " (decided)"
		}
		if p.Initiator {
			status += " *"
		}
		if p.Error != "" {
			status += ": " + p.Error
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %d | %d | %s |\n",
			p.Label, escape(status), p.Parent.String(), p.Sent, p.Received, escape(fields(p.Fields)))
	}
	sb.WriteString("\n`*` initiator\n")
	return sb.String()
}

func fields(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(parts, " ")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
