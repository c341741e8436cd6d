package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/niels/repo-status/pkg/git"
	"github.com/niels/repo-status/pkg/status"
)

// MarkdownFormatter formats reports as markdown
type MarkdownFormatter struct {
	now func() time.Time
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{now: time.Now}
}

// FormatReports renders a summary table followed by one section per repository needing attention
func (f *MarkdownFormatter) FormatReports(reports []*status.Report) string {
	var sb strings.Builder

	// Add header and metadata
	sb.WriteString("# Repository Status Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated on: %s\n\n", f.now().Format(time.RFC1123)))

	if len(reports) == 0 {
		sb.WriteString("No repositories need attention.\n")
		return sb.String()
	}

	sb.WriteString("| Repository | State | Details |\n")
	sb.WriteString("|------------|-------|---------|\n")
	for _, report := range reports {
		state, details := "clean", ""
		switch {
		case report.Failed():
			state, details = "error", report.Err.Error()
		case report.Dirty():
			state, details = "dirty", Summary(report.Status)
		}
		if report.FetchErr != nil {
			details = strings.TrimPrefix(details+"; fetch failed", "; ")
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", report.Path, state, escapeCell(details)))
	}
	sb.WriteString("\n")

	for _, report := range reports {
		if !report.Dirty() {
			continue
		}
		st := report.Status

		sb.WriteString(fmt.Sprintf("## %s\n\n", report.Path))
		writeMarkdownCommits(&sb, "Ahead", st.Ahead)
		writeMarkdownCommits(&sb, "Behind", st.Behind)
		writeMarkdownPaths(&sb, "Modified", st.Modified)
		writeMarkdownPaths(&sb, "Deleted", st.Deleted)
		writeMarkdownPaths(&sb, "Unknown", st.Unknown)
	}

	return sb.String()
}

func writeMarkdownCommits(sb *strings.Builder, title string, commits []git.CommitID) {
	if len(commits) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	for _, id := range commits {
		sb.WriteString(fmt.Sprintf("- `%s`\n", id))
	}
	sb.WriteString("\n")
}

func writeMarkdownPaths(sb *strings.Builder, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	for _, path := range paths {
		sb.WriteString(fmt.Sprintf("- `%s`\n", path))
	}
	sb.WriteString("\n")
}

// escapeCell keeps a value from breaking the table layout
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
