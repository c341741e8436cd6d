package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/niels/repo-status/pkg/git"
	"github.com/niels/repo-status/pkg/status"
)

// TerminalFormatter formats reports for terminal output
type TerminalFormatter struct {
	clean   *color.Color
	dirty   *color.Color
	failed  *color.Color
	warning *color.Color
	section *color.Color
	detail  *color.Color
}

// NewTerminalFormatter creates a new terminal formatter
func NewTerminalFormatter(useColor bool) *TerminalFormatter {
	f := &TerminalFormatter{
		clean:   color.New(color.FgGreen, color.Bold),
		dirty:   color.New(color.FgYellow, color.Bold),
		failed:  color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgMagenta),
		section: color.New(color.FgCyan),
		detail:  color.New(color.Faint),
	}

	for _, c := range []*color.Color{f.clean, f.dirty, f.failed, f.warning, f.section, f.detail} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return f
}

// FormatReports renders one block per repository, in report order
func (f *TerminalFormatter) FormatReports(reports []*status.Report) string {
	if len(reports) == 0 {
		return f.clean.Sprint("No repositories need attention.") + "\n"
	}

	var sb strings.Builder
	for _, report := range reports {
		sb.WriteString(f.FormatReport(report))
	}
	return sb.String()
}

// FormatReport renders a single repository
func (f *TerminalFormatter) FormatReport(report *status.Report) string {
	var sb strings.Builder

	switch {
	case report.Failed():
		sb.WriteString(f.failed.Sprintf("✗ %s", report.Path))
		sb.WriteString("\n")
		sb.WriteString(f.failed.Sprintf("    error: %v", report.Err))
		sb.WriteString("\n")
		return sb.String()
	case report.Dirty():
		sb.WriteString(f.dirty.Sprintf("● %s", report.Path))
		sb.WriteString("  ")
		sb.WriteString(f.detail.Sprint(Summary(report.Status)))
	default:
		sb.WriteString(f.clean.Sprintf("✓ %s", report.Path))
	}
	sb.WriteString("\n")

	if report.FetchErr != nil {
		sb.WriteString(f.warning.Sprintf("    fetch failed, status may be stale: %v", report.FetchErr))
		sb.WriteString("\n")
	}

	if report.Dirty() {
		st := report.Status
		f.writeCommits(&sb, "Ahead", st.Ahead)
		f.writeCommits(&sb, "Behind", st.Behind)
		f.writePaths(&sb, "Modified", st.Modified)
		f.writePaths(&sb, "Deleted", st.Deleted)
		f.writePaths(&sb, "Unknown", st.Unknown)
	}

	return sb.String()
}

func (f *TerminalFormatter) writeCommits(sb *strings.Builder, title string, commits []git.CommitID) {
	if len(commits) == 0 {
		return
	}
	sb.WriteString(f.section.Sprintf("    %s (%d)", title, len(commits)))
	sb.WriteString("\n")
	for _, id := range commits {
		fmt.Fprintf(sb, "      %s\n", shortID(id))
	}
}

func (f *TerminalFormatter) writePaths(sb *strings.Builder, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	sb.WriteString(f.section.Sprintf("    %s (%d)", title, len(paths)))
	sb.WriteString("\n")
	for _, path := range paths {
		fmt.Fprintf(sb, "      %s\n", path)
	}
}

// Summary returns a one-line description of what is outstanding, e.g. "2 ahead, 1 unknown"
func Summary(st *status.RepoStatus) string {
	if st == nil || st.IsClean() {
		return "clean"
	}

	var parts []string
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		}
	}
	add(len(st.Ahead), "ahead")
	add(len(st.Behind), "behind")
	add(len(st.Modified), "modified")
	add(len(st.Deleted), "deleted")
	add(len(st.Unknown), "unknown")

	return strings.Join(parts, ", ")
}

// shortID abbreviates a commit id for display
func shortID(id git.CommitID) string {
	if len(id) > 12 {
		return string(id[:12])
	}
	return string(id)
}
