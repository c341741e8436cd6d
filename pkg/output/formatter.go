package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/niels/repo-status/pkg/status"
)

// Output formats
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Formatter renders a batch of reports
type Formatter interface {
	FormatReports(reports []*status.Report) string
}

// NewFormatter returns the formatter for the named format
func NewFormatter(format string, useColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatTerminal:
		return NewTerminalFormatter(useColor), nil
	case FormatJSON:
		return NewJSONFormatter(useColor), nil
	case FormatMarkdown, "md":
		return NewMarkdownFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// FilterDirty keeps the reports that need attention: dirty or failed ones
func FilterDirty(reports []*status.Report) []*status.Report {
	var filtered []*status.Report
	for _, report := range reports {
		if report.Failed() || report.Dirty() || report.FetchErr != nil {
			filtered = append(filtered, report)
		}
	}
	return filtered
}

// WriteToFile writes a rendered report, creating the parent directory if needed
func WriteToFile(content, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
