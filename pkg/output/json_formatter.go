package output

import (
	"bytes"
	"encoding/json"

	"github.com/alecthomas/chroma/quick"
	"github.com/niels/repo-status/pkg/status"
)

// JSONReport is the serialized form of a status.Report
type JSONReport struct {
	Path         string             `json:"path"`
	Clean        bool               `json:"clean"`
	Status       *status.RepoStatus `json:"status,omitempty"`
	Error        string             `json:"error,omitempty"`
	FetchWarning string             `json:"fetch_warning,omitempty"`
	DurationMS   int64              `json:"duration_ms"`
}

// JSONFormatter formats reports as an indented JSON array
type JSONFormatter struct {
	highlight bool
}

// NewJSONFormatter creates a JSON formatter, syntax highlighted when highlight is set
func NewJSONFormatter(highlight bool) *JSONFormatter {
	return &JSONFormatter{highlight: highlight}
}

// ToJSONReports converts reports to their serialized form
func ToJSONReports(reports []*status.Report) []JSONReport {
	out := make([]JSONReport, 0, len(reports))
	for _, report := range reports {
		jr := JSONReport{
			Path:       report.Path,
			Status:     report.Status,
			Clean:      !report.Failed() && !report.Dirty(),
			DurationMS: report.Duration.Milliseconds(),
		}
		if report.Err != nil {
			jr.Error = report.Err.Error()
		}
		if report.FetchErr != nil {
			jr.FetchWarning = report.FetchErr.Error()
		}
		out = append(out, jr)
	}
	return out
}

// FormatReports renders the reports as JSON
func (f *JSONFormatter) FormatReports(reports []*status.Report) string {
	data, err := json.MarshalIndent(ToJSONReports(reports), "", "  ")
	if err != nil {
		// Only plain strings and slices are marshalled, this cannot fail
		return "[]\n"
	}
	plain := string(data) + "\n"

	if !f.highlight {
		return plain
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, plain, "json", "terminal256", "monokai"); err != nil {
		return plain
	}
	return buf.String()
}
