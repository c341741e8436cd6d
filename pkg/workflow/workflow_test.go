package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/niels/repo-status/pkg/config"
)

// MockRunner answers Git invocations per directory, keyed by the joined arguments
type MockRunner struct {
	mu      sync.Mutex
	replies map[string]map[string]string
	calls   map[string][]string
}

func NewMockRunner() *MockRunner {
	return &MockRunner{
		replies: make(map[string]map[string]string),
		calls:   make(map[string][]string),
	}
}

func (m *MockRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.Join(args, " ")
	m.calls[dir] = append(m.calls[dir], key)

	reply, ok := m.replies[dir][key]
	if !ok {
		return "fatal: not a git repository (or any of the parent directories): .git\n", nil
	}
	return reply, nil
}

func (m *MockRunner) addRepository(dir, statusOutput string) {
	m.replies[dir] = map[string]string{
		"rev-parse --is-inside-work-tree":          "true\n",
		"fetch --quiet":                            "",
		"rev-parse --abbrev-ref @{upstream}":       "origin/main\n",
		"rev-list --left-right HEAD...origin/main": "",
		"status --porcelain":                       statusOutput,
	}
}

func (m *MockRunner) called(dir, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.calls[dir] {
		if call == key {
			return true
		}
	}
	return false
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Repositories = []config.Repository{
		{Path: "/srv/clean"},
		{Path: "/srv/dirty"},
		{Path: "/srv/missing"},
	}
	return cfg
}

func testRunner() *MockRunner {
	runner := NewMockRunner()
	runner.addRepository("/srv/clean", "")
	runner.addRepository("/srv/dirty", " M main.go\n?? notes.txt\n")
	return runner
}

func TestStatusWorkflowRun(t *testing.T) {
	var buf bytes.Buffer
	options := Options{Format: "json", Stdout: &buf}

	w, err := NewStatusWorkflow(options, testConfig(), testRunner())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}

	stats, reports, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stats.Checked != 3 || stats.Clean != 1 || stats.Dirty != 1 || stats.Failed != 1 {
		t.Errorf("Unexpected statistics: %+v", stats)
	}
	if len(reports) != 3 || reports[1].Path != "/srv/dirty" {
		t.Fatalf("Expected reports in configuration order, got %d", len(reports))
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded) != 3 {
		t.Fatalf("Expected 3 JSON reports, got %d", len(decoded))
	}
	if decoded[0]["clean"] != true {
		t.Errorf("Expected /srv/clean to be clean: %v", decoded[0])
	}
	if _, ok := decoded[2]["error"]; !ok {
		t.Errorf("Expected an error for /srv/missing: %v", decoded[2])
	}
}

func TestStatusWorkflowDirtyOnly(t *testing.T) {
	var buf bytes.Buffer
	options := Options{Format: "terminal", NoColor: true, DirtyOnly: true, Stdout: &buf}

	w, err := NewStatusWorkflow(options, testConfig(), testRunner())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}

	stats, _, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.Checked != 3 {
		t.Errorf("Filtering must not change the statistics, got %+v", stats)
	}

	out := buf.String()
	if strings.Contains(out, "/srv/clean") {
		t.Errorf("Clean repository should be filtered out:\n%s", out)
	}
	if !strings.Contains(out, "● /srv/dirty  1 modified, 1 unknown") {
		t.Errorf("Expected dirty repository summary:\n%s", out)
	}
	if !strings.Contains(out, "✗ /srv/missing") {
		t.Errorf("Expected failed repository:\n%s", out)
	}
}

func TestStatusWorkflowFetch(t *testing.T) {
	noFetch := false
	cfg := config.Default()
	cfg.Repositories = []config.Repository{
		{Path: "/srv/clean"},
		{Path: "/srv/dirty", Fetch: &noFetch},
	}
	runner := testRunner()

	w, err := NewStatusWorkflow(Options{Fetch: true, Stdout: &bytes.Buffer{}}, cfg, runner)
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}
	if _, _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !runner.called("/srv/clean", "fetch --quiet") {
		t.Error("Expected /srv/clean to be fetched")
	}
	if runner.called("/srv/dirty", "fetch --quiet") {
		t.Error("Expected /srv/dirty not to be fetched")
	}
}

func TestStatusWorkflowNoRepositories(t *testing.T) {
	w, err := NewStatusWorkflow(Options{Stdout: &bytes.Buffer{}}, config.Default(), NewMockRunner())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}

	_, _, err = w.Run(context.Background())
	if !errors.Is(err, ErrNoRepositories) {
		t.Errorf("Expected ErrNoRepositories, got %v", err)
	}
}

func TestStatusWorkflowPaths(t *testing.T) {
	w, err := NewStatusWorkflow(Options{Paths: []string{"/srv/dirty", "relative"}}, testConfig(), testRunner())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}

	repos := w.Repositories()
	if len(repos) != 2 {
		t.Fatalf("Expected 2 repositories, got %d", len(repos))
	}
	if repos[0].Path != "/srv/dirty" {
		t.Errorf("Expected /srv/dirty, got %s", repos[0].Path)
	}

	cwd, _ := os.Getwd()
	if repos[1].Path != filepath.Join(cwd, "relative") {
		t.Errorf("Expected relative path to be resolved against %s, got %s", cwd, repos[1].Path)
	}
}

func TestStatusWorkflowOutputFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "reports", "status.md")
	var stdout bytes.Buffer

	w, err := NewStatusWorkflow(Options{Format: "markdown", OutputPath: outputPath, Stdout: &stdout}, testConfig(), testRunner())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}
	if _, _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stdout.Len() != 0 {
		t.Errorf("Expected nothing on stdout, got %q", stdout.String())
	}
	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Report was not written: %v", err)
	}
	if !strings.Contains(string(data), "# Repository Status Report") {
		t.Errorf("Unexpected report content:\n%s", data)
	}
}

func TestNewStatusWorkflowInvalidFormat(t *testing.T) {
	_, err := NewStatusWorkflow(Options{Format: "xml"}, config.Default(), NewMockRunner())
	if err == nil {
		t.Error("Expected an error for an unsupported format")
	}
}

func TestStatisticsExitCode(t *testing.T) {
	tests := []struct {
		name      string
		stats     Statistics
		failDirty bool
		want      int
	}{
		{"all clean", Statistics{Checked: 2, Clean: 2}, true, 0},
		{"dirty tolerated", Statistics{Checked: 2, Clean: 1, Dirty: 1}, false, 0},
		{"dirty fails", Statistics{Checked: 2, Clean: 1, Dirty: 1}, true, 1},
		{"failure", Statistics{Checked: 2, Clean: 1, Failed: 1}, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.ExitCode(tt.failDirty); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.failDirty, got, tt.want)
			}
		})
	}
}
