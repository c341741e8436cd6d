package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Status represents the status of a repository being checked
type Status string

const (
	// StatusChecking indicates the repository is currently being checked
	StatusChecking Status = "checking"
	// StatusClean indicates the repository was checked and needs no attention
	StatusClean Status = "clean"
	// StatusDirty indicates the repository was checked and has outstanding work
	StatusDirty Status = "dirty"
	// StatusError indicates the repository could not be checked
	StatusError Status = "error"
)

// RepositoryProgress represents the progress of a single repository
type RepositoryProgress struct {
	Path      string
	Status    Status
	StartTime time.Time
	EndTime   time.Time
	Message   string
}

// Tracker is an interface for tracking progress of a batch of checks
type Tracker interface {
	// Start initializes the progress tracker with the total number of repositories
	Start(total int)
	// StartRepository marks a repository as being checked
	StartRepository(path string)
	// CompleteRepository marks a repository as checked
	CompleteRepository(path string, clean bool)
	// ErrorRepository marks a repository as failed with an error message
	ErrorRepository(path string, message string)
	// Finish completes the progress tracking
	Finish()
}

// ConsoleTracker implements Tracker for console output
type ConsoleTracker struct {
	mu           sync.Mutex
	writer       io.Writer
	total        int
	repositories map[string]*RepositoryProgress
	startTime    time.Time
	spinner      []string
	spinnerIndex int
	lastUpdate   time.Time
	clean        int
	dirty        int
	errors       int
}

// NewConsoleTracker creates a new console progress tracker writing to stderr
func NewConsoleTracker() *ConsoleTracker {
	return &ConsoleTracker{
		writer:       os.Stderr,
		repositories: make(map[string]*RepositoryProgress),
		spinner:      []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// WithWriter sets the writer for the console tracker
func (t *ConsoleTracker) WithWriter(writer io.Writer) *ConsoleTracker {
	t.writer = writer
	return t
}

// Start initializes the progress tracker with the total number of repositories
func (t *ConsoleTracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.startTime = time.Now()
	t.clean = 0
	t.dirty = 0
	t.errors = 0
}

// StartRepository marks a repository as being checked
func (t *ConsoleTracker) StartRepository(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.repositories[path] = &RepositoryProgress{
		Path:      path,
		Status:    StatusChecking,
		StartTime: time.Now(),
	}

	t.updateProgress()
}

// CompleteRepository marks a repository as checked
func (t *ConsoleTracker) CompleteRepository(path string, clean bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := StatusDirty
	if clean {
		st = StatusClean
		t.clean++
	} else {
		t.dirty++
	}
	t.finishRepository(path, st, "")
	t.updateProgress()
}

// ErrorRepository marks a repository as failed with an error message
func (t *ConsoleTracker) ErrorRepository(path string, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.errors++
	t.finishRepository(path, StatusError, message)
	t.updateProgress()
}

// Finish completes the progress tracking
func (t *ConsoleTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Clear the progress line
	fmt.Fprint(t.writer, "\r\033[K")

	duration := time.Since(t.startTime).Round(time.Millisecond)
	fmt.Fprintf(t.writer, "Checked %d repositories in %s: %s, %s, %s\n",
		t.total, duration,
		color.GreenString("%d clean", t.clean),
		color.YellowString("%d dirty", t.dirty),
		color.RedString("%d failed", t.errors))
}

// Counts returns the number of clean, dirty and failed repositories so far
func (t *ConsoleTracker) Counts() (clean, dirty, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clean, t.dirty, t.errors
}

func (t *ConsoleTracker) finishRepository(path string, st Status, message string) {
	now := time.Now()
	if progress, ok := t.repositories[path]; ok {
		progress.Status = st
		progress.EndTime = now
		progress.Message = message
		return
	}
	t.repositories[path] = &RepositoryProgress{
		Path:      path,
		Status:    st,
		StartTime: now,
		EndTime:   now,
		Message:   message,
	}
}

// updateProgress updates the progress display
func (t *ConsoleTracker) updateProgress() {
	// Only update at most 10 times per second to avoid flickering
	if time.Since(t.lastUpdate) < 100*time.Millisecond {
		return
	}
	t.lastUpdate = time.Now()

	// Clear the current line
	fmt.Fprint(t.writer, "\r\033[K")

	done := t.clean + t.dirty + t.errors
	ratio := 0.0
	if t.total > 0 {
		ratio = float64(done) / float64(t.total)
	}

	t.spinnerIndex = (t.spinnerIndex + 1) % len(t.spinner)

	msg := fmt.Sprintf("%s %s %d/%d repositories (%.0f%%)",
		t.spinner[t.spinnerIndex], createProgressBar(ratio, 20), done, t.total, ratio*100)

	// Show one repository still being checked
	for path, progress := range t.repositories {
		if progress.Status == StatusChecking {
			if len(path) > 30 {
				path = "..." + path[len(path)-27:]
			}
			msg += fmt.Sprintf(" | Checking: %s", color.CyanString(path))
			break
		}
	}

	fmt.Fprint(t.writer, msg)
}

// createProgressBar creates a visual progress bar
func createProgressBar(ratio float64, width int) string {
	completed := int(ratio * float64(width))
	remaining := width - completed

	bar := "[" + color.GreenString(strings.Repeat("=", completed))
	if remaining > 0 {
		bar += ">" + strings.Repeat(" ", remaining-1)
	}
	return bar + "]"
}
