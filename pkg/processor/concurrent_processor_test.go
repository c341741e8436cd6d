package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/niels/repo-status/pkg/config"
	"github.com/niels/repo-status/pkg/git"
	"github.com/niels/repo-status/pkg/status"
)

// MockTracker is a mock implementation of the progress.Tracker interface for testing
type MockTracker struct {
	mu           sync.Mutex
	started      bool
	startedRepos map[string]bool
	completed    map[string]bool
	errorRepos   map[string]string
	finished     bool
}

func NewMockTracker() *MockTracker {
	return &MockTracker{
		startedRepos: make(map[string]bool),
		completed:    make(map[string]bool),
		errorRepos:   make(map[string]string),
	}
}

func (t *MockTracker) Start(total int) {
	t.started = true
}

func (t *MockTracker) StartRepository(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedRepos[path] = true
}

func (t *MockTracker) CompleteRepository(path string, clean bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed[path] = clean
}

func (t *MockTracker) ErrorRepository(path string, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorRepos[path] = message
}

func (t *MockTracker) Finish() {
	t.finished = true
}

func testRepos() []config.Repository {
	return []config.Repository{
		{Path: "/srv/alpha"},
		{Path: "/srv/beta"},
		{Path: "/srv/gamma"},
		{Path: "/srv/delta"},
	}
}

func TestConcurrentProcessor(t *testing.T) {
	cfg := &config.Config{
		Concurrency: config.ConcurrencyConfig{
			MaxWorkers: 2,
		},
	}

	t.Run("Reports keep input order", func(t *testing.T) {
		tracker := NewMockTracker()

		// Later repositories finish first
		delays := map[string]time.Duration{
			"/srv/alpha": 30 * time.Millisecond,
			"/srv/beta":  20 * time.Millisecond,
			"/srv/gamma": 10 * time.Millisecond,
		}
		checker := func(ctx context.Context, repo config.Repository) *status.Report {
			time.Sleep(delays[repo.Path])
			st := &status.RepoStatus{}
			if repo.Path == "/srv/gamma" {
				st.Unknown = []string{"new.txt"}
			}
			return &status.Report{Path: repo.Path, Status: st}
		}

		processor := NewConcurrentProcessor(cfg, checker).WithProgressTracker(tracker)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		repos := testRepos()
		reports := processor.ProcessRepositories(ctx, repos)

		if len(reports) != len(repos) {
			t.Fatalf("Expected %d reports, got %d", len(repos), len(reports))
		}
		for i, report := range reports {
			if report.Path != repos[i].Path {
				t.Errorf("Expected report %d for %s, got %s", i, repos[i].Path, report.Path)
			}
		}

		if !tracker.started || !tracker.finished {
			t.Error("Tracker was not started and finished")
		}
		if len(tracker.startedRepos) != 4 {
			t.Errorf("Expected 4 started repositories, got %d", len(tracker.startedRepos))
		}
		if clean, ok := tracker.completed["/srv/gamma"]; !ok || clean {
			t.Errorf("Expected /srv/gamma to complete dirty")
		}
		if clean, ok := tracker.completed["/srv/alpha"]; !ok || !clean {
			t.Errorf("Expected /srv/alpha to complete clean")
		}
	})

	t.Run("Failures are isolated", func(t *testing.T) {
		tracker := NewMockTracker()

		checker := func(ctx context.Context, repo config.Repository) *status.Report {
			if repo.Path == "/srv/beta" {
				return &status.Report{Path: repo.Path, Err: git.ErrNotGitRepository}
			}
			return &status.Report{Path: repo.Path, Status: &status.RepoStatus{}}
		}

		processor := NewConcurrentProcessor(cfg, checker).WithProgressTracker(tracker)
		reports := processor.ProcessRepositories(context.Background(), testRepos())

		failed := 0
		for _, report := range reports {
			if report.Failed() {
				failed++
				if !errors.Is(report.Err, git.ErrNotGitRepository) {
					t.Errorf("Unexpected error: %v", report.Err)
				}
			}
		}
		if failed != 1 {
			t.Errorf("Expected 1 failed report, got %d", failed)
		}
		if len(tracker.completed) != 3 {
			t.Errorf("Expected 3 completed repositories, got %d", len(tracker.completed))
		}
		if msg, ok := tracker.errorRepos["/srv/beta"]; !ok || msg != git.ErrNotGitRepository.Error() {
			t.Errorf("Expected /srv/beta to be reported as failed, got %q", msg)
		}
	})

	t.Run("Worker limit is honoured", func(t *testing.T) {
		var running, peak int32

		checker := func(ctx context.Context, repo config.Repository) *status.Report {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return &status.Report{Path: repo.Path, Status: &status.RepoStatus{}}
		}

		NewConcurrentProcessor(cfg, checker).ProcessRepositories(context.Background(), testRepos())

		if peak > 2 {
			t.Errorf("Expected at most 2 concurrent checks, got %d", peak)
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := int32(0)
		checker := func(ctx context.Context, repo config.Repository) *status.Report {
			atomic.AddInt32(&called, 1)
			return &status.Report{Path: repo.Path, Status: &status.RepoStatus{}}
		}

		reports := NewConcurrentProcessor(cfg, checker).ProcessRepositories(ctx, testRepos())
		for _, report := range reports {
			if !errors.Is(report.Err, context.Canceled) {
				t.Errorf("Expected context.Canceled for %s, got %v", report.Path, report.Err)
			}
		}
		if called != 0 {
			t.Errorf("Expected no checks after cancellation, got %d", called)
		}
	})
}

func TestNewConcurrentProcessorMinimumWorkers(t *testing.T) {
	processor := NewConcurrentProcessor(&config.Config{}, nil)
	if processor.maxWorkers != 1 {
		t.Errorf("Expected at least one worker, got %d", processor.maxWorkers)
	}
}
