package processor

import (
	"context"
	"sync"

	"github.com/niels/repo-status/pkg/config"
	"github.com/niels/repo-status/pkg/progress"
	"github.com/niels/repo-status/pkg/status"
	"golang.org/x/sync/errgroup"
)

// RepositoryChecker checks a single repository and always returns a report,
// failures included
type RepositoryChecker func(ctx context.Context, repo config.Repository) *status.Report

// ConcurrentProcessor checks multiple repositories concurrently with a configurable worker limit
type ConcurrentProcessor struct {
	maxWorkers      int
	checker         RepositoryChecker
	progressTracker progress.Tracker
}

// NewConcurrentProcessor creates a new concurrent processor with the given configuration and checker
func NewConcurrentProcessor(cfg *config.Config, checker RepositoryChecker) *ConcurrentProcessor {
	maxWorkers := cfg.Concurrency.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &ConcurrentProcessor{
		maxWorkers: maxWorkers,
		checker:    checker,
	}
}

// WithProgressTracker sets a custom progress tracker
func (p *ConcurrentProcessor) WithProgressTracker(tracker progress.Tracker) *ConcurrentProcessor {
	p.progressTracker = tracker
	return p
}

// ProcessRepositories checks every repository and returns the reports in input order.
// A failing repository never stops the others.
func (p *ConcurrentProcessor) ProcessRepositories(ctx context.Context, repos []config.Repository) []*status.Report {
	reports := make([]*status.Report, len(repos))
	p.ProcessRepositoriesWithCallback(ctx, repos, func(index int, report *status.Report) {
		reports[index] = report
	})
	return reports
}

// ProcessRepositoriesWithCallback checks every repository and calls callback with
// each report as soon as it is ready. Calls to callback are serialized.
func (p *ConcurrentProcessor) ProcessRepositoriesWithCallback(
	ctx context.Context,
	repos []config.Repository,
	callback func(index int, report *status.Report),
) {
	// Initialize progress tracker
	if p.progressTracker != nil {
		p.progressTracker.Start(len(repos))
	}

	var callbackMutex sync.Mutex
	deliver := func(index int, report *status.Report) {
		// Update progress tracker
		if p.progressTracker != nil {
			if report.Err != nil {
				p.progressTracker.ErrorRepository(report.Path, report.Err.Error())
			} else {
				p.progressTracker.CompleteRepository(report.Path, !report.Dirty())
			}
		}

		if callback != nil {
			callbackMutex.Lock()
			callback(index, report)
			callbackMutex.Unlock()
		}
	}

	// Each goroutine reports its own failure, so the group never returns an error
	var group errgroup.Group
	group.SetLimit(p.maxWorkers)

	for i, repo := range repos {
		group.Go(func() error {
			// Context was cancelled while waiting for a slot
			if err := ctx.Err(); err != nil {
				deliver(i, &status.Report{Path: repo.Path, Err: err})
				return nil
			}

			if p.progressTracker != nil {
				p.progressTracker.StartRepository(repo.Path)
			}

			deliver(i, p.checker(ctx, repo))
			return nil
		})
	}

	_ = group.Wait()

	// Finish progress tracking
	if p.progressTracker != nil {
		p.progressTracker.Finish()
	}
}
