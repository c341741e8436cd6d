package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/niels/repo-status/pkg/config"
	"github.com/niels/repo-status/pkg/git"
	"github.com/niels/repo-status/pkg/logging"
	"github.com/niels/repo-status/pkg/output"
	"github.com/niels/repo-status/pkg/processor"
	"github.com/niels/repo-status/pkg/progress"
	"github.com/niels/repo-status/pkg/status"
)

// ErrNoRepositories is returned when neither the arguments nor the configuration name a repository
var ErrNoRepositories = errors.New("no repositories to check")

// Options represents the options for the status workflow
type Options struct {
	Paths        []string // checked instead of the configured repositories when set
	Fetch        bool
	Format       string
	OutputPath   string
	DirtyOnly    bool
	NoColor      bool
	Workers      int
	ShowProgress bool
	Stdout       io.Writer
}

// Statistics represents the outcome of a batch
type Statistics struct {
	Checked       int
	Clean         int
	Dirty         int
	Failed        int
	FetchWarnings int
	Duration      time.Duration
}

// StatusWorkflow checks a batch of repositories and renders the report
type StatusWorkflow struct {
	options   Options
	config    *config.Config
	checker   *status.Checker
	formatter output.Formatter
	tracker   progress.Tracker
	stdout    io.Writer
}

// NewStatusWorkflow creates a workflow for cfg. A nil runner runs the configured Git binary.
func NewStatusWorkflow(options Options, cfg *config.Config, runner git.CommandRunner) (*StatusWorkflow, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if runner == nil {
		timeout := time.Duration(cfg.Git.Timeout) * time.Second
		runner = git.NewExecRunner(cfg.Git.Binary, timeout)
	}

	stdout := options.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	format := options.Format
	if format == "" {
		format = cfg.Output.Format
	}
	useColor := !options.NoColor && !cfg.Output.NoColor && options.OutputPath == "" && isTerminal(stdout)
	formatter, err := output.NewFormatter(format, useColor)
	if err != nil {
		return nil, err
	}

	if options.Workers > 0 {
		cfg.Concurrency.MaxWorkers = options.Workers
	}

	w := &StatusWorkflow{
		options:   options,
		config:    cfg,
		checker:   status.NewChecker(runner, cfg.Git.Fetch || options.Fetch),
		formatter: formatter,
		stdout:    stdout,
	}
	if options.ShowProgress {
		w.tracker = progress.NewConsoleTracker()
	}

	logging.DebugWith("Status workflow created", map[string]interface{}{
		"format":  format,
		"color":   useColor,
		"workers": cfg.Concurrency.MaxWorkers,
	})

	return w, nil
}

// WithProgressTracker replaces the progress tracker
func (w *StatusWorkflow) WithProgressTracker(tracker progress.Tracker) *StatusWorkflow {
	w.tracker = tracker
	return w
}

// Repositories returns the repositories the workflow will check, in order
func (w *StatusWorkflow) Repositories() []config.Repository {
	if len(w.options.Paths) == 0 {
		return w.config.Repositories
	}

	cwd, _ := os.Getwd()
	repos := make([]config.Repository, 0, len(w.options.Paths))
	for _, path := range w.options.Paths {
		repos = append(repos, config.Repository{Path: config.ExpandPath(path, cwd)})
	}
	return repos
}

// Run checks all repositories, writes the report and returns the statistics
// together with the reports in configuration order
func (w *StatusWorkflow) Run(ctx context.Context) (*Statistics, []*status.Report, error) {
	startTime := time.Now()

	repos := w.Repositories()
	if len(repos) == 0 {
		return nil, nil, ErrNoRepositories
	}

	doFetch := w.options.Fetch || w.config.Git.Fetch
	logging.InfoWith("Checking repositories", map[string]interface{}{
		"count":   len(repos),
		"fetch":   doFetch,
		"workers": w.config.Concurrency.MaxWorkers,
	})

	checkRepository := func(ctx context.Context, repo config.Repository) *status.Report {
		return w.checker.CheckReport(ctx, repo, doFetch)
	}
	concurrentProcessor := processor.NewConcurrentProcessor(w.config, checkRepository)
	if w.tracker != nil {
		concurrentProcessor = concurrentProcessor.WithProgressTracker(w.tracker)
	}

	reports := concurrentProcessor.ProcessRepositories(ctx, repos)

	stats := collectStatistics(reports)
	stats.Duration = time.Since(startTime)

	for _, report := range reports {
		if report.Failed() {
			logging.ErrorWith("Repository check failed", map[string]interface{}{
				"path":  report.Path,
				"error": report.Err.Error(),
			})
		}
	}

	if err := w.writeReport(reports); err != nil {
		return stats, reports, err
	}

	logging.InfoWith("Status workflow completed", map[string]interface{}{
		"checked":  stats.Checked,
		"clean":    stats.Clean,
		"dirty":    stats.Dirty,
		"failed":   stats.Failed,
		"duration": stats.Duration.String(),
	})

	// Context cancellation is not a per-repository failure
	if err := ctx.Err(); err != nil {
		return stats, reports, err
	}

	return stats, reports, nil
}

func (w *StatusWorkflow) writeReport(reports []*status.Report) error {
	shown := reports
	if w.options.DirtyOnly || w.config.Output.DirtyOnly {
		shown = output.FilterDirty(reports)
	}

	content := w.formatter.FormatReports(shown)

	if w.options.OutputPath != "" {
		if err := output.WriteToFile(content, w.options.OutputPath); err != nil {
			return err
		}
		logging.InfoWith("Report written", map[string]interface{}{
			"path": w.options.OutputPath,
		})
		return nil
	}

	if _, err := io.WriteString(w.stdout, content); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func collectStatistics(reports []*status.Report) *Statistics {
	stats := &Statistics{Checked: len(reports)}
	for _, report := range reports {
		switch {
		case report.Failed():
			stats.Failed++
		case report.Dirty():
			stats.Dirty++
		default:
			stats.Clean++
		}
		if report.FetchErr != nil {
			stats.FetchWarnings++
		}
	}
	return stats
}

// ExitCode maps the statistics to the process exit status
func (s *Statistics) ExitCode(failDirty bool) int {
	if s.Failed > 0 || (failDirty && s.Dirty > 0) {
		return 1
	}
	return 0
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

