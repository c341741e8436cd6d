package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/niels/repo-status/pkg/config"
	"github.com/niels/repo-status/pkg/git"
	"github.com/niels/repo-status/pkg/logging"
)

// Checker computes RepoStatus records for working copies
type Checker struct {
	runner       git.CommandRunner
	defaultFetch bool
}

// NewChecker creates a checker running Git through runner.
// defaultFetch applies to repositories that do not set fetch themselves.
func NewChecker(runner git.CommandRunner, defaultFetch bool) *Checker {
	return &Checker{
		runner:       runner,
		defaultFetch: defaultFetch,
	}
}

// Check builds the status of a single repository.
//
// Git is queried in a fixed order: fetch (only when doFetch is set and the
// repository allows it), upstream, divergence, working tree. Any tool failure or
// malformed reply aborts this repository only. A failed fetch does not abort the
// check; CheckReport exposes it as a warning.
func (c *Checker) Check(ctx context.Context, repo config.Repository, doFetch bool) (*RepoStatus, error) {
	report := c.CheckReport(ctx, repo, doFetch)
	return report.Status, report.Err
}

// CheckReport runs a check and records the outcome, fetch warning and duration
func (c *Checker) CheckReport(ctx context.Context, repo config.Repository, doFetch bool) *Report {
	start := time.Now()
	report := &Report{Path: repo.Path}
	report.Status, report.Err = c.check(ctx, repo, doFetch, report)
	report.Duration = time.Since(start)
	return report
}

func (c *Checker) check(ctx context.Context, repo config.Repository, doFetch bool, report *Report) (*RepoStatus, error) {
	log := logging.WithRepository("status", repo.Path)
	dir := repo.Path

	ok, err := git.IsWorkingCopy(ctx, c.runner, dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &git.ToolInvocationError{
			Dir:  dir,
			Args: []string{"rev-parse", "--is-inside-work-tree"},
			Err:  git.ErrNotGitRepository,
		}
	}

	if doFetch && repo.FetchEnabled(c.defaultFetch) {
		log.Debug().Msg("Fetching")
		if err := git.Fetch(ctx, c.runner, dir); err != nil {
			// A missing binary would fail every following query too
			if errors.Is(err, git.ErrGitNotInstalled) || ctx.Err() != nil {
				return nil, err
			}
			log.Warn().Err(err).Msg("Fetch failed, status may be stale")
			report.FetchErr = err
		}
	}

	st := &RepoStatus{}

	upstream, ok, err := git.ResolveUpstream(ctx, c.runner, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upstream: %w", err)
	}
	if ok {
		log.Debug().Str("upstream", upstream).Msg("Upstream resolved")
		st.Ahead, st.Behind, err = git.Divergence(ctx, c.runner, dir, upstream)
		if err != nil {
			return nil, fmt.Errorf("failed to compare with %s: %w", upstream, err)
		}
	} else {
		log.Debug().Msg("No upstream, skipping divergence")
	}

	tree, err := git.Status(ctx, c.runner, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read working tree status: %w", err)
	}
	st.Modified = tree.Modified
	st.Deleted = tree.Deleted
	st.Unknown = tree.Untracked
	st.normalize()

	log.Debug().
		Int("ahead", len(st.Ahead)).
		Int("behind", len(st.Behind)).
		Int("modified", len(st.Modified)).
		Int("deleted", len(st.Deleted)).
		Int("unknown", len(st.Unknown)).
		Bool("clean", st.IsClean()).
		Msg("Repository checked")

	return st, nil
}
