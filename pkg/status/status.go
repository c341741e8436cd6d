// Package status assembles the per-repository status record from Git queries.
package status

import (
	"time"

	"github.com/niels/repo-status/pkg/git"
)

// RepoStatus is the state of one working copy at the time it was checked.
// It is built once by Checker.Check and never modified afterwards.
type RepoStatus struct {
	Ahead    []git.CommitID `json:"ahead" yaml:"ahead"`
	Behind   []git.CommitID `json:"behind" yaml:"behind"`
	Modified []string       `json:"modified" yaml:"modified"`
	Deleted  []string       `json:"deleted" yaml:"deleted"`
	Unknown  []string       `json:"unknown" yaml:"unknown"`
}

// IsClean reports whether there is nothing to commit, push or pull
func (s *RepoStatus) IsClean() bool {
	return len(s.Ahead) == 0 &&
		len(s.Behind) == 0 &&
		len(s.Modified) == 0 &&
		len(s.Deleted) == 0 &&
		len(s.Unknown) == 0
}

// normalize replaces nil collections with empty ones so serialized records
// always carry all five lists
func (s *RepoStatus) normalize() {
	if s.Ahead == nil {
		s.Ahead = []git.CommitID{}
	}
	if s.Behind == nil {
		s.Behind = []git.CommitID{}
	}
	if s.Modified == nil {
		s.Modified = []string{}
	}
	if s.Deleted == nil {
		s.Deleted = []string{}
	}
	if s.Unknown == nil {
		s.Unknown = []string{}
	}
}

// Report is the outcome of checking one configured repository
type Report struct {
	Path     string
	Status   *RepoStatus // nil when Err is set
	Err      error
	FetchErr error // refresh failure, the status may be stale
	Duration time.Duration
}

// Failed reports whether the repository could not be checked
func (r *Report) Failed() bool {
	return r.Err != nil
}

// Dirty reports whether the repository was checked and needs attention
func (r *Report) Dirty() bool {
	return r.Err == nil && r.Status != nil && !r.Status.IsClean()
}
