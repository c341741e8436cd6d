package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/niels/repo-status/pkg/logging"
)

// Common errors
var (
	ErrNotGitRepository = errors.New("not a Git repository")
	ErrGitNotInstalled  = errors.New("Git executable not found")
	ErrPathNotFound     = errors.New("working copy path does not exist")
)

// DefaultBinary is the Git executable used when none is configured
const DefaultBinary = "git"

// ToolInvocationError reports that the Git tool could not be run against a working copy
type ToolInvocationError struct {
	Dir  string
	Args []string
	Err  error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("git %s in %s: %v", strings.Join(e.Args, " "), e.Dir, e.Err)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}

// CommandRunner runs a Git subcommand against a working copy and returns its raw output.
// The output is returned whatever the exit status of the tool; an error is only
// returned when the tool could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner implements CommandRunner using os/exec
type ExecRunner struct {
	// Binary is the Git executable to run
	Binary string
	// Timeout bounds a single invocation, zero means no limit
	Timeout time.Duration
}

// NewExecRunner creates a new ExecRunner for the given Git binary
func NewExecRunner(binary string, timeout time.Duration) *ExecRunner {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &ExecRunner{
		Binary:  binary,
		Timeout: timeout,
	}
}

// Run executes the Git binary inside dir. A successful run replies with stdout only;
// a non-zero exit replies with stderr followed by stdout.
// The working directory is set on the child process only, so concurrent runs
// against different paths never observe each other's directory.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &ToolInvocationError{Dir: dir, Args: args, Err: ErrPathNotFound}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir
	// Keep replies in the C locale so failure prefixes stay stable
	cmd.Env = append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		// A non-zero exit still produced a reply the caller inspects.
		// Git writes its fatal: line to stderr, so it leads the reply.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return stderr.String() + stdout.String(), nil
		}

		// Check if Git is not installed
		if errors.Is(err, exec.ErrNotFound) {
			return "", &ToolInvocationError{Dir: dir, Args: args, Err: ErrGitNotInstalled}
		}

		if ctx.Err() != nil {
			return "", &ToolInvocationError{Dir: dir, Args: args, Err: ctx.Err()}
		}

		return "", &ToolInvocationError{Dir: dir, Args: args, Err: err}
	}

	// Warnings of a successful run are not part of the reply
	if stderr.Len() > 0 {
		log := logging.WithRepository("git", dir)
		log.Debug().
			Strs("args", args).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Msg("Git wrote diagnostics")
	}

	return stdout.String(), nil
}
