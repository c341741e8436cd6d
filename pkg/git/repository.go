package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFetchFailed is returned when a refreshing fetch reported a failure
var ErrFetchFailed = errors.New("fetch failed")

// IsWorkingCopy checks if the given directory is within a Git working copy
func IsWorkingCopy(ctx context.Context, runner CommandRunner, dir string) (bool, error) {
	// Run git rev-parse --is-inside-work-tree
	output, err := runner.Run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false, err
	}

	// A bare repository or a plain directory answers with something else
	if IsFailureReply(output) {
		return false, nil
	}

	return strings.TrimSpace(output) == "true", nil
}

// Fetch refreshes the remote-tracking references of a working copy.
// The reply is not used for anything but failure detection.
func Fetch(ctx context.Context, runner CommandRunner, dir string) error {
	output, err := runner.Run(ctx, dir, "fetch", "--quiet")
	if err != nil {
		return err
	}

	if isFetchFailure(output) {
		return fmt.Errorf("%w: %s", ErrFetchFailed, strings.TrimSpace(output))
	}

	return nil
}
