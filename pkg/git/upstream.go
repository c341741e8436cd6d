package git

import (
	"context"
	"strings"
)

// DefaultRemote is prefixed to the current branch when no upstream is configured
const DefaultRemote = "origin"

// ResolveUpstream determines the reference the current branch is compared against.
//
// The configured upstream is used when there is one. Otherwise the branch of the
// same name on DefaultRemote is checked and used if it exists. When neither exists
// ok is false and divergence should not be computed; that is not an error.
func ResolveUpstream(ctx context.Context, runner CommandRunner, dir string) (ref string, ok bool, err error) {
	output, err := runner.Run(ctx, dir, "rev-parse", "--abbrev-ref", "@{upstream}")
	if err != nil {
		return "", false, err
	}
	if !IsFailureReply(output) {
		return strings.TrimRight(output, "\r\n"), true, nil
	}

	// No tracked upstream, try the conventional remote
	output, err = runner.Run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", false, err
	}
	if IsFailureReply(output) {
		return "", false, nil
	}
	candidate := DefaultRemote + "/" + strings.TrimRight(output, "\r\n")

	output, err = runner.Run(ctx, dir, "rev-list", "--left-right", candidate+"..."+candidate)
	if err != nil {
		return "", false, err
	}
	if IsFailureReply(output) {
		return "", false, nil
	}

	return candidate, true, nil
}
