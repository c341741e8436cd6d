package git

import "strings"

// FailurePrefix is the literal that starts every failure reply written by Git.
//
// Upstream resolution and the check for a fallback reference both rely on this
// text rather than on exit codes. It is the only place where Git's wording is
// matched, so a change of wording across Git versions is handled here. The
// runner pins LC_ALL=C to keep the reply untranslated.
const FailurePrefix = "fatal:"

// errorPrefix starts non-fatal error replies, e.g. from git fetch
const errorPrefix = "error:"

// IsFailureReply reports whether a raw reply signals a failed query
func IsFailureReply(output string) bool {
	return strings.HasPrefix(output, FailurePrefix)
}

// isFetchFailure reports whether a fetch reply contains a failure line anywhere
func isFetchFailure(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, FailurePrefix) || strings.HasPrefix(line, errorPrefix) {
			return true
		}
	}
	return false
}

// firstLine returns the first line of a reply without its terminator
func firstLine(output string) string {
	if i := strings.IndexByte(output, '\n'); i >= 0 {
		return strings.TrimRight(output[:i], "\r")
	}
	return strings.TrimRight(output, "\r")
}
