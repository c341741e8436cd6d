package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedStatusLine is matched by every working-tree status parse error
var ErrMalformedStatusLine = errors.New("malformed status line")

// FileStatusCode is the effective status of a path in the working copy
type FileStatusCode int

const (
	// Modified marks a tracked file with content changes
	Modified FileStatusCode = iota
	// Deleted marks a tracked file that was removed
	Deleted
	// Untracked marks a file Git does not know about
	Untracked
)

// String returns the porcelain code of the status
func (c FileStatusCode) String() string {
	switch c {
	case Modified:
		return "M"
	case Deleted:
		return "D"
	case Untracked:
		return "?"
	default:
		return fmt.Sprintf("FileStatusCode(%d)", int(c))
	}
}

// unchanged is the porcelain placeholder for "no change on this side"
const unchanged = ' '

// MalformedStatusLineError describes a porcelain line the parser refuses
type MalformedStatusLineError struct {
	Line   string
	Reason string
}

func (e *MalformedStatusLineError) Error() string {
	return fmt.Sprintf("%s (%s): %q", ErrMalformedStatusLine, e.Reason, e.Line)
}

func (e *MalformedStatusLineError) Is(target error) bool {
	return target == ErrMalformedStatusLine
}

// WorkingTree holds the paths of a status query grouped by status code
type WorkingTree struct {
	Modified  []string
	Deleted   []string
	Untracked []string
}

// ParseStatusLine parses one line of git status --porcelain.
// The line is made of an index status, a worktree status, a separator and the path.
func ParseStatusLine(line string) (FileStatusCode, string, error) {
	if len(line) < 4 {
		return 0, "", &MalformedStatusLineError{Line: line, Reason: "line too short"}
	}

	index, worktree := line[0], line[1]

	var code byte
	switch {
	case index == unchanged && worktree == unchanged:
		return 0, "", &MalformedStatusLineError{Line: line, Reason: "no status code"}
	case index != unchanged && worktree != unchanged && index != worktree:
		return 0, "", &MalformedStatusLineError{Line: line, Reason: "ambiguous status"}
	case index != unchanged:
		code = index
	default:
		code = worktree
	}

	var status FileStatusCode
	switch code {
	case 'M':
		status = Modified
	case 'D':
		status = Deleted
	case '?':
		status = Untracked
	default:
		return 0, "", &MalformedStatusLineError{Line: line, Reason: fmt.Sprintf("unknown file status %q", code)}
	}

	return status, unquotePath(line[3:]), nil
}

// unquotePath strips the double quotes Git puts around paths with special characters.
// Escapes inside the quotes are kept as they are.
func unquotePath(path string) string {
	if len(path) >= 2 && path[0] == '"' && path[len(path)-1] == '"' {
		return path[1 : len(path)-1]
	}
	return path
}

// ParseStatus parses the full output of git status --porcelain
func ParseStatus(output string) (*WorkingTree, error) {
	tree := &WorkingTree{}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		code, path, err := ParseStatusLine(line)
		if err != nil {
			return nil, err
		}

		switch code {
		case Modified:
			tree.Modified = append(tree.Modified, path)
		case Deleted:
			tree.Deleted = append(tree.Deleted, path)
		case Untracked:
			tree.Untracked = append(tree.Untracked, path)
		}
	}

	return tree, nil
}

// Status runs the working-tree status query and parses its reply
func Status(ctx context.Context, runner CommandRunner, dir string) (*WorkingTree, error) {
	output, err := runner.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	// A failure here means the path stopped being a working copy
	if IsFailureReply(output) {
		return nil, &ToolInvocationError{
			Dir:  dir,
			Args: []string{"status", "--porcelain"},
			Err:  fmt.Errorf("%w: %s", ErrNotGitRepository, firstLine(output)),
		}
	}

	return ParseStatus(output)
}
