package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDivergenceLine is matched by every divergence parse error
var ErrMalformedDivergenceLine = errors.New("malformed divergence line")

// CommitID identifies a commit as printed by Git
type CommitID string

// DivergenceArrow tells on which side of the comparison a commit lives
type DivergenceArrow int

const (
	// Ahead marks a commit only present locally
	Ahead DivergenceArrow = iota
	// Behind marks a commit only present on the upstream
	Behind
)

// String returns the rev-list marker of the arrow
func (a DivergenceArrow) String() string {
	if a == Ahead {
		return "<"
	}
	return ">"
}

// MalformedDivergenceLineError describes a rev-list line with an unknown marker
type MalformedDivergenceLineError struct {
	Line string
}

func (e *MalformedDivergenceLineError) Error() string {
	return fmt.Sprintf("%s (unknown divergence marker): %q", ErrMalformedDivergenceLine, e.Line)
}

func (e *MalformedDivergenceLineError) Is(target error) bool {
	return target == ErrMalformedDivergenceLine
}

// ParseDivergenceLine parses one line of git rev-list --left-right
func ParseDivergenceLine(line string) (DivergenceArrow, CommitID, error) {
	if line == "" {
		return 0, "", &MalformedDivergenceLineError{Line: line}
	}
	switch line[0] {
	case '<':
		return Ahead, CommitID(line[1:]), nil
	case '>':
		return Behind, CommitID(line[1:]), nil
	default:
		return 0, "", &MalformedDivergenceLineError{Line: line}
	}
}

// ParseDivergence splits rev-list --left-right output into ahead and behind commits.
// Both lists keep the order Git printed them in.
func ParseDivergence(output string) (ahead, behind []CommitID, err error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		arrow, id, err := ParseDivergenceLine(line)
		if err != nil {
			return nil, nil, err
		}

		if arrow == Ahead {
			ahead = append(ahead, id)
		} else {
			behind = append(behind, id)
		}
	}

	return ahead, behind, nil
}

// Divergence lists the commits that differ between HEAD and upstream
func Divergence(ctx context.Context, runner CommandRunner, dir, upstream string) (ahead, behind []CommitID, err error) {
	output, err := runner.Run(ctx, dir, "rev-list", "--left-right", "HEAD..."+upstream)
	if err != nil {
		return nil, nil, err
	}

	return ParseDivergence(output)
}
