package git

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DiscoveredRepository is a working copy found below a root directory
type DiscoveredRepository struct {
	Path   string
	Branch string // Short name of HEAD, empty when detached
}

// Discover walks root and returns every non-bare working copy below it, sorted by path.
// The walk does not descend into a working copy once found.
func Discover(root string, maxDepth int) ([]DiscoveredRepository, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve discovery root: %w", err)
	}

	var found []DiscoveredRepository
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}

		if maxDepth > 0 && depth(root, path) > maxDepth {
			return filepath.SkipDir
		}

		repo, ok := openWorkingCopy(path)
		if !ok {
			return nil
		}

		found = append(found, DiscoveredRepository{
			Path:   path,
			Branch: headBranch(repo),
		})
		return filepath.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover repositories under %s: %w", root, err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// openWorkingCopy opens path as a working copy root, rejecting bare repositories
func openWorkingCopy(path string) (*gogit.Repository, bool) {
	if _, err := os.Lstat(filepath.Join(path, ".git")); err != nil {
		return nil, false
	}
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, false
	}
	if _, err := repo.Worktree(); err != nil {
		if errors.Is(err, gogit.ErrIsBareRepository) {
			return nil, false
		}
	}
	return repo, true
}

func headBranch(repo *gogit.Repository) string {
	head, err := repo.Head()
	if err != nil {
		// Unborn branch, read the symbolic reference instead
		ref, err := repo.Storer.Reference(plumbing.HEAD)
		if err != nil || ref.Type() != plumbing.SymbolicReference {
			return ""
		}
		return ref.Target().Short()
	}
	if !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	n := 1
	for _, r := range rel {
		if r == filepath.Separator {
			n++
		}
	}
	return n
}
