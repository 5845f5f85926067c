// Package gitstat produces per-directory change summaries from git.
// It backs the `changes` subcommand and is independent of category
// validation: release engineers use it to see which package directories
// changed since a reference revision.
package gitstat

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DirDiff is the diff summary for one directory.
type DirDiff struct {
	// Dir is the directory the summary covers, relative to the repo root.
	Dir string

	// Stat is the raw `git diff --stat` output, empty when unchanged.
	Stat string

	// Changed reports whether the diff was non-empty.
	Changed bool
}

// Summarize runs `git diff --stat <rev> -- <dir>` for each directory and
// returns one summary per directory, in input order. rev may be any
// revision git understands (a tag, "origin/main", "HEAD~3").
func Summarize(ctx context.Context, repoRoot, rev string, dirs []string) ([]DirDiff, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoRoot, "rev-parse", "--git-dir")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("not a git repository: %s", repoRoot)
	}

	diffs := make([]DirDiff, 0, len(dirs))
	for _, dir := range dirs {
		cmd := exec.CommandContext(ctx, "git", "-C", repoRoot,
			"diff", "--stat", rev, "--", dir)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("git diff for %s failed: %w\nOutput: %s", dir, err, out)
		}
		stat := strings.TrimRight(string(out), "\n")
		diffs = append(diffs, DirDiff{Dir: dir, Stat: stat, Changed: stat != ""})
	}
	return diffs, nil
}
