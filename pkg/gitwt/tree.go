// Package gitwt drives the single shared git working tree by shelling out
// to the git command. All history-mutating operations on one Tree must be
// serialized: callers take the tree lock for the duration of one entry's
// import/merge sequence (see Lock).
package gitwt

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/forkhold/forkhold/pkg/errors"
)

// Tree is one local checkout of the monorepo.
type Tree struct {
	dir string
	mu  sync.Mutex
}

// New returns a Tree rooted at dir. The directory must already contain a
// git checkout; Verify reports whether it does.
func New(dir string) *Tree {
	return &Tree{dir: dir}
}

// Root returns the working tree root directory.
func (t *Tree) Root() string {
	return t.dir
}

// Lock acquires exclusive use of the working tree and returns the release
// function. One entry's whole import/merge/finalize sequence runs under a
// single hold; concurrent reconciliation against the same tree is unsafe.
func (t *Tree) Lock() (release func()) {
	t.mu.Lock()
	return t.mu.Unlock
}

// Verify reports an error when dir is not a git working tree.
func (t *Tree) Verify(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(t.dir, ".git")); err != nil {
		return errors.WrapIO("open", filepath.Join(t.dir, ".git"), err)
	}
	_, err := t.run(ctx, "rev-parse", "--git-dir")
	return err
}

// EnsureRemote makes sure a remote of the given name exists and points at
// url. Idempotent: a correct remote is left untouched.
func (t *Tree) EnsureRemote(ctx context.Context, name, url string) error {
	current, err := t.run(ctx, "remote", "get-url", name)
	if err != nil {
		if _, addErr := t.run(ctx, "remote", "add", name, url); addErr != nil {
			return errors.NewConnectionError(name, url, addErr)
		}
		return nil
	}
	if strings.TrimSpace(current) == url {
		return nil
	}
	if _, err := t.run(ctx, "remote", "set-url", name, url); err != nil {
		return errors.NewConnectionError(name, url, err)
	}
	return nil
}

// Fetch retrieves the tracking branch from a bound remote and returns the
// revision it reached.
func (t *Tree) Fetch(ctx context.Context, remote, branch string) (string, error) {
	if _, err := t.run(ctx, "fetch", remote, branch); err != nil {
		return "", errors.NewFetchError(remote, branch, err)
	}
	rev, err := t.run(ctx, "rev-parse", remote+"/"+branch)
	if err != nil {
		return "", errors.NewFetchError(remote, branch, err)
	}
	return strings.TrimSpace(rev), nil
}

// RevParse resolves a ref to a revision identifier.
func (t *Tree) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := t.run(ctx, "rev-parse", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SubtreeAdd imports the full upstream tree at the fetched branch tip into
// prefix as a single squashed history unit.
func (t *Tree) SubtreeAdd(ctx context.Context, prefix, remote, branch string) error {
	_, err := t.run(ctx, "subtree", "add", "--prefix", prefix, remote, branch, "--squash")
	return err
}

// SubtreePull applies the delta since the previous import onto prefix as a
// squashed unit. A content conflict aborts the merge, restores the
// pre-merge tree, and returns a MergeConflictError; the tree is never left
// half-merged.
func (t *Tree) SubtreePull(ctx context.Context, prefix, remote, branch string) error {
	_, err := t.run(ctx, "subtree", "pull", "--prefix", prefix, remote, branch, "--squash")
	if err == nil {
		return nil
	}
	if t.midMerge(ctx) {
		// Roll back before reporting, so the next entry starts clean.
		_, _ = t.run(ctx, "merge", "--abort")
		return errors.NewMergeConflictError(prefix, remote, branch, err)
	}
	return err
}

// midMerge reports whether the tree is inside an unfinished merge.
func (t *Tree) midMerge(ctx context.Context) bool {
	if out, err := t.run(ctx, "ls-files", "-u"); err == nil && strings.TrimSpace(out) != "" {
		return true
	}
	gitDir, err := t.run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	mergeHead := filepath.Join(t.dir, strings.TrimSpace(gitDir), "MERGE_HEAD")
	_, statErr := os.Stat(mergeHead)
	return statErr == nil
}

// StatusDirty reports whether any file under prefix differs from HEAD,
// including untracked files.
func (t *Tree) StatusDirty(ctx context.Context, prefix string) (bool, error) {
	out, err := t.run(ctx, "status", "--porcelain", "--", prefix)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// DefaultBranch resolves the default branch of origin, falling back to the
// DEFAULT_BRANCH environment variable and then "main".
func (t *Tree) DefaultBranch(ctx context.Context) string {
	out, err := t.run(ctx, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		parts := strings.Split(strings.TrimSpace(out), "/")
		return parts[len(parts)-1]
	}
	if env := os.Getenv("DEFAULT_BRANCH"); env != "" {
		return env
	}
	return "main"
}

// CheckoutNew creates (or resets) branch at start and switches to it.
func (t *Tree) CheckoutNew(ctx context.Context, branch, start string) error {
	args := []string{"checkout", "-B", branch}
	if start != "" {
		args = append(args, start)
	}
	_, err := t.run(ctx, args...)
	return err
}

// Checkout switches to an existing branch.
func (t *Tree) Checkout(ctx context.Context, branch string) error {
	_, err := t.run(ctx, "checkout", branch)
	return err
}

// DeleteBranch removes a local branch, forcing if unmerged.
func (t *Tree) DeleteBranch(ctx context.Context, branch string) error {
	_, err := t.run(ctx, "branch", "-D", branch)
	return err
}

// AddPaths stages the given paths, including deletions and untracked files
// beneath them.
func (t *Tree) AddPaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := t.run(ctx, args...)
	return err
}

// Commit records the staged changes with the given message. Empty commits
// are permitted: the batch summary commit must land even when all content
// arrived in earlier per-entry commits.
func (t *Tree) Commit(ctx context.Context, message string) error {
	_, err := t.run(ctx, "commit", "--allow-empty", "-m", message)
	return err
}

// Push publishes branch to remote, setting the upstream ref.
func (t *Tree) Push(ctx context.Context, remote, branch string) error {
	_, err := t.run(ctx, "push", "--set-upstream", remote, branch)
	return err
}

// run executes a git command in the working tree, returning stdout. A
// non-zero exit becomes a ProcessError carrying stderr.
func (t *Tree) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = t.dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), &errors.ProcessError{
			Command: "git " + strings.Join(args, " "),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.String(), nil
}
