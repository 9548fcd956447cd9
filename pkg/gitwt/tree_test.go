package gitwt

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkhold/forkhold/pkg/errors"
)

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

// initRepo creates a repo with one commit so subtree operations have a base.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitCmd(t, dir, "init", "-b", "main")
	gitCmd(t, dir, "config", "user.email", "test@test.com")
	gitCmd(t, dir, "config", "user.name", "Test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("seed\n"), 0o644))
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-m", "initial commit")
	return dir
}

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	gitCmd(t, dir, "add", name)
	gitCmd(t, dir, "commit", "-m", msg)
}

func requireSubtree(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	cmd := exec.Command("git", "subtree", "-h")
	out, _ := cmd.CombinedOutput()
	if strings.Contains(string(out), "not a git command") {
		t.Skip("git subtree not available")
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("git checkout", func(t *testing.T) {
		tree := New(initRepo(t))
		assert.NoError(t, tree.Verify(ctx))
	})

	t.Run("plain directory", func(t *testing.T) {
		tree := New(t.TempDir())
		assert.Error(t, tree.Verify(ctx))
	})
}

func TestEnsureRemote(t *testing.T) {
	ctx := context.Background()
	tree := New(initRepo(t))

	require.NoError(t, tree.EnsureRemote(ctx, "upstream-demo", "https://example.com/a.git"))
	out := gitCmd(t, tree.Root(), "remote", "get-url", "upstream-demo")
	assert.Equal(t, "https://example.com/a.git", out)

	// Same URL: no-op.
	require.NoError(t, tree.EnsureRemote(ctx, "upstream-demo", "https://example.com/a.git"))

	// Different URL: repointed.
	require.NoError(t, tree.EnsureRemote(ctx, "upstream-demo", "https://example.com/b.git"))
	out = gitCmd(t, tree.Root(), "remote", "get-url", "upstream-demo")
	assert.Equal(t, "https://example.com/b.git", out)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	upstream := initRepo(t)
	tree := New(initRepo(t))

	require.NoError(t, tree.EnsureRemote(ctx, "upstream-demo", upstream))

	rev, err := tree.Fetch(ctx, "upstream-demo", "main")
	require.NoError(t, err)
	assert.Equal(t, gitCmd(t, upstream, "rev-parse", "HEAD"), rev)
}

func TestFetchUnreachable(t *testing.T) {
	ctx := context.Background()
	tree := New(initRepo(t))
	require.NoError(t, tree.EnsureRemote(ctx, "upstream-gone", filepath.Join(t.TempDir(), "missing")))

	_, err := tree.Fetch(ctx, "upstream-gone", "main")
	require.Error(t, err)
	assert.True(t, errors.IsUnreachable(err))
}

func TestSubtreeAddAndPull(t *testing.T) {
	requireSubtree(t)
	ctx := context.Background()

	upstream := initRepo(t)
	commitFile(t, upstream, "lib.txt", "v1\n", "add lib")

	tree := New(initRepo(t))
	require.NoError(t, tree.EnsureRemote(ctx, "upstream-demo", upstream))
	_, err := tree.Fetch(ctx, "upstream-demo", "main")
	require.NoError(t, err)

	require.NoError(t, tree.SubtreeAdd(ctx, "vendor/demo", "upstream-demo", "main"))
	assert.FileExists(t, filepath.Join(tree.Root(), "vendor/demo/lib.txt"))

	// No upstream movement: pull is a clean no-op.
	_, err = tree.Fetch(ctx, "upstream-demo", "main")
	require.NoError(t, err)
	require.NoError(t, tree.SubtreePull(ctx, "vendor/demo", "upstream-demo", "main"))

	dirty, err := tree.StatusDirty(ctx, "vendor/demo")
	require.NoError(t, err)
	assert.False(t, dirty)

	// Upstream advances: pull brings the new content in.
	commitFile(t, upstream, "lib.txt", "v2\n", "update lib")
	_, err = tree.Fetch(ctx, "upstream-demo", "main")
	require.NoError(t, err)
	require.NoError(t, tree.SubtreePull(ctx, "vendor/demo", "upstream-demo", "main"))

	data, err := os.ReadFile(filepath.Join(tree.Root(), "vendor/demo/lib.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v2\n", string(data))
}

func TestSubtreePullConflictRollsBack(t *testing.T) {
	requireSubtree(t)
	ctx := context.Background()

	upstream := initRepo(t)
	commitFile(t, upstream, "lib.txt", "base\n", "add lib")

	tree := New(initRepo(t))
	require.NoError(t, tree.EnsureRemote(ctx, "upstream-demo", upstream))
	_, err := tree.Fetch(ctx, "upstream-demo", "main")
	require.NoError(t, err)
	require.NoError(t, tree.SubtreeAdd(ctx, "vendor/demo", "upstream-demo", "main"))

	// Diverge: local edit and upstream edit to the same line.
	commitFile(t, tree.Root(), "vendor/demo/lib.txt", "local change\n", "local edit")
	commitFile(t, upstream, "lib.txt", "upstream change\n", "upstream edit")

	head := gitCmd(t, tree.Root(), "rev-parse", "HEAD")
	_, err = tree.Fetch(ctx, "upstream-demo", "main")
	require.NoError(t, err)

	err = tree.SubtreePull(ctx, "vendor/demo", "upstream-demo", "main")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	// The tree must be back where it started: same HEAD, nothing unmerged,
	// nothing dirty.
	assert.Equal(t, head, gitCmd(t, tree.Root(), "rev-parse", "HEAD"))
	assert.Empty(t, gitCmd(t, tree.Root(), "ls-files", "-u"))
	dirty, err := tree.StatusDirty(ctx, "vendor/demo")
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestStatusDirtySeesUntrackedFiles(t *testing.T) {
	ctx := context.Background()
	tree := New(initRepo(t))

	dirty, err := tree.StatusDirty(ctx, "vendor")
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.MkdirAll(filepath.Join(tree.Root(), "vendor/demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tree.Root(), "vendor/demo/UPSTREAM.md"), []byte("x\n"), 0o644))

	dirty, err = tree.StatusDirty(ctx, "vendor")
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestCommitAndBranchLifecycle(t *testing.T) {
	ctx := context.Background()
	tree := New(initRepo(t))

	require.NoError(t, tree.CheckoutNew(ctx, "auto/subtree-sync-20260101", "main"))
	require.NoError(t, os.WriteFile(filepath.Join(tree.Root(), "new.txt"), []byte("x\n"), 0o644))
	require.NoError(t, tree.AddPaths(ctx, "new.txt"))
	require.NoError(t, tree.Commit(ctx, "chore: sync upstream subtrees"))

	out := gitCmd(t, tree.Root(), "log", "-1", "--pretty=%s")
	assert.Equal(t, "chore: sync upstream subtrees", out)
	branch := gitCmd(t, tree.Root(), "rev-parse", "--abbrev-ref", "HEAD")
	assert.Equal(t, "auto/subtree-sync-20260101", branch)

	// An empty changed set is a no-op branch lifecycle: back to base, temp
	// branch deleted.
	require.NoError(t, tree.Checkout(ctx, "main"))
	require.NoError(t, tree.DeleteBranch(ctx, "auto/subtree-sync-20260101"))
	branch = gitCmd(t, tree.Root(), "rev-parse", "--abbrev-ref", "HEAD")
	assert.Equal(t, "main", branch)
}

func TestCommitAllowsEmptySummaryCommit(t *testing.T) {
	ctx := context.Background()
	tree := New(initRepo(t))

	// Nothing staged: the batch summary commit must still land.
	require.NoError(t, tree.Commit(ctx, "chore: sync upstream subtrees"))
	out := gitCmd(t, tree.Root(), "log", "-1", "--pretty=%s")
	assert.Equal(t, "chore: sync upstream subtrees", out)
}

func TestLockSerializes(t *testing.T) {
	tree := New(t.TempDir())

	release := tree.Lock()
	acquired := make(chan struct{})
	go func() {
		r := tree.Lock()
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	default:
	}

	release()
	<-acquired
}
