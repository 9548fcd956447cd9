package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkhold/forkhold/pkg/gitwt"
)

func TestRegistryPath(t *testing.T) {
	tree := gitwt.New(t.TempDir())

	t.Run("relative resolves against tree root", func(t *testing.T) {
		registryFile = "forks.json"
		assert.Equal(t, filepath.Join(tree.Root(), "forks.json"), registryPath(tree))
	})

	t.Run("absolute wins", func(t *testing.T) {
		abs := filepath.Join(t.TempDir(), "elsewhere.json")
		registryFile = abs
		assert.Equal(t, abs, registryPath(tree))
	})

	registryFile = "forks.json"
}

func TestRepoSlug(t *testing.T) {
	t.Run("flag value wins", func(t *testing.T) {
		assert.Equal(t, "acme/mono", repoSlug("acme/mono"))
	})

	t.Run("falls back to environment", func(t *testing.T) {
		viper.Set("GITHUB_REPOSITORY", "acme/from-env")
		defer viper.Set("GITHUB_REPOSITORY", "")
		assert.Equal(t, "acme/from-env", repoSlug(""))
	})
}

func TestGithubTokenPrecedence(t *testing.T) {
	viper.Set("FORKS_MANAGER_PAT", "pat-token")
	viper.Set("GITHUB_TOKEN", "ambient-token")
	defer func() {
		viper.Set("FORKS_MANAGER_PAT", "")
		viper.Set("GITHUB_TOKEN", "")
	}()

	assert.Equal(t, "pat-token", githubToken())

	viper.Set("FORKS_MANAGER_PAT", "")
	assert.Equal(t, "ambient-token", githubToken())
}

func TestShortRev(t *testing.T) {
	require.Equal(t, "abc", shortRev("abc"))
	require.Equal(t, "0123456789ab", shortRev("0123456789abcdef0123"))
}
