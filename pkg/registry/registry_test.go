package registry_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkhold/forkhold/pkg/errors"
	"github.com/forkhold/forkhold/pkg/registry"
)

func TestLoadMissingStore(t *testing.T) {
	entries, err := registry.Load(filepath.Join(t.TempDir(), "forks.json"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadMalformedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := registry.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forks.json")
	entries := []registry.SourceEntry{
		{Upstream: "octocat/hello", Branch: "main", MirrorPath: "tools/hello"},
		{Upstream: "torvalds/linux", MirrorPath: "kernels/linux"},
	}

	require.NoError(t, registry.Save(path, entries))

	loaded, err := registry.Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "octocat/hello", loaded[0].Upstream)
	assert.Equal(t, "main", loaded[0].TrackingBranch())
	assert.Equal(t, "master", loaded[1].TrackingBranch())
}

func TestSaveOmitsAbsentLicense(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forks.json")
	entries := []registry.SourceEntry{
		{Upstream: "octocat/hello", MirrorPath: "tools/hello"},
	}

	require.NoError(t, registry.Save(path, entries))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"license"`)

	entries[0].EnsureLicense().Name = "MIT"
	require.NoError(t, registry.Save(path, entries))

	loaded, err := registry.Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded[0].License)
	assert.Equal(t, "MIT", loaded[0].License.Name)
}

func TestUnknownFieldsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forks.json")
	stored := `[
  {
    "upstream": "octocat/hello",
    "subtree_path": "tools/hello",
    "ci_status": "green",
    "custom": {"nested": [1, 2, 3]}
  }
]`
	require.NoError(t, os.WriteFile(path, []byte(stored), 0o644))

	entries, err := registry.Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, ok := entries[0].Extra("ci_status")
	require.True(t, ok)
	assert.JSONEq(t, `"green"`, string(raw))

	// A field mutation must not drop the unknown fields on save.
	entries[0].Verified = true
	require.NoError(t, registry.Save(path, entries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Contains(t, decoded[0], "ci_status")
	assert.JSONEq(t, `{"nested": [1, 2, 3]}`, string(decoded[0]["custom"]))
	assert.JSONEq(t, `true`, string(decoded[0]["verified"]))
}

func TestFind(t *testing.T) {
	entries := []registry.SourceEntry{
		{Upstream: "Octocat/Hello", MirrorPath: "tools/hello"},
	}

	found, ok := registry.Find(entries, "octocat/hello")
	require.True(t, ok)
	assert.Equal(t, "Octocat/Hello", found.Upstream)

	_, ok = registry.Find(entries, "missing/repo")
	assert.False(t, ok)
}

func TestAdd(t *testing.T) {
	t.Run("appends valid entry", func(t *testing.T) {
		entries, err := registry.Add(nil, registry.SourceEntry{
			Upstream: "octocat/hello", MirrorPath: "tools/hello",
		})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("rejects duplicate identity", func(t *testing.T) {
		entries := []registry.SourceEntry{{Upstream: "octocat/hello", MirrorPath: "tools/hello"}}
		_, err := registry.Add(entries, registry.SourceEntry{
			Upstream: "OCTOCAT/HELLO", MirrorPath: "other/hello",
		})
		assert.True(t, errors.IsAlreadyExists(err))
	})

	t.Run("rejects overlapping path", func(t *testing.T) {
		entries := []registry.SourceEntry{{Upstream: "octocat/hello", MirrorPath: "tools/hello"}}
		_, err := registry.Add(entries, registry.SourceEntry{
			Upstream: "other/repo", MirrorPath: "tools/hello/sub",
		})
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("rejects invalid entry", func(t *testing.T) {
		_, err := registry.Add(nil, registry.SourceEntry{Upstream: "no-slash", MirrorPath: "x"})
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestRemove(t *testing.T) {
	entries := []registry.SourceEntry{
		{Upstream: "a/one", MirrorPath: "one"},
		{Upstream: "b/two", MirrorPath: "two"},
	}

	kept, removed := registry.Remove(entries, "A/ONE")
	assert.True(t, removed)
	require.Len(t, kept, 1)
	assert.Equal(t, "b/two", kept[0].Upstream)

	kept, removed = registry.Remove(kept, "missing/repo")
	assert.False(t, removed)
	assert.Len(t, kept, 1)
}

func TestEntryDerivedFields(t *testing.T) {
	e := registry.SourceEntry{Upstream: "Acme Corp/My.Repo", MirrorPath: "vendor/my-repo"}
	assert.Equal(t, "upstream-acme-corp-my-repo", e.RemoteName())
	assert.Equal(t, "My.Repo", e.Name())
	assert.Equal(t, "https://github.com/Acme Corp/My.Repo.git", e.UpstreamURL())

	ssh := registry.SourceEntry{Upstream: "git@github.com:acme/repo.git"}
	assert.Equal(t, "git@github.com:acme/repo.git", ssh.UpstreamURL())

	local := registry.SourceEntry{Upstream: "/srv/mirrors/repo"}
	assert.Equal(t, "/srv/mirrors/repo", local.UpstreamURL())
}
