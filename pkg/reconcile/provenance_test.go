package reconcile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkhold/forkhold/pkg/reconcile"
)

func TestWriteAndReadMetadata(t *testing.T) {
	dir := t.TempDir()

	record := &reconcile.Record{
		Upstream:    "acme/widget",
		Branch:      "main",
		Revision:    "abc123",
		LicenseNote: "License synced from LICENSE to UPSTREAM_LICENSE",
	}
	require.NoError(t, reconcile.WriteMetadata(dir, record))

	data, err := os.ReadFile(filepath.Join(dir, reconcile.MetadataFileName))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# Upstream metadata")
	assert.Contains(t, content, "https://github.com/acme/widget")
	assert.Contains(t, content, "abc123")
	assert.NotContains(t, content, "- Status:")

	parsed, ok := reconcile.ReadMetadata(dir)
	require.True(t, ok)
	assert.Equal(t, "acme/widget", parsed.Upstream)
	assert.Equal(t, "main", parsed.Branch)
	assert.Equal(t, "abc123", parsed.Revision)
	assert.Equal(t, record.LicenseNote, parsed.LicenseNote)
}

func TestWriteMetadataSkipsEquivalentRecord(t *testing.T) {
	dir := t.TempDir()
	record := &reconcile.Record{Upstream: "acme/widget", Branch: "main", Revision: "abc123", LicenseNote: "none"}

	require.NoError(t, reconcile.WriteMetadata(dir, record))
	first, err := os.ReadFile(filepath.Join(dir, reconcile.MetadataFileName))
	require.NoError(t, err)

	// An equivalent record must not rewrite the file, so the original
	// import timestamp survives re-runs.
	again := &reconcile.Record{Upstream: "acme/widget", Branch: "main", Revision: "abc123", LicenseNote: "none"}
	require.NoError(t, reconcile.WriteMetadata(dir, again))
	second, err := os.ReadFile(filepath.Join(dir, reconcile.MetadataFileName))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	// A new revision does rewrite.
	moved := &reconcile.Record{Upstream: "acme/widget", Branch: "main", Revision: "def456", LicenseNote: "none"}
	require.NoError(t, reconcile.WriteMetadata(dir, moved))
	third, err := os.ReadFile(filepath.Join(dir, reconcile.MetadataFileName))
	require.NoError(t, err)
	assert.Contains(t, string(third), "def456")
}

func TestWriteMetadataWithFailureStatus(t *testing.T) {
	dir := t.TempDir()
	record := &reconcile.Record{
		Upstream:    "acme/widget",
		Branch:      "main",
		Revision:    "abc123",
		LicenseNote: "none",
		Status:      "merge conflicted; manual resolution required",
	}
	require.NoError(t, reconcile.WriteMetadata(dir, record))

	parsed, ok := reconcile.ReadMetadata(dir)
	require.True(t, ok)
	assert.Equal(t, "merge conflicted; manual resolution required", parsed.Status)
}

func TestReadMetadataMissing(t *testing.T) {
	_, ok := reconcile.ReadMetadata(t.TempDir())
	assert.False(t, ok)
}
