package readme_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkhold/forkhold/internal/readme"
	"github.com/forkhold/forkhold/pkg/registry"
)

func sampleEntries() []registry.SourceEntry {
	return []registry.SourceEntry{
		{
			Upstream:    "zeta/zlib",
			MirrorPath:  "vendor/zlib",
			Description: "compression | framing",
		},
		{
			Upstream:    "Acme/widget",
			MirrorPath:  "tools/widget",
			Description: "widget toolkit",
			License:     &registry.License{Name: "MIT", URL: "https://example.com/mit"},
		},
	}
}

func TestTable(t *testing.T) {
	table := readme.Table(sampleEntries())

	assert.Contains(t, table, "| Name | Description | License |")
	// Sorted case-insensitively: Acme before zeta.
	acme := "[Acme/widget](tools/widget)"
	zeta := "[zeta/zlib](vendor/zlib)"
	assert.Less(t, indexOf(t, table, acme), indexOf(t, table, zeta))
	assert.Contains(t, table, "[MIT](https://example.com/mit)")
	assert.Contains(t, table, "Unknown")
	// Pipes inside cells must not break the table.
	assert.Contains(t, table, `compression \| framing`)
}

func TestSpliceReplacesMarkedSpan(t *testing.T) {
	doc := "# Mono\n\nintro\n\n" + readme.MarkerStart + "\n\nold table\n" + readme.MarkerEnd + "\n\ntrailer\n"

	out := readme.Splice(doc, "new table\n")

	assert.Contains(t, out, "intro")
	assert.Contains(t, out, "trailer")
	assert.Contains(t, out, "new table")
	assert.NotContains(t, out, "old table")
}

func TestSpliceAppendsWhenNoMarkers(t *testing.T) {
	out := readme.Splice("# Mono\n", "table\n")

	assert.Contains(t, out, "# Mono")
	assert.Contains(t, out, readme.MarkerStart)
	assert.Contains(t, out, readme.MarkerEnd)
	assert.Contains(t, out, "table")
}

func TestUpdateCreatesAndRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "README.md")

	require.NoError(t, readme.Update(path, sampleEntries()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(first), "# Repositories forked")
	assert.Contains(t, string(first), "[Acme/widget](tools/widget)")

	// Second update replaces the span instead of appending another table.
	require.NoError(t, readme.Update(path, sampleEntries()[:1]))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(second), "Acme/widget")
	assert.Contains(t, string(second), "zeta/zlib")
	assert.Equal(t, 1, strings.Count(string(second), readme.MarkerStart))
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	i := strings.Index(s, sub)
	require.GreaterOrEqual(t, i, 0, "expected %q in output", sub)
	return i
}
