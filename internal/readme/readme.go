// Package readme maintains the mirror inventory table in the monorepo's
// README. The table lives between marker comments so the rest of the
// document stays hand-written; regeneration replaces only the span
// between the markers.
package readme

import (
	"os"
	"sort"
	"strings"

	md "github.com/nao1215/markdown"

	"github.com/forkhold/forkhold/pkg/errors"
	"github.com/forkhold/forkhold/pkg/registry"
)

const (
	// MarkerStart and MarkerEnd delimit the generated span.
	MarkerStart = "<!-- FORKS_TABLE_START -->"
	MarkerEnd   = "<!-- FORKS_TABLE_END -->"

	defaultHeading = "# Repositories forked\n\n"
)

// Table renders the inventory table for the given entries, sorted by
// upstream identity. Each name cell links to the mirror directory and
// each license cell links to the license URL when one is recorded.
func Table(entries []registry.SourceEntry) string {
	sorted := make([]registry.SourceEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Upstream) < strings.ToLower(sorted[j].Upstream)
	})

	rows := make([][]string, 0, len(sorted))
	for i := range sorted {
		entry := &sorted[i]

		path := entry.MirrorPath
		if path == "" {
			path = "./"
		}
		name := md.Link(cell(entry.Upstream), path)

		license := "Unknown"
		var licenseURL string
		if entry.License != nil {
			if entry.License.Name != "" {
				license = entry.License.Name
			}
			licenseURL = entry.License.URL
		}
		if licenseURL != "" {
			license = md.Link(cell(license), licenseURL)
		} else {
			license = cell(license)
		}

		rows = append(rows, []string{name, cell(entry.Description), license})
	}

	var b strings.Builder
	_ = md.NewMarkdown(&b).Table(md.TableSet{
		Header: []string{"Name", "Description", "License"},
		Rows:   rows,
	}).Build()
	return b.String()
}

// Splice replaces the span between the markers with table, or appends a
// fresh marker block when the document has none.
func Splice(content, table string) string {
	start := strings.Index(content, MarkerStart)
	end := strings.Index(content, MarkerEnd)
	if start >= 0 && end > start {
		before := content[:start]
		after := content[end+len(MarkerEnd):]
		return before + MarkerStart + "\n\n" + table + "\n" + MarkerEnd + after
	}
	return strings.TrimRight(content, "\n") + "\n\n" + MarkerStart + "\n\n" + table + "\n" + MarkerEnd + "\n"
}

// Update rewrites the README at path with the table for entries, creating
// a minimal document when none exists.
func Update(path string, entries []registry.SourceEntry) error {
	content := defaultHeading
	if data, err := os.ReadFile(path); err == nil {
		content = string(data)
	} else if !os.IsNotExist(err) {
		return errors.WrapIO("read", path, err)
	}

	if err := os.WriteFile(path, []byte(Splice(content, Table(entries))), 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// cell flattens a value into a single table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}
