package registry

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// markerFile is the provenance record a mirror carries; its upstream line
// is the strongest hint that a directory is an unregistered mirror.
const markerFile = "UPSTREAM.md"

// Discover scans the tree under root for directories carrying a provenance
// marker and suggests entries for any upstream not already registered.
//
// This is heuristic enrichment: suggestions are low-confidence, always
// returned with Verified=false, and must never be promoted to the registry
// without review.
func Discover(root string, entries []SourceEntry) ([]SourceEntry, error) {
	registered := make(map[string]bool, len(entries))
	claimed := make([]string, 0, len(entries))
	for _, e := range entries {
		registered[strings.ToLower(e.Upstream)] = true
		claimed = append(claimed, strings.Trim(e.MirrorPath, "/"))
	}

	var suggestions []SourceEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() || d.Name() != markerFile {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, c := range claimed {
			if Overlaps(rel, c) {
				return nil
			}
		}

		upstream, branch := parseMarker(path)
		if upstream == "" || registered[strings.ToLower(upstream)] {
			return nil
		}

		suggestions = append(suggestions, SourceEntry{
			Upstream:   upstream,
			Branch:     branch,
			MirrorPath: rel,
			Verified:   false,
			Notes:      []string{"suggested by marker scan of " + rel},
		})
		registered[strings.ToLower(upstream)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// parseMarker pulls the upstream identity and branch out of a provenance
// marker file. Missing fields come back empty.
func parseMarker(path string) (upstream, branch string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "- Upstream repository: "); ok {
			upstream = identityFromURL(strings.TrimSpace(v))
		}
		if v, ok := strings.CutPrefix(line, "- Upstream branch: "); ok {
			branch = strings.TrimSpace(v)
		}
	}
	return upstream, branch
}

// identityFromURL reduces a github URL to owner/repo; anything else is
// returned as-is.
func identityFromURL(raw string) string {
	rest, ok := strings.CutPrefix(raw, "https://github.com/")
	if !ok {
		return raw
	}
	rest = strings.TrimSuffix(rest, ".git")
	rest = strings.Trim(rest, "/")
	if strings.Count(rest, "/") != 1 {
		return ""
	}
	return rest
}
