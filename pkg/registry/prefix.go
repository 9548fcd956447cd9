package registry

import (
	"net/url"
	"strings"

	"github.com/forkhold/forkhold/pkg/errors"
)

// MirrorPrefix derives a mirror path from a raw location, which may be a
// plain relative path or a URL pointing into the monorepo. When base names
// a repository-root segment (for example the monorepo's own name), segments
// up to and including it are stripped.
//
// Failure modes: an unparseable URL, or a location that leaves no path
// segments after stripping, both return a ParseError.
func MirrorPrefix(raw, base string) (string, error) {
	if raw == "" {
		return "", errors.NewParseError("path", raw, "empty location", nil)
	}

	path := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", errors.NewParseError("url", raw, "cannot parse location", err)
		}
		path = u.Path
	}

	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	if base != "" {
		for i, p := range parts {
			if p == base {
				parts = parts[i+1:]
				break
			}
		}
	}

	if len(parts) == 0 {
		return "", errors.NewParseError("path", raw, "no mirror path segments left", nil)
	}
	return strings.Join(parts, "/"), nil
}
