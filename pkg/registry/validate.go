package registry

import (
	"strings"

	"github.com/forkhold/forkhold/pkg/errors"
)

// Overlaps reports whether two mirror paths claim overlapping trees: equal
// paths, or one a strict sub-path of the other.
func Overlaps(a, b string) bool {
	a = strings.Trim(a, "/")
	b = strings.Trim(b, "/")
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// Validate checks the whole-registry invariants: per-entry structure,
// unique identities, and non-overlapping mirror paths.
func Validate(entries []SourceEntry) error {
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return err
		}
		key := strings.ToLower(entries[i].Upstream)
		if seen[key] {
			return errors.NewValidationError("upstream", entries[i].Upstream, "duplicate identity")
		}
		seen[key] = true
	}
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if Overlaps(entries[i].MirrorPath, entries[j].MirrorPath) {
				return errors.NewValidationError("subtree_path", entries[j].MirrorPath,
					"overlaps "+entries[i].MirrorPath)
			}
		}
	}
	return nil
}

// Prune removes entries that violate registry invariants: duplicates of an
// earlier identity, and entries whose mirror path is a strict sub-path of
// another entry's path. The outer (shorter) path always survives. Returns
// the kept entries and the pruned ones.
func Prune(entries []SourceEntry) (kept, pruned []SourceEntry) {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		key := strings.ToLower(e.Upstream)
		if seen[key] {
			pruned = append(pruned, e)
			continue
		}
		seen[key] = true
		kept = append(kept, e)
	}

	nested := make(map[int]bool)
	for i := range kept {
		for j := range kept {
			if i == j || nested[i] || nested[j] {
				continue
			}
			pi := strings.Trim(kept[i].MirrorPath, "/")
			pj := strings.Trim(kept[j].MirrorPath, "/")
			if strings.HasPrefix(pj, pi+"/") {
				nested[j] = true
			}
		}
	}
	if len(nested) == 0 {
		return kept, pruned
	}

	flat := kept[:0]
	for i, e := range kept {
		if nested[i] {
			pruned = append(pruned, e)
			continue
		}
		flat = append(flat, e)
	}
	return flat, pruned
}
