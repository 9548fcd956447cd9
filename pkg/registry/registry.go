package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/forkhold/forkhold/pkg/errors"
)

// DefaultFile is the registry store at the repository root.
const DefaultFile = "forks.json"

// Load reads the registry store. A missing store is an empty registry, not
// an error; a malformed store is a fatal RegistryError.
func Load(path string) ([]SourceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceEntry{}, nil
		}
		return nil, errors.NewRegistryError(path, "cannot read store", err)
	}

	var entries []SourceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewRegistryError(path, "malformed store", err)
	}
	return entries, nil
}

// Save writes the registry store atomically, preserving entry order and any
// unknown fields carried by the entries.
func Save(path string, entries []SourceEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.NewRegistryError(path, "cannot encode store", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("close", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

// Find returns the entry with the given upstream identity, matched
// case-insensitively.
func Find(entries []SourceEntry, upstream string) (*SourceEntry, bool) {
	for i := range entries {
		if strings.EqualFold(entries[i].Upstream, upstream) {
			return &entries[i], true
		}
	}
	return nil, false
}

// Add appends a new entry after validating it against the existing set.
func Add(entries []SourceEntry, entry SourceEntry) ([]SourceEntry, error) {
	if err := entry.Validate(); err != nil {
		return entries, err
	}
	if _, found := Find(entries, entry.Upstream); found {
		return entries, errors.ErrAlreadyExists
	}
	for i := range entries {
		if Overlaps(entries[i].MirrorPath, entry.MirrorPath) {
			return entries, errors.NewValidationError("subtree_path", entry.MirrorPath,
				"overlaps existing mirror "+entries[i].MirrorPath)
		}
	}
	return append(entries, entry), nil
}

// Remove deletes the entry with the given upstream identity. It reports
// whether anything was removed.
func Remove(entries []SourceEntry, upstream string) ([]SourceEntry, bool) {
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if strings.EqualFold(e.Upstream, upstream) {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	return kept, removed
}
