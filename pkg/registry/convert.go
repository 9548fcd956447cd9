package registry

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/forkhold/forkhold/pkg/errors"
)

// legacyFork is one record of the legacy YAML registry shape.
type legacyFork struct {
	Name          string `yaml:"name"`
	Source        string `yaml:"source"`
	Upstream      string `yaml:"upstream"`
	DefaultBranch string `yaml:"default_branch"`
	MigrateTo     string `yaml:"migrate_to"`
	URL           string `yaml:"url"`
}

// legacyFile is the top-level legacy YAML document.
type legacyFile struct {
	Forks []legacyFork `yaml:"forks"`
}

// ImportYAML converts a legacy forks.yaml registry into SourceEntry records.
// Mirror paths are derived from each record's migrate_to location relative
// to rootBase (see MirrorPrefix). Records without an upstream are skipped.
func ImportYAML(path, rootBase string) ([]SourceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var file legacyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	var entries []SourceEntry
	for _, fork := range file.Forks {
		if fork.Upstream == "" {
			continue
		}
		mirror := fork.MigrateTo
		if mirror != "" {
			prefix, err := MirrorPrefix(mirror, rootBase)
			if err != nil {
				return nil, err
			}
			mirror = prefix
		} else if fork.Name != "" {
			mirror = fork.Name
		} else {
			continue
		}
		entry := SourceEntry{
			Upstream:   fork.Upstream,
			Branch:     fork.DefaultBranch,
			MirrorPath: mirror,
		}
		if err := entry.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
