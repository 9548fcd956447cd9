// Package registry maintains the durable list of tracked upstream sources.
// The store is a JSON sequence of entries; unknown fields round-trip
// unchanged so older and newer tools can share one file.
package registry

import (
	"encoding/json"
	"strings"

	"github.com/agentstation/utc"

	"github.com/forkhold/forkhold/pkg/errors"
)

// DefaultBranch is assumed when an entry does not name a tracking branch.
const DefaultBranch = "master"

// knownFields are the JSON keys owned by this schema version. Everything
// else is preserved verbatim in the entry's extra map.
var knownFields = map[string]bool{
	"upstream":       true,
	"default_branch": true,
	"subtree_path":   true,
	"description":    true,
	"license":        true,
	"verified":       true,
	"notes":          true,
	"added_at":       true,
}

// License records best-effort, upstream-sourced license information.
type License struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// SourceEntry is one tracked upstream repository and the mirror subtree it
// maps to. Upstream is the identity: immutable once created and the join
// key across reconciliation runs.
type SourceEntry struct {
	Upstream    string   `json:"upstream"`
	Branch      string   `json:"default_branch,omitempty"`
	MirrorPath  string   `json:"subtree_path"`
	Description string   `json:"description,omitempty"`
	License     *License `json:"license,omitempty"`
	Verified    bool     `json:"verified,omitempty"`
	Notes       []string `json:"notes,omitempty"`
	AddedAt     utc.Time `json:"added_at,omitempty"`

	// extra carries fields this schema version does not know about.
	extra map[string]json.RawMessage
}

// TrackingBranch returns the branch to follow, defaulting when absent.
func (e *SourceEntry) TrackingBranch() string {
	if e.Branch == "" {
		return DefaultBranch
	}
	return e.Branch
}

// UpstreamURL returns the clone URL for the upstream identity. Identities
// that are already URLs, SSH remotes, or local paths pass through.
func (e *SourceEntry) UpstreamURL() string {
	if strings.Contains(e.Upstream, "://") || strings.HasPrefix(e.Upstream, "git@") || strings.HasPrefix(e.Upstream, "/") {
		return e.Upstream
	}
	return "https://github.com/" + e.Upstream + ".git"
}

// RemoteName derives the git remote name bound to this upstream. Characters
// outside [a-z0-9-_] are folded to '-' so the name is always valid.
func (e *SourceEntry) RemoteName() string {
	var b strings.Builder
	b.WriteString("upstream-")
	for _, r := range strings.ToLower(e.Upstream) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// Name returns the short display name, the repository part of the identity.
func (e *SourceEntry) Name() string {
	if i := strings.LastIndex(e.Upstream, "/"); i >= 0 {
		return e.Upstream[i+1:]
	}
	return e.Upstream
}

// AddNote appends to the entry's audit trail.
func (e *SourceEntry) AddNote(note string) {
	e.Notes = append(e.Notes, note)
}

// EnsureLicense returns the entry's license record, allocating it on first
// use. A nil License stays nil until something is known about it, keeping
// the stored JSON free of empty objects.
func (e *SourceEntry) EnsureLicense() *License {
	if e.License == nil {
		e.License = &License{}
	}
	return e.License
}

// Extra returns the preserved unknown field with the given key, if any.
func (e *SourceEntry) Extra(key string) (json.RawMessage, bool) {
	raw, ok := e.extra[key]
	return raw, ok
}

// SetExtra stores an unknown field to be preserved on save.
func (e *SourceEntry) SetExtra(key string, raw json.RawMessage) {
	if e.extra == nil {
		e.extra = make(map[string]json.RawMessage)
	}
	e.extra[key] = raw
}

// Validate checks the structural invariants of a single entry.
func (e *SourceEntry) Validate() error {
	if e.Upstream == "" {
		return errors.NewValidationError("upstream", e.Upstream, "cannot be empty")
	}
	if !strings.HasPrefix(e.Upstream, "https://") && !strings.HasPrefix(e.Upstream, "git@") {
		if strings.Count(e.Upstream, "/") != 1 {
			return errors.NewValidationError("upstream", e.Upstream, "expected owner/repo or a URL")
		}
	}
	if e.MirrorPath == "" {
		return errors.NewValidationError("subtree_path", e.MirrorPath, "cannot be empty")
	}
	if strings.HasPrefix(e.MirrorPath, "/") || strings.HasPrefix(e.MirrorPath, "..") {
		return errors.NewValidationError("subtree_path", e.MirrorPath, "must be relative to the repository root")
	}
	return nil
}

// UnmarshalJSON decodes the known schema and stashes every other field.
func (e *SourceEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type alias SourceEntry
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	*e = SourceEntry(known)

	for key, value := range raw {
		if knownFields[key] {
			continue
		}
		if e.extra == nil {
			e.extra = make(map[string]json.RawMessage)
		}
		e.extra[key] = value
	}
	return nil
}

// MarshalJSON re-emits the known schema plus any preserved unknown fields.
// Known fields win on key collision.
func (e *SourceEntry) MarshalJSON() ([]byte, error) {
	type alias SourceEntry
	knownJSON, err := json.Marshal(alias(*e))
	if err != nil {
		return nil, err
	}

	if len(e.extra) == 0 {
		return knownJSON, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(knownJSON, &merged); err != nil {
		return nil, err
	}
	for key, value := range e.extra {
		if _, taken := merged[key]; taken {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}
