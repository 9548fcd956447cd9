package reconcile

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/utc"

	"github.com/forkhold/forkhold/pkg/errors"
)

// MetadataFileName is the provenance record stored alongside each mirror,
// making every mirror self-describing.
const MetadataFileName = "UPSTREAM.md"

// timeLayout is the import timestamp format used in the metadata record.
const timeLayout = "2006-01-02 15:04:05 MST"

// Record is the provenance metadata written into a mirror after every
// finalized reconciliation.
type Record struct {
	Upstream    string
	Branch      string
	Revision    string
	ImportedAt  utc.Time
	LicenseNote string

	// Status explains a failed reconciliation; empty on success.
	Status string
}

// equivalent reports whether two records describe the same import. The
// timestamp is deliberately ignored so an unchanged mirror is not
// rewritten on every run.
func (r *Record) equivalent(other *Record) bool {
	if other == nil {
		return false
	}
	return r.Upstream == other.Upstream &&
		r.Branch == other.Branch &&
		r.Revision == other.Revision &&
		r.LicenseNote == other.LicenseNote &&
		r.Status == other.Status
}

// render produces the markdown metadata document.
func (r *Record) render() string {
	upstream := r.Upstream
	if !strings.Contains(upstream, "://") && !strings.HasPrefix(upstream, "git@") {
		upstream = "https://github.com/" + upstream
	}
	lines := []string{
		"# Upstream metadata",
		"",
		"- Upstream repository: " + upstream,
		"- Upstream branch: " + r.Branch,
		"- Latest upstream commit: " + r.Revision,
		"- Imported at: " + r.ImportedAt.Format(timeLayout),
		"- License: " + r.LicenseNote,
	}
	if r.Status != "" {
		lines = append(lines, "- Status: "+r.Status)
	}
	return strings.Join(lines, "\n") + "\n"
}

// WriteMetadata records provenance into dir. A record equivalent to the one
// already on disk is left untouched, keeping re-runs free of timestamp
// churn.
func WriteMetadata(dir string, record *Record) error {
	if existing, ok := ReadMetadata(dir); ok && record.equivalent(existing) {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	if record.ImportedAt.IsZero() {
		record.ImportedAt = utc.Now()
	}

	path := filepath.Join(dir, MetadataFileName)
	if err := os.WriteFile(path, []byte(record.render()), 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// ReadMetadata parses the provenance record in dir, reporting whether one
// exists. Unparseable fields come back empty rather than failing: the
// record is advisory, not authoritative.
func ReadMetadata(dir string) (*Record, bool) {
	f, err := os.Open(filepath.Join(dir, MetadataFileName))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	record := &Record{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "- Upstream repository: "); ok {
			record.Upstream = identityFromURL(strings.TrimSpace(v))
		}
		if v, ok := strings.CutPrefix(line, "- Upstream branch: "); ok {
			record.Branch = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "- Latest upstream commit: "); ok {
			record.Revision = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "- License: "); ok {
			record.LicenseNote = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "- Status: "); ok {
			record.Status = strings.TrimSpace(v)
		}
	}
	return record, true
}

// identityFromURL reduces a github URL back to owner/repo; other remotes
// are kept verbatim.
func identityFromURL(raw string) string {
	rest, ok := strings.CutPrefix(raw, "https://github.com/")
	if !ok {
		return raw
	}
	return strings.Trim(strings.TrimSuffix(rest, ".git"), "/")
}
