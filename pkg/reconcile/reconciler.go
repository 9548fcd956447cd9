package reconcile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/forkhold/forkhold/pkg/errors"
	"github.com/forkhold/forkhold/pkg/logging"
	"github.com/forkhold/forkhold/pkg/registry"
)

// WorkTree is the version-control collaborator the reconciler drives. It is
// one shared checkout: callers get exclusive use through Lock, and every
// mutating call happens under that hold.
type WorkTree interface {
	Root() string
	Lock() (release func())
	EnsureRemote(ctx context.Context, name, url string) error
	Fetch(ctx context.Context, remote, branch string) (string, error)
	SubtreeAdd(ctx context.Context, prefix, remote, branch string) error
	SubtreePull(ctx context.Context, prefix, remote, branch string) error
	StatusDirty(ctx context.Context, prefix string) (bool, error)
	AddPaths(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) error
}

// Reconciler executes the per-entry state machine against one working tree.
type Reconciler struct {
	tree WorkTree
}

// New creates a Reconciler for the given working tree.
func New(tree WorkTree) *Reconciler {
	return &Reconciler{tree: tree}
}

// Reconcile brings one entry's mirror up to date with its upstream and
// returns the finalized result. The tree lock is held for the whole
// sequence; there is no cancellation between the import/merge starting and
// the entry finalizing.
//
// A clean or conflicted merge both finalize: the conflicted case rolls the
// tree back, records the failure in the result and the mirror's provenance,
// and returns a nil error so the batch can continue. Failures before the
// merge (remote binding, fetch) return an error and no result.
func (r *Reconciler) Reconcile(ctx context.Context, entry *registry.SourceEntry) (*Result, error) {
	release := r.tree.Lock()
	defer release()

	log := logging.Ctx(ctx)
	remote := entry.RemoteName()
	branch := entry.TrackingBranch()

	if err := r.tree.EnsureRemote(ctx, remote, entry.UpstreamURL()); err != nil {
		return nil, err
	}

	log.Debug().Str("upstream", entry.Upstream).Str("state", StateFetching.String()).Msg("Fetching tracking branch")
	revision, err := r.tree.Fetch(ctx, remote, branch)
	if err != nil {
		return nil, err
	}

	mirrorDir := filepath.Join(r.tree.Root(), filepath.FromSlash(entry.MirrorPath))

	// Mirror existence is re-checked against the filesystem on every run,
	// never trusted from the registry.
	state := StateInitializing
	if mirrorExists(mirrorDir) {
		state = StateMerging
	}
	log.Debug().Str("upstream", entry.Upstream).Str("state", state.String()).Str("revision", revision).Msg("Applying upstream tree")

	initializing := state == StateInitializing
	prior, hadPrior := ReadMetadata(mirrorDir)

	var conflict error
	switch state {
	case StateInitializing:
		if err := r.tree.SubtreeAdd(ctx, entry.MirrorPath, remote, branch); err != nil {
			return nil, err
		}
		state = StateClean
	case StateMerging:
		err := r.tree.SubtreePull(ctx, entry.MirrorPath, remote, branch)
		switch {
		case err == nil:
			state = StateClean
		case errors.IsConflict(err):
			state = StateConflicted
			conflict = err
		default:
			return nil, err
		}
	}

	// FINALIZED: license and provenance are recorded whatever the merge
	// outcome, so the mirror always describes itself.
	licenseNote, found, err := syncLicense(mirrorDir)
	if err != nil {
		return nil, err
	}

	record := &Record{
		Upstream:    entry.Upstream,
		Branch:      branch,
		Revision:    revision,
		LicenseNote: licenseNote,
	}
	if state == StateConflicted {
		record.Status = "merge conflicted; manual resolution required"
	}
	if err := WriteMetadata(mirrorDir, record); err != nil {
		return nil, err
	}

	if found {
		license := entry.EnsureLicense()
		license.Verified = true
		license.URL = entry.MirrorPath + "/" + LicenseFileName
	} else if entry.License != nil {
		entry.License.Verified = false
	}

	// The provenance and license writes are tracked modifications; left
	// uncommitted they make git subtree refuse the next entry's merge
	// ("working tree has modifications"), so each entry commits its own
	// finalize writes before releasing the tree.
	dirty, err := r.tree.StatusDirty(ctx, entry.MirrorPath)
	if err != nil {
		return nil, err
	}
	committed := false
	if dirty {
		if err := r.tree.AddPaths(ctx, entry.MirrorPath); err != nil {
			return nil, err
		}
		if err := r.tree.Commit(ctx, "chore: record upstream provenance for "+entry.Upstream); err != nil {
			return nil, err
		}
		committed = true
	}

	// A fresh import is always a change. For a merge, the squashed commit
	// has already landed, so the status query alone misses it: the mirror
	// changed when anything under the prefix needed the finalize commit or
	// the provenance revision advanced.
	var changed bool
	switch {
	case state == StateConflicted:
		changed = false
	case initializing:
		changed = true
	default:
		changed = dirty || !hadPrior || prior.Revision != revision
	}

	return &Result{
		Entry:       entry,
		State:       state,
		Revision:    revision,
		LicenseNote: licenseNote,
		Changed:     changed,
		Committed:   committed,
		Err:         conflict,
	}, nil
}

// mirrorExists reports whether the mirror subdirectory currently has
// content on disk.
func mirrorExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

