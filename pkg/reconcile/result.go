// Package reconcile brings one mirror subtree up to date with its upstream.
// Each entry moves through a small state machine: fetch the tracking
// branch, then either import the full tree (mirror absent) or merge the
// delta (mirror present), always as a single squashed unit, and finally
// record provenance whatever the outcome.
package reconcile

import "github.com/forkhold/forkhold/pkg/registry"

// State is a reconciliation phase for one entry.
type State int

// Reconciliation states, in order of progression.
const (
	StateUninitialized State = iota
	StateFetching
	StateInitializing
	StateMerging
	StateClean
	StateConflicted
	StateFinalized
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateFetching:
		return "fetching"
	case StateInitializing:
		return "initializing"
	case StateMerging:
		return "merging"
	case StateClean:
		return "clean"
	case StateConflicted:
		return "conflicted"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Result is the outcome of reconciling one entry. It exists for one run
// only; everything durable lives in the registry and the mirror's
// provenance record.
type Result struct {
	Entry       *registry.SourceEntry
	State       State // StateClean or StateConflicted
	Revision    string
	LicenseNote string
	Changed     bool
	Committed   bool  // a finalize commit for this entry landed on the branch
	Err         error // set when State is StateConflicted
}

// Conflicted reports whether the entry ended in an unresolved merge.
func (r *Result) Conflicted() bool {
	return r.State == StateConflicted
}
