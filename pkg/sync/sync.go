// Package sync is the batch orchestrator: it walks the registry in order,
// reconciles every entry against one shared working tree, isolates
// per-entry failures, and hands the aggregated changed set to the
// publisher. Errors below this package never escape it; they become
// per-entry failure notes and, when an issue collaborator is configured,
// failure reports.
package sync

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/forkhold/forkhold/pkg/errors"
	"github.com/forkhold/forkhold/pkg/logging"
	"github.com/forkhold/forkhold/pkg/reconcile"
	"github.com/forkhold/forkhold/pkg/registry"
)

// Tree is the working-tree surface the orchestrator needs beyond what the
// reconciler drives: branch lifecycle and the final commit/push.
type Tree interface {
	reconcile.WorkTree
	DefaultBranch(ctx context.Context) string
	CheckoutNew(ctx context.Context, branch, start string) error
	Checkout(ctx context.Context, branch string) error
	DeleteBranch(ctx context.Context, branch string) error
	Push(ctx context.Context, remote, branch string) error
}

// Reconciler reconciles one entry. Satisfied by reconcile.Reconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, entry *registry.SourceEntry) (*reconcile.Result, error)
}

// IssueReporter opens failure reports. Satisfied by the github client; nil
// when no credential is configured.
type IssueReporter interface {
	CreateIssue(ctx context.Context, repo, title, body string) error
}

// Failure pairs an entry with the error that stopped it.
type Failure struct {
	Entry *registry.SourceEntry
	Err   error
}

// Summary is the aggregate outcome of one run.
type Summary struct {
	Results   []*reconcile.Result
	Failures  []Failure
	Changed   []*reconcile.Result
	Published bool
	Branch    string
}

// Options configures a run.
type Options struct {
	// RegistryPath is the store location; relative paths resolve against
	// the working tree root.
	RegistryPath string

	// Branch overrides the generated update branch name.
	Branch string

	// DryRun logs what a run would do without touching the tree.
	DryRun bool
}

// Orchestrator drives registry load, per-entry reconciliation, registry
// save, and publishing.
type Orchestrator struct {
	tree       Tree
	reconciler Reconciler
	issues     IssueReporter
	publisher  *Publisher
}

// New creates an Orchestrator. issues and publisher may be nil; the
// corresponding steps degrade to logged no-ops.
func New(tree Tree, reconciler Reconciler, issues IssueReporter, publisher *Publisher) *Orchestrator {
	return &Orchestrator{tree: tree, reconciler: reconciler, issues: issues, publisher: publisher}
}

// Run executes one full batch. The returned error is fatal only: an
// unreadable registry or a failed publish. Per-entry failures live in the
// summary.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	log := logging.Ctx(ctx)

	registryPath := o.registryPath(opts)
	entries, err := registry.Load(registryPath)
	if err != nil {
		return nil, err
	}
	if err := registry.Validate(entries); err != nil {
		log.Warn().Err(err).Msg("Registry invariants violated; run `forkhold prune` to clean up")
	}

	if opts.DryRun {
		for i := range entries {
			log.Info().
				Str("upstream", entries[i].Upstream).
				Str("path", entries[i].MirrorPath).
				Str("branch", entries[i].TrackingBranch()).
				Msg("Dry run: would reconcile")
		}
		return &Summary{}, nil
	}

	base := o.tree.DefaultBranch(ctx)
	branch := opts.Branch
	if branch == "" {
		branch = "auto/subtree-sync-" + utc.Now().Format("20060102")
	}
	if err := o.tree.CheckoutNew(ctx, branch, "origin/"+base); err != nil {
		return nil, errors.NewPublishError("checkout", branch, err)
	}

	summary := &Summary{Branch: branch}
	for i := range entries {
		entry := &entries[i]
		log.Info().Str("upstream", entry.Upstream).Str("path", entry.MirrorPath).Msg("Processing entry")

		result, err := o.reconciler.Reconcile(ctx, entry)
		if err != nil {
			o.recordFailure(ctx, summary, entry, err)
			continue
		}

		summary.Results = append(summary.Results, result)
		if result.Conflicted() {
			o.recordFailure(ctx, summary, entry, result.Err)
		}
		if result.Changed {
			summary.Changed = append(summary.Changed, result)
		}

		log.Info().
			Str("upstream", entry.Upstream).
			Str("state", result.State.String()).
			Str("revision", result.Revision).
			Bool("changed", result.Changed).
			Msg("Entry finalized")
	}

	// Reconciliation mutates license/verification fields and audit notes;
	// the registry is the only durable store, so persist before publishing.
	if err := registry.Save(registryPath, entries); err != nil {
		return summary, err
	}

	if len(summary.Changed) == 0 {
		_ = o.tree.Checkout(ctx, base)
		// Conflicted entries commit their Status provenance on the update
		// branch; deleting it would discard the only on-disk record of the
		// conflict, so the branch stays for manual inspection.
		if anyCommitted(summary) {
			log.Info().Str("branch", branch).Msg("No publishable updates; conflict provenance kept on branch")
			return summary, nil
		}
		log.Info().Msg("No updates detected")
		_ = o.tree.DeleteBranch(ctx, branch)
		return summary, nil
	}

	if o.publisher == nil {
		log.Warn().Int("changed", len(summary.Changed)).Msg("No publisher configured; changes left uncommitted")
		return summary, nil
	}

	staged := o.stagedPaths(registryPath, summary.Changed)
	if err := o.publisher.Publish(ctx, branch, base, staged, summary.Changed); err != nil {
		return summary, err
	}
	summary.Published = true

	log.Info().
		Int("entries", len(summary.Results)).
		Int("changed", len(summary.Changed)).
		Int("failed", len(summary.Failures)).
		Str("branch", branch).
		Msg("Run complete")
	return summary, nil
}

// recordFailure isolates one entry's failure: note it on the entry, count
// it, and surface it through the issue collaborator when one is available.
func (o *Orchestrator) recordFailure(ctx context.Context, summary *Summary, entry *registry.SourceEntry, err error) {
	log := logging.Ctx(ctx)
	log.Error().Err(err).Str("upstream", entry.Upstream).Msg("Entry failed")

	entry.AddNote(time.Now().UTC().Format("2006-01-02") + ": sync failed: " + err.Error())
	summary.Failures = append(summary.Failures, Failure{Entry: entry, Err: err})

	if o.issues == nil || o.publisher == nil || o.publisher.repo == "" {
		log.Warn().Str("upstream", entry.Upstream).Msg("No issue collaborator configured; failure only logged")
		return
	}

	title := "Upstream sync failed for " + entry.Name()
	body := "Automatic subtree update failed for " + entry.Upstream + ".\n\nError: " + err.Error() + "\n"
	if issueErr := o.issues.CreateIssue(ctx, o.publisher.repo, title, body); issueErr != nil {
		log.Error().Err(issueErr).Str("upstream", entry.Upstream).Msg("Failed to open issue")
	}
}

// anyCommitted reports whether any entry's finalize commit landed on the
// update branch.
func anyCommitted(summary *Summary) bool {
	for _, result := range summary.Results {
		if result.Committed {
			return true
		}
	}
	return false
}

// registryPath resolves the store location against the tree root.
func (o *Orchestrator) registryPath(opts Options) string {
	path := opts.RegistryPath
	if path == "" {
		path = registry.DefaultFile
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.tree.Root(), path)
}

// stagedPaths lists what the publisher commits: every changed mirror plus
// the registry store when it lives inside the tree.
func (o *Orchestrator) stagedPaths(registryPath string, changed []*reconcile.Result) []string {
	var paths []string
	for _, result := range changed {
		paths = append(paths, result.Entry.MirrorPath)
	}
	if rel, err := filepath.Rel(o.tree.Root(), registryPath); err == nil && !strings.HasPrefix(rel, "..") {
		paths = append(paths, rel)
	}
	return paths
}
