package sync

import (
	"context"
	"strings"

	"github.com/forkhold/forkhold/internal/github"
	"github.com/forkhold/forkhold/pkg/errors"
	"github.com/forkhold/forkhold/pkg/logging"
	"github.com/forkhold/forkhold/pkg/reconcile"
)

// CommitSubject is the first line of every publish commit.
const CommitSubject = "chore: sync upstream subtrees"

// ReviewRequester opens the consolidated review request. Satisfied by the
// github client; nil when no credential is configured.
type ReviewRequester interface {
	CreatePullRequest(ctx context.Context, repo string, pr github.NewPullRequest) error
}

// Publisher commits the aggregated changes to the update branch, pushes
// it, and requests review. It runs at most once per batch, and only when
// the changed set is non-empty.
type Publisher struct {
	tree    Tree
	repo    string
	reviews ReviewRequester
}

// NewPublisher creates a Publisher for the monorepo repo. reviews may be
// nil, which degrades the review request to a logged no-op.
func NewPublisher(tree Tree, repo string, reviews ReviewRequester) *Publisher {
	return &Publisher{tree: tree, repo: repo, reviews: reviews}
}

// Publish stages paths, commits, pushes branch, and opens one review
// request enumerating the changed entries. Any failure is a PublishError:
// per-mirror work already on disk stays put.
func (p *Publisher) Publish(ctx context.Context, branch, base string, paths []string, changed []*reconcile.Result) error {
	log := logging.Ctx(ctx)

	if err := p.tree.AddPaths(ctx, paths...); err != nil {
		return errors.NewPublishError("stage", branch, err)
	}
	if err := p.tree.Commit(ctx, commitMessage(changed)); err != nil {
		return errors.NewPublishError("commit", branch, err)
	}
	if err := p.tree.Push(ctx, "origin", branch); err != nil {
		return errors.NewPublishError("push", branch, err)
	}

	if p.reviews == nil || p.repo == "" {
		log.Warn().Str("branch", branch).Msg("No review collaborator configured; branch pushed without a pull request")
		return nil
	}

	pr := github.NewPullRequest{
		Title: CommitSubject,
		Body:  reviewBody(changed),
		Head:  branch,
		Base:  base,
	}
	if err := p.reviews.CreatePullRequest(ctx, p.repo, pr); err != nil {
		return errors.NewPublishError("pull_request", branch, err)
	}

	log.Info().Str("branch", branch).Str("base", base).Msg("Review request opened")
	return nil
}

// commitMessage enumerates the touched sources under the fixed subject.
func commitMessage(changed []*reconcile.Result) string {
	var b strings.Builder
	b.WriteString(CommitSubject)
	b.WriteString("\n\n")
	for _, result := range changed {
		b.WriteString("- ")
		b.WriteString(result.Entry.Name())
		b.WriteString(" (")
		b.WriteString(result.Entry.MirrorPath)
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// reviewBody summarizes every changed entry: source, path, revision, and
// license note.
func reviewBody(changed []*reconcile.Result) string {
	var b strings.Builder
	b.WriteString("Automated subtree updates performed.\n\n")
	for _, result := range changed {
		b.WriteString("- ")
		b.WriteString(result.Entry.Name())
		b.WriteString(" (")
		b.WriteString(result.Entry.MirrorPath)
		b.WriteString("): ")
		b.WriteString(result.Revision)
		b.WriteString(" [")
		b.WriteString(result.LicenseNote)
		b.WriteString("]\n")
	}
	return b.String()
}
