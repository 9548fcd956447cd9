package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forkhold/forkhold/internal/github"
	"github.com/forkhold/forkhold/pkg/logging"
	"github.com/forkhold/forkhold/pkg/reconcile"
	"github.com/forkhold/forkhold/pkg/sync"
)

var (
	syncRepo   string
	syncBranch string
	syncDryRun bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile every registered upstream into its mirror",
	Long: `Sync walks the registry in order and, for each entry, fetches the
upstream tracking branch and imports or merges it into the mirror
directory as a squashed subtree. Provenance and license files are
refreshed alongside the content.

One entry failing never stops the batch: the failure is noted on the
entry and, when a credential is configured, reported as an issue.
Conflicted merges are rolled back and reported the same way.

When at least one mirror changed, the run commits everything to a
dated update branch, pushes it, and opens a pull request. A run with
no upstream movement leaves the repository untouched.`,
	Example: `  forkhold sync
  forkhold sync --dry-run
  forkhold sync --repo acme/monorepo --branch auto/subtree-sync-manual`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncRepo, "repo", "", "monorepo owner/name for issues and pull requests (default $GITHUB_REPOSITORY)")
	syncCmd.Flags().StringVar(&syncBranch, "branch", "", "update branch name (default auto/subtree-sync-<date>)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "log what would happen without touching the tree")
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tree, err := workTree()
	if err != nil {
		return err
	}
	if !syncDryRun {
		if err := tree.Verify(ctx); err != nil {
			return err
		}
	}

	repo := repoSlug(syncRepo)
	var issues sync.IssueReporter
	var reviews sync.ReviewRequester
	if token := githubToken(); token != "" {
		client := github.NewClient(token)
		issues, reviews = client, client
	} else {
		logging.Warn().Msg("No GitHub credential configured; issues and pull requests disabled")
	}

	orchestrator := sync.New(tree, reconcile.New(tree), issues, sync.NewPublisher(tree, repo, reviews))
	summary, err := orchestrator.Run(ctx, sync.Options{
		RegistryPath: registryFile,
		Branch:       syncBranch,
		DryRun:       syncDryRun,
	})
	if err != nil {
		return err
	}

	// Per-entry failures are already isolated, noted, and reported; they
	// do not fail the run.
	printSummary(summary)
	return nil
}

// printSummary writes the per-entry outcome table to stdout.
func printSummary(summary *sync.Summary) {
	for _, result := range summary.Results {
		marker := " "
		if result.Changed {
			marker = "*"
		}
		fmt.Fprintf(os.Stdout, "%s %-12s %s -> %s @ %s\n",
			marker, result.State, result.Entry.Upstream, result.Entry.MirrorPath, shortRev(result.Revision))
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(os.Stdout, "! failed       %s: %v\n", failure.Entry.Upstream, failure.Err)
	}
	if summary.Published {
		fmt.Fprintf(os.Stdout, "published %d update(s) on %s\n", len(summary.Changed), summary.Branch)
	} else {
		fmt.Fprintln(os.Stdout, "no updates published")
	}
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
