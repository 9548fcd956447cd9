package cmd

import (
	"strings"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	"github.com/forkhold/forkhold/internal/github"
	"github.com/forkhold/forkhold/internal/readme"
	"github.com/forkhold/forkhold/pkg/logging"
	"github.com/forkhold/forkhold/pkg/registry"
)

var (
	addPath        string
	addBranch      string
	addDescription string
)

// addCmd represents the add command.
var addCmd = &cobra.Command{
	Use:   "add <owner/repo>",
	Short: "Register an upstream repository for mirroring",
	Long: `Add records a new upstream source in the registry and refreshes the
README inventory table. When a GitHub credential is configured the
entry is enriched from the repository metadata: description, default
branch, and license.

The mirror itself is created on the next sync run.`,
	Example: `  forkhold add octocat/hello-world --path vendor/hello-world
  forkhold add acme/widget --branch develop`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addPath, "path", "", "mirror directory, relative to the monorepo root (default the repository name)")
	addCmd.Flags().StringVar(&addBranch, "branch", "", "upstream branch to track (default the upstream's default branch)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "entry description (default the upstream's description)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	upstream := strings.TrimSpace(args[0])

	tree, err := workTree()
	if err != nil {
		return err
	}
	entries, err := registry.Load(registryPath(tree))
	if err != nil {
		return err
	}

	entry := registry.SourceEntry{
		Upstream:    upstream,
		Branch:      addBranch,
		MirrorPath:  addPath,
		Description: addDescription,
		AddedAt:     utc.Now(),
	}
	if entry.MirrorPath == "" {
		if _, name, ok := strings.Cut(upstream, "/"); ok {
			entry.MirrorPath = name
		}
	}

	if token := githubToken(); token != "" {
		enrichEntry(cmd, github.NewClient(token), &entry)
	} else {
		logging.Warn().Str("upstream", upstream).Msg("No GitHub credential configured; entry added unverified")
	}

	entries, err = registry.Add(entries, entry)
	if err != nil {
		return err
	}
	if err := registry.Save(registryPath(tree), entries); err != nil {
		return err
	}
	if err := readme.Update(readmePath(tree), entries); err != nil {
		return err
	}

	cmd.Printf("Added %s -> %s\n", entry.Upstream, entry.MirrorPath)
	return nil
}

// enrichEntry fills the blanks from the upstream repository's metadata.
// Enrichment is best-effort: an API failure leaves the entry unverified.
func enrichEntry(cmd *cobra.Command, client *github.Client, entry *registry.SourceEntry) {
	repo, err := client.GetRepository(cmd.Context(), entry.Upstream)
	if err != nil {
		logging.Err(err).Str("upstream", entry.Upstream).Msg("Repository lookup failed; entry added unverified")
		return
	}

	if entry.Description == "" {
		entry.Description = repo.Description
	}
	if entry.Branch == "" {
		entry.Branch = repo.DefaultBranch
	}
	if name := repo.License.LicenseName(); name != "" {
		entry.EnsureLicense().Name = name
	}
	if repo.HTMLURL != "" {
		branch := repo.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		license := entry.EnsureLicense()
		if license.URL == "" {
			license.URL = repo.HTMLURL + "/blob/" + branch + "/LICENSE"
		}
	}
	entry.Verified = true
}
