package cmd

import (
	"github.com/spf13/cobra"

	"github.com/forkhold/forkhold/internal/readme"
	"github.com/forkhold/forkhold/pkg/registry"
)

// readmeCmd represents the readme command.
var readmeCmd = &cobra.Command{
	Use:   "readme",
	Short: "Regenerate the README inventory table",
	Long: `Readme rewrites the mirror inventory table in README.md from the
registry. The table lives between marker comments; the rest of the
document is preserved. A README without markers gets the table
appended.`,
	Example: `  forkhold readme`,
	RunE:    runReadme,
}

func init() {
	rootCmd.AddCommand(readmeCmd)
}

func runReadme(cmd *cobra.Command, _ []string) error {
	tree, err := workTree()
	if err != nil {
		return err
	}
	entries, err := registry.Load(registryPath(tree))
	if err != nil {
		return err
	}
	if err := readme.Update(readmePath(tree), entries); err != nil {
		return err
	}
	cmd.Printf("README table regenerated for %d source(s)\n", len(entries))
	return nil
}
