package cmd

import (
	"github.com/spf13/cobra"

	"github.com/forkhold/forkhold/internal/readme"
	"github.com/forkhold/forkhold/pkg/registry"
)

var pruneDryRun bool

// pruneCmd represents the prune command.
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove duplicate and overlapping registry entries",
	Long: `Prune enforces the registry invariants: one entry per upstream
identity and no mirror directory nested inside another. Duplicate
identities keep their first occurrence; nested mirrors keep the outer
entry. The README table is refreshed when anything was removed.`,
	Example: `  forkhold prune
  forkhold prune --dry-run`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "report what would be removed without saving")
}

func runPrune(cmd *cobra.Command, _ []string) error {
	tree, err := workTree()
	if err != nil {
		return err
	}
	entries, err := registry.Load(registryPath(tree))
	if err != nil {
		return err
	}

	kept, pruned := registry.Prune(entries)
	for i := range pruned {
		cmd.Printf("- %s -> %s\n", pruned[i].Upstream, pruned[i].MirrorPath)
	}
	if len(pruned) == 0 {
		cmd.Println("Registry is clean.")
		return nil
	}
	if pruneDryRun {
		cmd.Printf("Would remove %d entr(ies)\n", len(pruned))
		return nil
	}

	if err := registry.Save(registryPath(tree), kept); err != nil {
		return err
	}
	if err := readme.Update(readmePath(tree), kept); err != nil {
		return err
	}
	cmd.Printf("Removed %d entr(ies)\n", len(pruned))
	return nil
}
