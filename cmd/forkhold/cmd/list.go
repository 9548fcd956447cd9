package cmd

import (
	"github.com/spf13/cobra"

	"github.com/forkhold/forkhold/pkg/registry"
)

var listDiscover bool

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered upstream sources",
	Long: `List prints one line per registered source: the upstream identity,
its mirror directory, and whether the entry has been verified against
the GitHub API.

With --discover the working tree is also scanned for mirror
directories carrying provenance files that no registry entry claims.
Discovered sources are printed as suggestions only; register them
explicitly with add.`,
	Example: `  forkhold list
  forkhold list --discover`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listDiscover, "discover", false, "scan the tree for unregistered mirrors")
}

func runList(cmd *cobra.Command, _ []string) error {
	tree, err := workTree()
	if err != nil {
		return err
	}
	entries, err := registry.Load(registryPath(tree))
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		cmd.Println("No sources registered.")
	}
	for i := range entries {
		state := "unverified"
		if entries[i].Verified {
			state = "verified"
		}
		cmd.Printf("- %s -> %s (%s)\n", entries[i].Upstream, entries[i].MirrorPath, state)
	}

	if !listDiscover {
		return nil
	}

	suggestions, err := registry.Discover(tree.Root(), entries)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		cmd.Println("No unregistered mirrors found.")
		return nil
	}
	cmd.Println("\nUnregistered mirrors:")
	for i := range suggestions {
		cmd.Printf("? %s -> %s\n", suggestions[i].Upstream, suggestions[i].MirrorPath)
	}
	return nil
}
