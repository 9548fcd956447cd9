package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkhold/forkhold/internal/readme"
	"github.com/forkhold/forkhold/pkg/errors"
	"github.com/forkhold/forkhold/pkg/registry"
)

// removeCmd represents the remove command.
var removeCmd = &cobra.Command{
	Use:   "remove <owner/repo>",
	Short: "Unregister an upstream repository",
	Long: `Remove deletes the entry from the registry and refreshes the README
inventory table. The mirror directory itself is left in place; delete
it separately if the vendored content is no longer wanted.`,
	Example: `  forkhold remove octocat/hello-world`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	tree, err := workTree()
	if err != nil {
		return err
	}
	entries, err := registry.Load(registryPath(tree))
	if err != nil {
		return err
	}

	entries, removed := registry.Remove(entries, args[0])
	if !removed {
		return fmt.Errorf("%s is not registered: %w", args[0], errors.ErrNotFound)
	}
	if err := registry.Save(registryPath(tree), entries); err != nil {
		return err
	}
	if err := readme.Update(readmePath(tree), entries); err != nil {
		return err
	}

	cmd.Printf("Removed %s\n", args[0])
	return nil
}
