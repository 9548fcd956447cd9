package cmd

import (
	"github.com/spf13/cobra"

	"github.com/forkhold/forkhold/internal/readme"
	"github.com/forkhold/forkhold/pkg/registry"
)

var (
	convertBase  string
	convertMerge bool
)

// convertCmd represents the convert command.
var convertCmd = &cobra.Command{
	Use:   "convert <forks.yaml>",
	Short: "Convert a legacy YAML registry into the JSON registry",
	Long: `Convert reads a legacy forks.yaml registry and writes its records
into the JSON registry. Mirror paths are derived from each record's
migration target relative to the monorepo base directory name.

By default the converted entries replace the registry; --merge appends
them to the existing entries instead, skipping duplicates.`,
	Example: `  forkhold convert forks.yaml --base all_forked_repositories
  forkhold convert forks.yaml --merge`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertBase, "base", "", "monorepo base directory name migration targets are relative to")
	convertCmd.Flags().BoolVar(&convertMerge, "merge", false, "append to the existing registry instead of replacing it")
}

func runConvert(cmd *cobra.Command, args []string) error {
	tree, err := workTree()
	if err != nil {
		return err
	}

	converted, err := registry.ImportYAML(args[0], convertBase)
	if err != nil {
		return err
	}

	entries := converted
	if convertMerge {
		entries, err = registry.Load(registryPath(tree))
		if err != nil {
			return err
		}
		for _, entry := range converted {
			merged, err := registry.Add(entries, entry)
			if err != nil {
				cmd.Printf("skipping %s: %v\n", entry.Upstream, err)
				continue
			}
			entries = merged
		}
	}

	if err := registry.Save(registryPath(tree), entries); err != nil {
		return err
	}
	if err := readme.Update(readmePath(tree), entries); err != nil {
		return err
	}
	cmd.Printf("Converted %d source(s)\n", len(converted))
	return nil
}
