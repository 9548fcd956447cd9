package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forkhold/forkhold/internal/github"
	"github.com/forkhold/forkhold/pkg/errors"
)

var tokenOwner string

// tokenCmd represents the token command.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a GitHub App installation token",
	Long: `Token signs an application JWT with the App's private key, resolves
the installation for the target owner, and exchanges the JWT for a
short-lived installation token printed on stdout.

Requires APP_ID and APP_PRIVATE_KEY in the environment (or a .env
file). The owner defaults to the one in $GITHUB_REPOSITORY.

Intended for CI: the token is valid for one hour and scoped to the
installation's repositories.`,
	Example: `  GITHUB_TOKEN=$(forkhold token --owner acme)`,
	RunE:    runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenOwner, "owner", "", "installation account login (default the owner of $GITHUB_REPOSITORY)")
}

func runToken(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	appID := strings.TrimSpace(viper.GetString("APP_ID"))
	privateKey := viper.GetString("APP_PRIVATE_KEY")
	if appID == "" || privateKey == "" {
		return fmt.Errorf("APP_ID and APP_PRIVATE_KEY must be set: %w", errors.ErrTokenRequired)
	}

	owner := tokenOwner
	if owner == "" {
		owner, _, _ = strings.Cut(repoSlug(""), "/")
	}
	if owner == "" {
		return fmt.Errorf("no installation owner: set --owner or GITHUB_REPOSITORY: %w", errors.ErrInvalidInput)
	}

	appJWT, err := github.AppJWT(appID, privateKey)
	if err != nil {
		return err
	}

	client := github.NewClient("")
	installations, err := client.ListInstallations(ctx, appJWT)
	if err != nil {
		return err
	}
	installation, ok := github.InstallationFor(installations, owner)
	if !ok {
		return fmt.Errorf("app is not installed for %s: %w", owner, errors.ErrNotFound)
	}

	token, err := client.InstallationToken(ctx, appJWT, installation.ID)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
