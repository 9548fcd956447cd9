// Package cmd implements the forkhold command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forkhold/forkhold/pkg/gitwt"
	"github.com/forkhold/forkhold/pkg/logging"
	"github.com/forkhold/forkhold/pkg/registry"
)

var (
	configFile   string
	workDir      string
	registryFile string
	verbose      bool
	quiet        bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "forkhold",
	Short: "Upstream subtree synchronization for fork monorepos",
	Long: `Forkhold keeps a monorepo of vendored upstream repositories current.
Each registered upstream is mirrored into a subdirectory as a squashed
git subtree; forkhold fetches every upstream, merges new history into
the mirrors, records provenance, and publishes the aggregate result as
a single review branch.

The registry of mirrored sources lives in forks.json at the monorepo
root and is the single durable source of truth.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it with a
// signal-aware context.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .forkhold.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", ".", "monorepo working tree root")
	rootCmd.PersistentFlags().StringVar(&registryFile, "registry", registry.DefaultFile, "registry store path, relative to the working tree")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("Failed to bind verbose flag: %v", err))
	}
	if err := viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet")); err != nil {
		panic(fmt.Sprintf("Failed to bind quiet flag: %v", err))
	}
	if err := viper.BindPFlag("registry", rootCmd.PersistentFlags().Lookup("registry")); err != nil {
		panic(fmt.Sprintf("Failed to bind registry flag: %v", err))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(workDir)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".forkhold")
	}

	// .env files first, so Viper env binding sees them.
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	bindCredentials()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	configureLogging()
}

// configureLogging sets the global log level from flags and environment.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose || viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	if quiet || viper.GetBool("quiet") {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}
	logging.SetLevel(level)
}

// loadEnvFiles loads environment variables from .env files. .env.local
// overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		if err := godotenv.Load(filepath.Join(workDir, envFile)); err == nil && verbose {
			fmt.Fprintf(os.Stderr, "Loaded %s\n", envFile)
		}
	}
}

// bindCredentials explicitly binds credential environment variables so
// Viper can access them even when they are absent from the config file.
func bindCredentials() {
	for _, key := range []string{
		"FORKS_MANAGER_PAT",
		"GITHUB_TOKEN",
		"GITHUB_REPOSITORY",
		"APP_ID",
		"APP_PRIVATE_KEY",
	} {
		if err := viper.BindEnv(key); err != nil {
			panic(fmt.Sprintf("Failed to bind %s: %v", key, err))
		}
	}
}

// workTree returns the Tree rooted at the configured working directory.
func workTree() (*gitwt.Tree, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, err
	}
	return gitwt.New(abs), nil
}

// registryPath resolves the registry store location against the working
// tree root.
func registryPath(tree *gitwt.Tree) string {
	if filepath.IsAbs(registryFile) {
		return registryFile
	}
	return filepath.Join(tree.Root(), registryFile)
}

// readmePath is the README the inventory table lives in.
func readmePath(tree *gitwt.Tree) string {
	return filepath.Join(tree.Root(), "README.md")
}

// githubToken resolves the API credential: the dedicated PAT first, then
// the ambient token. Empty when neither is set.
func githubToken() string {
	if pat := viper.GetString("FORKS_MANAGER_PAT"); pat != "" {
		return pat
	}
	return viper.GetString("GITHUB_TOKEN")
}

// repoSlug is the monorepo's own owner/name, from the flag value when
// given, otherwise from the CI environment.
func repoSlug(flag string) string {
	if flag != "" {
		return flag
	}
	return viper.GetString("GITHUB_REPOSITORY")
}
