// Package cmd provides the CLI commands for manman.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/ui"
)

const version = "0.1.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "manman",
	Short: "Kubernetes manifest generator for team templates",
	Long: `manman - manifest manager

Renders Kubernetes manifests and Dockerfiles from a project description
and a cascade of templates (global default, team default, team language).
Secrets are encrypted with a per-project hex key and injected as
environment variables at render time.

RENDERING
  render -f request.yaml        Render all manifests for one environment
  dockerfile -f request.yaml    Render the project Dockerfile
  validate -f request.yaml      Check a request without rendering

TEMPLATES
  templates resolve <file>      Show which level provides a template
  templates teams               List teams with their own templates

SECRETS
  secrets encrypt -f envs.yaml  Encrypt secret values
  secrets decrypt <ciphertext>  Decrypt one value
  secrets keygen                Generate a new key

SERVICE
  serve                         Run the HTTP API
  doctor                        Pre-flight checks
  update                        Update manman to the latest release

Settings come from the environment (MANMAN_TEMPLATES, MANMAN_RELEASE,
MANMAN_ENVIRONMENTS, VAULT_BASE_URL, VAULT_TOKEN, PORT) and can be
overridden with the global flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Verbose = verbose
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&templatesFlag, "templates", "", "Template store location (directory, file:// or s3:// URL)")
	rootCmd.PersistentFlags().StringVar(&releaseFlag, "release", "", "Release tag exposed to templates")
	rootCmd.PersistentFlags().StringVar(&environmentsFlag, "environments", "", "Comma-separated list of allowed environments")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug output")

	rootCmd.SetVersionTemplate("manman version {{.Version}}\n")
}
