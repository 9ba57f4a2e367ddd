package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/manifest"
	"github.com/cameronsjo/manman/internal/ui"
)

var (
	validateFile string
	validateEnv  string
	validateTeam string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a request file",
	Long: `Validate a request file without writing anything.

Checks names, resource formats, scaling rules, cron schedules and
per-environment keys. With --env the request is also rendered for that
environment and the output discarded, which catches missing templates
and undefined template variables.

Examples:
  manman validate -f manman.yaml
  manman validate -f manman.yaml --env prod --team payments`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Request file (YAML or JSON, - for stdin)")
	validateCmd.Flags().StringVarP(&validateEnv, "env", "e", "", "Also render for this environment")
	validateCmd.Flags().StringVar(&validateTeam, "team", "", "Team whose templates are used with --env")
	validateCmd.RegisterFlagCompletionFunc("env", completeEnvironments)
	validateCmd.RegisterFlagCompletionFunc("team", completeTeams)

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	settings := loadSettings()

	req, err := readRequest(cmd, validateFile)
	if err != nil {
		return err
	}

	if err := req.Validate(settings.Environments); err != nil {
		reportConfigErrors(err)
		return fmt.Errorf("%w: %d problem(s) found", manifest.ErrImproperConfig, len(manifest.ConfigErrors(err)))
	}
	ui.Success("%s is valid", validateFile)

	if validateEnv == "" {
		return nil
	}
	if validateTeam == "" {
		return errors.New("--team is required with --env")
	}
	if !settings.HasEnvironment(validateEnv) {
		return fmt.Errorf("%w: unknown environment %q", manifest.ErrImproperConfig, validateEnv)
	}

	assembler, err := newAssembler(settings)
	if err != nil {
		return err
	}
	md := manifest.Metadata{
		Image:       "validate",
		ProjectName: "validate",
		Environment: validateEnv,
		Team:        validateTeam,
	}
	docs, err := assembler.Assemble(cmd.Context(), req, md)
	if err != nil {
		return fmt.Errorf("render for %s: %w", validateEnv, err)
	}
	ui.Success("Rendered %d document(s) for %s", len(docs), validateEnv)
	return nil
}
