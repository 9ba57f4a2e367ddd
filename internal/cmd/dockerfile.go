package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/manifest"
)

var (
	dockerfileFile   string
	dockerfileOutput string
	dockerfileMeta   metadataFlags
)

var dockerfileCmd = &cobra.Command{
	Use:   "dockerfile",
	Short: "Render the Dockerfile for a request",
	Long: `Render the build file for the engine of a request file.

The dockerfile template is resolved through the same cascade as the
manifests: team language, then team default, then global default.

Examples:
  manman dockerfile -f manman.yaml --team payments
  manman dockerfile -f manman.yaml --team payments -o Dockerfile`,
	Args: cobra.NoArgs,
	RunE: runDockerfile,
}

func init() {
	dockerfileCmd.Flags().StringVarP(&dockerfileFile, "file", "f", "", "Request file (YAML or JSON, - for stdin)")
	dockerfileCmd.Flags().StringVarP(&dockerfileOutput, "output", "o", "", "Write to file instead of stdout")
	dockerfileMeta.register(dockerfileCmd)

	rootCmd.AddCommand(dockerfileCmd)
}

func runDockerfile(cmd *cobra.Command, args []string) error {
	settings := loadSettings()

	req, err := readRequest(cmd, dockerfileFile)
	if err != nil {
		return err
	}

	// Only the engine matters for the build file.
	engineOnly := manifest.Request{Engine: req.Engine}
	if err := engineOnly.Validate(settings.Environments); err != nil {
		reportConfigErrors(err)
		return fmt.Errorf("%w: fix the problems above", manifest.ErrImproperConfig)
	}

	assembler, err := newAssembler(settings)
	if err != nil {
		return err
	}

	doc, err := assembler.RenderDockerfile(cmd.Context(), req.Engine, dockerfileMeta.metadata())
	if err != nil {
		return fmt.Errorf("render dockerfile: %w", err)
	}
	return writeOutput(cmd, dockerfileOutput, doc.Content)
}
