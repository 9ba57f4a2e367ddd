package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/manifest"
	"github.com/cameronsjo/manman/internal/ui"
)

var (
	renderFile        string
	renderOutput      string
	renderConcurrency int
	renderMeta        metadataFlags
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the manifests for one environment",
	Long: `Render every workload of a request file for one environment.

Documents are written in a fixed order (migrations, server, server
autoscaler, cron jobs, consumers) and joined with YAML document
separators. Nothing is written when any template fails.

Examples:
  manman render -f manman.yaml --env prod --team payments \
      --project-name checkout --image registry/checkout:1.4.2 --commit abc123
  manman render -f request.json -e dev ... -o manifests.yaml
  cat manman.yaml | manman render -f - -e stage ...`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderFile, "file", "f", "", "Request file (YAML or JSON, - for stdin)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write to file instead of stdout")
	renderCmd.Flags().IntVar(&renderConcurrency, "concurrency", 0, "Maximum templates rendered at once (0 for no limit)")
	renderMeta.register(renderCmd)

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	settings := loadSettings()

	req, err := readRequest(cmd, renderFile)
	if err != nil {
		return err
	}

	md := renderMeta.metadata()
	if err := validateAll(req, md, settings.Environments); err != nil {
		return err
	}

	assembler, err := newAssembler(settings, manifest.WithConcurrency(renderConcurrency))
	if err != nil {
		return err
	}

	docs, err := assembler.Assemble(cmd.Context(), req, md)
	if err != nil {
		return fmt.Errorf("render manifests: %w", err)
	}
	for _, d := range docs {
		ui.Debug("%s %s <- %s (%s)", d.Kind, d.Name, d.Template.Path, d.Template.Level)
	}

	if err := writeOutput(cmd, renderOutput, manifest.JoinDocuments(docs)); err != nil {
		return err
	}
	ui.Info("Rendered %d document(s) for %s", len(docs), md.Environment)
	return nil
}

// validateAll checks the deployment facts and the request together so
// every problem is reported at once.
func validateAll(req *manifest.Request, md manifest.Metadata, environments []string) error {
	var problems []error
	if err := manifest.ValidateMetadata(md, environments); err != nil {
		problems = append(problems, err)
	}
	if err := req.Validate(environments); err != nil {
		problems = append(problems, err)
	}
	if len(problems) == 0 {
		return nil
	}
	for _, p := range problems {
		reportConfigErrors(p)
	}
	return fmt.Errorf("%w: fix the problems above", manifest.ErrImproperConfig)
}
