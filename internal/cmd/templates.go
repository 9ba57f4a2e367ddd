package cmd

import (
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/templates"
)

var (
	resolveTeam     string
	resolveLanguage string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect the template store",
}

var templatesResolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Show which level provides a template",
	Long: `Show every candidate path for a template file and which one wins.

Levels are checked from most to least specific:
  <team>/<language>/<file>
  <team>/_default/<file>
  _default/<file>

Examples:
  manman templates resolve server.yaml.tmpl --team payments --language python
  manman templates resolve tolerations.yaml --team data`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTemplateFiles,
	RunE:              runTemplatesResolve,
}

var templatesTeamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List teams that have their own templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesTeams,
}

func init() {
	templatesResolveCmd.Flags().StringVar(&resolveTeam, "team", "", "Team name")
	templatesResolveCmd.Flags().StringVar(&resolveLanguage, "language", "", "Engine language, e.g. python")
	templatesResolveCmd.MarkFlagRequired("team")
	templatesResolveCmd.MarkFlagRequired("language")
	templatesResolveCmd.RegisterFlagCompletionFunc("team", completeTeams)

	templatesCmd.AddCommand(templatesResolveCmd)
	templatesCmd.AddCommand(templatesTeamsCmd)
	rootCmd.AddCommand(templatesCmd)
}

func runTemplatesResolve(cmd *cobra.Command, args []string) error {
	store, err := openStore(loadSettings())
	if err != nil {
		return err
	}
	resolver := templates.NewResolver(store)

	candidates, err := resolver.Candidates(cmd.Context(), args[0], resolveTeam, resolveLanguage)
	if err != nil {
		return err
	}

	winner, err := resolver.Resolve(cmd.Context(), args[0], resolveTeam, resolveLanguage)
	if err != nil && !templates.IsNotFound(err) {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tPATH\tSTATUS")
	for _, c := range slices.Backward(candidates) {
		status := "missing"
		switch {
		case c.Exists && err == nil && c.Path == winner.Path:
			status = "selected"
		case c.Exists:
			status = "shadowed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Level, c.Path, status)
	}
	if flushErr := w.Flush(); flushErr != nil {
		return flushErr
	}
	return err
}

func runTemplatesTeams(cmd *cobra.Command, args []string) error {
	store, err := openStore(loadSettings())
	if err != nil {
		return err
	}
	fsStore, ok := store.(*templates.FSStore)
	if !ok {
		return errors.New("listing teams needs a local template directory")
	}

	teams, err := fsStore.Teams()
	if err != nil {
		return err
	}
	for _, team := range teams {
		fmt.Fprintln(cmd.OutOrStdout(), team)
	}
	return nil
}
