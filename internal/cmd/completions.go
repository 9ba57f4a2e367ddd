package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/templates"
)

// completeEnvironments completes the configured environment names.
func completeEnvironments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return filterPrefix(loadSettings().Environments, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeTeams completes team directories of a local template store.
func completeTeams(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	store, err := openStore(loadSettings())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	fsStore, ok := store.(*templates.FSStore)
	if !ok {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	teams, err := fsStore.Teams()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return filterPrefix(teams, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeTemplateFiles completes the file names the resolver knows.
func completeTemplateFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return filterPrefix(templates.Files, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func filterPrefix(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}
