package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/ui"
	"github.com/cameronsjo/manman/internal/update"
)

const changelogLines = 10

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade", "selfupdate"},
	Short:   "Update manman to the latest version",
	Long: `Update manman to the latest version from GitHub releases.

This command will:
1. Check for a newer version on GitHub
2. Download the appropriate binary for your platform
3. Replace the current binary with the new version

Examples:
  manman update           # Update to latest version
  manman update --check   # Check for updates without installing`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

var checkOnly bool

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates, don't install")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ui.Info("Current version: %s (%s)", version, update.Platform())
	ui.Info("Checking for updates...")

	if checkOnly {
		release, available, err := update.Check(cmd.Context(), version)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !available {
			ui.Success("You're running the latest version!")
			return nil
		}
		ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
		ui.Info("To update, run: manman update")
		printChangelog(cmd.OutOrStdout(), release.Changelog)
		return nil
	}

	release, err := update.Apply(cmd.Context(), version)
	if err != nil {
		return err
	}
	if release == nil {
		ui.Success("You're already running the latest version!")
		return nil
	}

	ui.Success("Successfully updated to version %s!", release.Version)
	printChangelog(cmd.OutOrStdout(), release.Changelog)
	return nil
}

// printChangelog prints the first lines of a release's notes.
func printChangelog(w io.Writer, changelog string) {
	if changelog == "" {
		return
	}
	fmt.Fprintln(w, "What's new:")
	lines := strings.Split(changelog, "\n")
	for _, line := range lines[:min(len(lines), changelogLines)] {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if len(lines) > changelogLines {
		fmt.Fprintf(w, "  ... (%d more lines)\n", len(lines)-changelogLines)
	}
}
