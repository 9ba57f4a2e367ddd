package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/preflight"
	"github.com/cameronsjo/manman/internal/secrets"
	"github.com/cameronsjo/manman/internal/ui"
)

const doctorTimeout = 30 * time.Second

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"checkup"},
	Short:   "Pre-flight checks for settings, templates and Vault",
	Long: `Run diagnostic checks before rendering or serving.

Checks:
  - settings (port, environments, Vault variables)
  - the template store opens
  - every workload template has a global default
  - tolerations and affinity overlays (warnings only)
  - Vault is reachable and unsealed, when configured`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
	defer cancel()

	settings := loadSettings()
	checks := []preflight.Check{preflight.SettingsCheck(settings)}

	store, err := openStore(settings)
	if err != nil {
		checks = append(checks, preflight.Check{
			Name:     "template store",
			Required: true,
			Hint:     "Set MANMAN_TEMPLATES or run from a directory containing templates/",
			Run:      func(context.Context) error { return err },
		})
	} else {
		checks = append(checks, preflight.StoreChecks(store)...)
	}

	if settings.VaultAddress != "" {
		vault, err := secrets.NewVaultKeySource(settings.VaultAddress, settings.VaultToken)
		if err != nil {
			return err
		}
		checks = append(checks, preflight.DependencyCheck("vault", vault, false, "Requests using secrets.key_path will fail"))
	}

	ui.Info("Running pre-flight checks...")
	results := preflight.Run(ctx, checks)

	out := cmd.OutOrStdout()
	for _, r := range results {
		switch {
		case r.OK():
			fmt.Fprintf(out, "  * %s\n", r.Name)
		case r.Required:
			fmt.Fprintf(out, "  x %s: %v\n    %s\n", r.Name, r.Err, r.Hint)
		default:
			fmt.Fprintf(out, "  ! %s: %v\n    %s\n", r.Name, r.Err, r.Hint)
		}
	}

	warnings, errs := preflight.Summarize(results)
	if len(errs) > 0 {
		return fmt.Errorf("%d check(s) failed", len(errs))
	}
	if len(warnings) > 0 {
		ui.Warning("Passed with %d warning(s)", len(warnings))
		return nil
	}
	ui.Success("All checks passed")
	return nil
}
