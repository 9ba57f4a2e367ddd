// Package preflight runs environment checks before manman renders or
// serves: settings, the template store and the optional secret store.
package preflight

import (
	"context"
	"fmt"
	"path"

	"github.com/cameronsjo/manman/internal/config"
	"github.com/cameronsjo/manman/internal/templates"
)

// Check is one pre-flight probe.
type Check struct {
	Name     string
	Required bool   // false = warning only
	Hint     string // shown when the check fails
	Run      func(ctx context.Context) error
}

// Result is the outcome of a Check.
type Result struct {
	Check
	Err error
}

// OK reports whether the check passed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Pinger is a dependency that can report its health.
type Pinger interface {
	Health(ctx context.Context) error
}

// workloadTemplates must have a global default so every team can render.
var workloadTemplates = []string{
	templates.ServerFile,
	templates.ServerHPAFile,
	templates.CronJobFile,
	templates.ConsumerFile,
	templates.MigrationFile,
	templates.DockerfileFile,
}

// overlayFiles are optional everywhere.
var overlayFiles = []string{
	templates.TolerationsFile,
	templates.AffinityFile,
}

// SettingsCheck validates s.
func SettingsCheck(s *config.Settings) Check {
	return Check{
		Name:     "settings",
		Required: true,
		Hint:     "Check PORT, MANMAN_ENVIRONMENTS and the VAULT_* variables",
		Run: func(context.Context) error {
			return config.Validate(s)
		},
	}
}

// StoreChecks verifies that the global default level of store carries
// every workload template. Missing overlays are reported as warnings.
func StoreChecks(store templates.Store) []Check {
	checks := make([]Check, 0, len(workloadTemplates)+len(overlayFiles))
	add := func(file string, required bool) {
		path := path.Join(templates.GlobalDefault.Dir("", ""), file)
		checks = append(checks, Check{
			Name:     path,
			Required: required,
			Hint:     fmt.Sprintf("Add %s to the template store", path),
			Run: func(ctx context.Context) error {
				ok, err := store.Exists(ctx, path)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s not found in %v", path, store)
				}
				return nil
			},
		})
	}
	for _, file := range workloadTemplates {
		add(file, true)
	}
	for _, file := range overlayFiles {
		add(file, false)
	}
	return checks
}

// DependencyCheck probes an external dependency such as Vault.
func DependencyCheck(name string, dep Pinger, required bool, hint string) Check {
	return Check{
		Name:     name,
		Required: required,
		Hint:     hint,
		Run:      dep.Health,
	}
}

// Run executes checks in order. A cancelled context stops the run and is
// recorded against the remaining checks.
func Run(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		err := ctx.Err()
		if err == nil {
			err = c.Run(ctx)
		}
		results = append(results, Result{Check: c, Err: err})
	}
	return results
}

// Summarize splits failed results into errors (required checks) and
// warnings (optional checks).
func Summarize(results []Result) (warnings, errors []Result) {
	for _, r := range results {
		switch {
		case r.OK():
		case r.Required:
			errors = append(errors, r)
		default:
			warnings = append(warnings, r)
		}
	}
	return warnings, errors
}
