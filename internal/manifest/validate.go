package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/robfig/cron/v3"

	"github.com/cameronsjo/manman/internal/envelope"
	"github.com/cameronsjo/manman/internal/envvalue"
)

// Validation limits.
const (
	MaxHPAReplicas = 5
	MaxTargetCPU   = 100
)

var (
	// namePattern is an RFC 1123 label, used for cron job and consumer names.
	namePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

	memoryPattern = regexp.MustCompile(`^[1-9][0-9]{0,3}[MG]i$`)
	cpuPattern    = regexp.MustCompile(`^[1-9][0-9]{0,4}m$`)
)

// validator collects ConfigErrors.
type validator struct {
	environments []string
	errs         []error
}

func (v *validator) add(field, reason string) {
	v.errs = append(v.errs, &ConfigError{Field: field, Reason: reason})
}

func (v *validator) addErr(field, reason string, err error) {
	v.errs = append(v.errs, &ConfigError{Field: field, Reason: reason, Err: err})
}

func (v *validator) err() error {
	return errors.Join(v.errs...)
}

// envKeys checks that every per-environment key is a known environment.
func envKeys[T any](v *validator, field string, val envvalue.Value[T]) {
	for _, env := range val.Environments() {
		if env != envvalue.DefaultKey && !slices.Contains(v.environments, env) {
			v.add(field, fmt.Sprintf("unknown environment %q (allowed: %v)", env, v.environments))
		}
	}
}

// entries runs check against every environment entry of val. check
// returns an empty string when the entry is valid.
func entries[T any](v *validator, field string, val envvalue.Value[T], required bool, check func(T) string) {
	if !val.IsSet() {
		if required {
			v.add(field, "is required")
		}
		return
	}
	envKeys(v, field, val)
	all := val.Entries()
	if !val.IsPerEnvironment() {
		if reason := check(all[envvalue.DefaultKey]); reason != "" {
			v.add(field, reason)
		}
		return
	}
	for _, env := range val.Environments() {
		if reason := check(all[env]); reason != "" {
			v.add(fmt.Sprintf("%s[%s]", field, env), reason)
		}
	}
}

func (v *validator) envMap(field string, envs envvalue.Map[string]) {
	for _, name := range envs.Names() {
		if name == "" {
			v.add(field, "variable name is empty")
			continue
		}
		envKeys(v, fmt.Sprintf("%s.%s", field, name), envs[name])
	}
}

func (v *validator) pattern(field string, val envvalue.Value[string], re *regexp.Regexp) {
	entries(v, field, val, true, func(s string) string {
		if !re.MatchString(s) {
			return fmt.Sprintf("%q does not match %s", s, re)
		}
		return ""
	})
}

func (v *validator) between(field string, val envvalue.Value[int], lo, hi int) {
	entries(v, field, val, true, func(n int) string {
		if n < lo || n > hi {
			return fmt.Sprintf("%d is out of range %d..%d", n, lo, hi)
		}
		return ""
	})
}

func (v *validator) positive(field string, val envvalue.Value[int]) {
	entries(v, field, val, false, func(n int) string {
		if n <= 0 {
			return fmt.Sprintf("%d must be greater than 0", n)
		}
		return ""
	})
}

func (v *validator) requests(field string, r Requests) {
	v.pattern(field+".memory", r.Memory, memoryPattern)
	v.pattern(field+".cpu", r.CPU, cpuPattern)
}

func (v *validator) scaling(field string, replicas envvalue.Value[int], hpa *HPA) {
	switch {
	case replicas.IsSet() && hpa != nil:
		v.addErr(field, replicasWithHPAMessage, ErrReplicasWithHPA)
	case !replicas.IsSet() && hpa == nil:
		v.addErr(field, scalingUnspecifiedMessage, ErrScalingUnspecified)
	}
}

func (v *validator) name(field, name string, seen map[string]bool) {
	switch {
	case !namePattern.MatchString(name):
		v.add(field, fmt.Sprintf("invalid name %q", name))
	case seen[name]:
		v.add(field, fmt.Sprintf("duplicate name %q", name))
	}
	seen[name] = true
}

// Validate checks the request against the configured environments. It
// returns every problem found, joined; each is a *ConfigError.
func (r *Request) Validate(environments []string) error {
	v := &validator{environments: environments}

	if r.Engine.Language.Name == "" {
		v.add("engine.language.name", "is required")
	}
	if r.Engine.Language.Version == "" {
		v.add("engine.language.version", "is required")
	}
	if pm := r.Engine.PackageManager; pm != nil && pm.Name == "" {
		v.add("engine.package_manager.name", "is required")
	}

	v.envMap("envs", r.Envs)

	if s := r.Server; s != nil {
		v.scaling("server", s.Replicas, s.HPA)
		v.positive("server.replicas", s.Replicas)
		v.pattern("server.memory_limits", s.MemoryLimits, memoryPattern)
		v.requests("server.requests", s.Requests)
		v.envMap("server.envs", s.Envs)
		if h := s.HPA; h != nil {
			v.between("server.hpa.min_replicas", h.MinReplicas, 1, MaxHPAReplicas)
			v.between("server.hpa.max_replicas", h.MaxReplicas, 1, MaxHPAReplicas)
			v.between("server.hpa.target_cpu_utilization_percent", h.TargetCPUUtilizationPercent, 1, MaxTargetCPU)
			for _, env := range environments {
				lo, okLo := h.MinReplicas.Resolve(env)
				hi, okHi := h.MaxReplicas.Resolve(env)
				if okLo && okHi && lo > hi {
					v.add("server.hpa", fmt.Sprintf("min_replicas %d exceeds max_replicas %d in %s", lo, hi, env))
				}
			}
		}
	}

	for i, m := range r.Migrations {
		field := fmt.Sprintf("db_migrations[%d]", i)
		entries(v, field+".command", m.Command, true, func(s string) string {
			if s == "" {
				return "is empty"
			}
			return ""
		})
		v.envMap(field+".envs", m.Envs)
	}

	seen := make(map[string]bool)
	for i, c := range r.CronJobs {
		field := fmt.Sprintf("cronjobs[%d]", i)
		v.name(field+".name", c.Name, seen)
		if c.Command == "" {
			v.add(field+".command", "is required")
		}
		entries(v, field+".enabled", c.Enabled, true, func(bool) string { return "" })
		entries(v, field+".schedule", c.Schedule, true, func(s string) string {
			if _, err := cron.ParseStandard(s); err != nil {
				return fmt.Sprintf("invalid cron schedule %q: %v", s, err)
			}
			return ""
		})
		if !c.Concurrency.Valid() {
			v.add(field+".concurrency", fmt.Sprintf("%q is not one of Allow, Forbid, Replace", c.Concurrency))
		}
		v.envMap(field+".envs", c.Envs)
	}

	seen = make(map[string]bool)
	for i, c := range r.Consumers {
		field := fmt.Sprintf("consumers[%d]", i)
		v.name(field+".name", c.Name, seen)
		if c.Command == "" {
			v.add(field+".command", "is required")
		}
		entries(v, field+".enabled", c.Enabled, true, func(bool) string { return "" })
		v.scaling(field, c.Replicas, nil)
		v.positive(field+".replicas", c.Replicas)
		v.pattern(field+".memory_limits", c.MemoryLimits, memoryPattern)
		v.requests(field+".requests", c.Requests)
		v.envMap(field+".envs", c.Envs)
	}

	if s := r.Secrets; s != nil {
		switch {
		case s.Key != "" && !envelope.IsValidKey(s.Key):
			v.add("secrets.key", "must be hex encoding 16, 24 or 32 bytes")
		case s.Key == "" && s.KeyPath == "" && len(s.Envs) > 0:
			v.add("secrets", "key or key_path is required")
		}
		v.envMap("secrets.envs", s.Envs)
	}

	return v.err()
}

// ValidateMetadata checks the request-scoped facts.
func ValidateMetadata(md Metadata, environments []string) error {
	v := &validator{environments: environments}
	if md.Image == "" {
		v.add("image", "is required")
	}
	if md.ProjectName == "" {
		v.add("project_name", "is required")
	}
	if md.Team == "" {
		v.add("team", "is required")
	}
	if !slices.Contains(environments, md.Environment) {
		v.add("current_env", fmt.Sprintf("%q is not one of %v", md.Environment, environments))
	}
	return v.err()
}
