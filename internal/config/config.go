// Package config handles settings and template discovery.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// TemplatesDirName is the directory FindTemplatesRoot looks for.
const TemplatesDirName = "templates"

// DefaultEnvironments are used when none are configured.
var DefaultEnvironments = []string{"dev", "stage", "prod"}

// Settings holds manman configuration.
type Settings struct {
	// Release is the manman release tag exposed to templates.
	Release string

	// Environments lists the deployable environments, lower-cased.
	Environments []string

	// Templates is the template store location: a directory, a file://
	// URL, or an s3:// URL. Empty means discover a templates/ directory.
	Templates string

	// VaultAddress and VaultToken enable secrets.key_path lookups.
	VaultAddress string
	VaultToken   string

	// Port is the HTTP port for serve.
	Port int
}

// DefaultSettings returns Settings with defaults applied.
func DefaultSettings() *Settings {
	return &Settings{
		Release:      "dev",
		Environments: slices.Clone(DefaultEnvironments),
		Port:         8000,
	}
}

// FromEnv loads settings from environment variables. MANMAN_ prefixed
// variables win over the bare names.
func FromEnv() *Settings {
	s := DefaultSettings()

	if v := lookup("MANMAN_RELEASE", "RELEASE"); v != "" {
		s.Release = v
	}
	if v := lookup("MANMAN_ENVIRONMENTS", "ENVIRONMENTS"); v != "" {
		s.Environments = ParseEnvironments(v)
	}
	s.Templates = lookup("MANMAN_TEMPLATES", "TEMPLATES_URI")
	s.VaultAddress = lookup("VAULT_BASE_URL", "VAULT_ADDR")
	s.VaultToken = os.Getenv("VAULT_TOKEN")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			s.Port = port
		} else {
			s.Port = -1
		}
	}

	return s
}

// lookup returns the first non-empty variable among names.
func lookup(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// ParseEnvironments splits a comma-separated list. Entries are trimmed,
// lower-cased and deduplicated; a JSON-style list such as ["dev","prod"]
// is accepted too.
func ParseEnvironments(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	var envs []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'`))
		if part != "" && !slices.Contains(envs, part) {
			envs = append(envs, part)
		}
	}
	return envs
}

// HasEnvironment reports whether env is configured.
func (s *Settings) HasEnvironment(env string) bool {
	return slices.Contains(s.Environments, env)
}

// TemplatesLocation returns the configured store location, falling back
// to a discovered templates/ directory.
func (s *Settings) TemplatesLocation() (string, error) {
	if s.Templates != "" {
		return s.Templates, nil
	}
	return FindTemplatesRoot()
}

// FindTemplatesRoot searches upward from the current directory for a
// templates/ directory.
func FindTemplatesRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, TemplatesDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("templates directory not found (set MANMAN_TEMPLATES or create %s/)", TemplatesDirName)
}

// Validate checks the settings.
func Validate(s *Settings) error {
	var errs []error

	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", s.Port))
	}
	if len(s.Environments) == 0 {
		errs = append(errs, errors.New("at least one environment is required"))
	}
	for _, env := range s.Environments {
		if env == "_default" {
			errs = append(errs, errors.New("_default is reserved and cannot be an environment"))
		}
	}
	if s.VaultToken != "" && s.VaultAddress == "" {
		errs = append(errs, errors.New("VAULT_TOKEN is set but VAULT_BASE_URL is not"))
	}

	return errors.Join(errs...)
}
