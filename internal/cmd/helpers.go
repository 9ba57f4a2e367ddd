package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/manman/internal/config"
	"github.com/cameronsjo/manman/internal/fileutil"
	"github.com/cameronsjo/manman/internal/manifest"
	"github.com/cameronsjo/manman/internal/secrets"
	"github.com/cameronsjo/manman/internal/templates"
	"github.com/cameronsjo/manman/internal/ui"
)

// Global flags shared by every command.
var (
	templatesFlag    string
	releaseFlag      string
	environmentsFlag string
	verbose          bool
)

// loadSettings reads settings from the environment and applies the
// global flag overrides.
func loadSettings() *config.Settings {
	s := config.FromEnv()
	if templatesFlag != "" {
		s.Templates = templatesFlag
	}
	if releaseFlag != "" {
		s.Release = releaseFlag
	}
	if environmentsFlag != "" {
		s.Environments = config.ParseEnvironments(environmentsFlag)
	}
	return s
}

// openStore opens the configured template store.
func openStore(s *config.Settings) (templates.Store, error) {
	location, err := s.TemplatesLocation()
	if err != nil {
		return nil, err
	}
	store, err := templates.OpenStore(location)
	if err != nil {
		return nil, fmt.Errorf("open template store: %w", err)
	}
	ui.Debug("Using templates from %s", location)
	return store, nil
}

// newAssembler wires the template store, release tag and, when Vault is
// configured, the key source into an Assembler.
func newAssembler(s *config.Settings, extra ...manifest.Option) (*manifest.Assembler, error) {
	store, err := openStore(s)
	if err != nil {
		return nil, err
	}

	opts := []manifest.Option{manifest.WithRelease(s.Release)}
	if s.VaultAddress != "" {
		keys, err := secrets.NewVaultKeySource(s.VaultAddress, s.VaultToken)
		if err != nil {
			return nil, err
		}
		opts = append(opts, manifest.WithKeySource(keys))
	}
	opts = append(opts, extra...)

	return manifest.NewAssembler(store, opts...), nil
}

// metadataFlags collects the deployment facts the HTTP API takes from
// headers.
type metadataFlags struct {
	env         string
	team        string
	image       string
	projectName string
	projectID   string
	branch      string
	commit      string
}

func (m *metadataFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&m.env, "env", "e", "", "Target environment")
	f.StringVar(&m.team, "team", "", "Owning team")
	f.StringVar(&m.image, "image", "", "Container image reference")
	f.StringVar(&m.projectName, "project-name", "", "Project name")
	f.StringVar(&m.projectID, "project-id", "", "Project id")
	f.StringVar(&m.branch, "branch", "", "Git branch name")
	f.StringVar(&m.commit, "commit", "", "Git commit hash")

	cmd.RegisterFlagCompletionFunc("env", completeEnvironments)
	cmd.RegisterFlagCompletionFunc("team", completeTeams)
}

func (m *metadataFlags) metadata() manifest.Metadata {
	return manifest.Metadata{
		Image:       m.image,
		ProjectID:   m.projectID,
		ProjectName: m.projectName,
		Environment: strings.ToLower(m.env),
		Team:        m.team,
		BranchName:  m.branch,
		Commit:      m.commit,
	}
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("no input file given (use -f)")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// decodeInput decodes JSON for .json files and YAML otherwise.
func decodeInput(path string, data []byte, out any) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// readRequest loads a manifest request file.
func readRequest(cmd *cobra.Command, path string) (*manifest.Request, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	var req manifest.Request
	if err := decodeInput(path, data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// writeOutput writes content to path atomically, or to stdout when path
// is empty.
func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	ui.Success("Wrote %s", path)
	return nil
}

// reportConfigErrors prints each invalid field.
func reportConfigErrors(err error) {
	problems := manifest.ConfigErrors(err)
	if len(problems) == 0 {
		ui.Error("%v", err)
		return
	}
	for _, p := range problems {
		ui.Error("%s: %s", p.Field, p.Reason)
	}
}
