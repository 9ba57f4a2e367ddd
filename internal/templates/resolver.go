package templates

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resolution is the winning candidate of a lookup.
type Resolution struct {
	Path  string
	Level Level
}

// Candidate is one level checked during a lookup.
type Candidate struct {
	Resolution
	Exists bool
}

// Resolver finds the most specific template for a team and language.
// It never writes to the store and is safe for concurrent use when the
// store is.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver over store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Store returns the underlying template store.
func (r *Resolver) Store() Store {
	return r.store
}

// Candidates checks every level for file, in resolution order.
func (r *Resolver) Candidates(ctx context.Context, file, team, language string) ([]Candidate, error) {
	if err := checkScope(file, team, language); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(Levels))
	for _, level := range Levels {
		p := path.Join(level.Dir(team, language), file)
		exists, err := r.store.Exists(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", p, err)
		}
		candidates = append(candidates, Candidate{
			Resolution: Resolution{Path: p, Level: level},
			Exists:     exists,
		})
	}
	return candidates, nil
}

// Resolve returns the most specific level that has file. More specific
// levels override less specific ones; it fails with a
// *TemplateNotFoundError when no level has the file.
func (r *Resolver) Resolve(ctx context.Context, file, team, language string) (Resolution, error) {
	candidates, err := r.Candidates(ctx, file, team, language)
	if err != nil {
		return Resolution{}, err
	}

	var (
		found Resolution
		ok    bool
	)
	for _, c := range candidates {
		if c.Exists {
			found, ok = c.Resolution, true
		}
	}
	if !ok {
		return Resolution{}, &TemplateNotFoundError{File: file, Team: team, Language: language}
	}
	return found, nil
}

// ResolvePath is Resolve returning only the store path.
func (r *Resolver) ResolvePath(ctx context.Context, file, team, language string) (string, error) {
	res, err := r.Resolve(ctx, file, team, language)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// Load resolves file and reads its content.
func (r *Resolver) Load(ctx context.Context, file, team, language string) (Resolution, []byte, error) {
	res, err := r.Resolve(ctx, file, team, language)
	if err != nil {
		return Resolution{}, nil, err
	}
	content, err := r.store.Read(ctx, res.Path)
	if err != nil {
		return Resolution{}, nil, fmt.Errorf("read %s: %w", res.Path, err)
	}
	return res, content, nil
}

// LoadOverlay resolves a YAML overlay such as tolerations.yaml and decodes
// it into out. A missing overlay is not an error; found reports whether
// any level had it.
func (r *Resolver) LoadOverlay(ctx context.Context, file, team, language string, out any) (found bool, err error) {
	_, content, err := r.Load(ctx, file, team, language)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := yaml.Unmarshal(content, out); err != nil {
		return true, fmt.Errorf("parse %s: %w", file, err)
	}
	return true, nil
}

// IsNotFound reports whether err is a template lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// checkScope keeps team and language inside their own directory.
func checkScope(file, team, language string) error {
	segments := []struct{ name, value string }{
		{"file", file},
		{"team", team},
		{"language", language},
	}
	for _, seg := range segments {
		v := seg.value
		if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
			return fmt.Errorf("%w: %s %q", ErrInvalidScope, seg.name, v)
		}
	}
	return nil
}
