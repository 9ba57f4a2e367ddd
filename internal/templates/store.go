package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store is a read-only template source keyed by slash-separated relative
// paths such as "ml/python/dockerfile.tmpl".
type Store interface {
	// Exists reports whether a regular file exists at name.
	Exists(ctx context.Context, name string) (bool, error)

	// Read returns the content at name.
	Read(ctx context.Context, name string) ([]byte, error)
}

// FSStore serves templates from an fs.FS, usually a local directory.
type FSStore struct {
	fsys fs.FS
	root string
}

// NewFSStore wraps fsys.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// NewDirStore serves templates from the directory dir.
func NewDirStore(dir string) (*FSStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("templates directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates directory: %s is not a directory", dir)
	}
	return &FSStore{fsys: os.DirFS(dir), root: dir}, nil
}

// Exists implements Store.
func (s *FSStore) Exists(_ context.Context, name string) (bool, error) {
	info, err := fs.Stat(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Read implements Store.
func (s *FSStore) Read(_ context.Context, name string) ([]byte, error) {
	return fs.ReadFile(s.fsys, name)
}

// Teams lists the team directories, skipping the global default.
func (s *FSStore) Teams() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, err
	}
	var teams []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != DefaultDir && !strings.HasPrefix(e.Name(), ".") {
			teams = append(teams, e.Name())
		}
	}
	sort.Strings(teams)
	return teams, nil
}

// String returns the store location.
func (s *FSStore) String() string {
	if s.root == "" {
		return "fs"
	}
	return "file://" + s.root
}

// OpenStore creates a store from a location:
//
//   - a plain path or file:///abs/path for a local directory
//   - s3://bucket/prefix?region=eu-west-1&endpoint=http://minio:9000
func OpenStore(location string) (Store, error) {
	if location == "" {
		return nil, errors.New("empty template store location")
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		return NewDirStore(filepath.Clean(location))
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return NewDirStore(filepath.FromSlash(u.Host + u.Path))
	case "s3":
		q := u.Query()
		return NewS3Store(u.Host, strings.TrimPrefix(u.Path, "/"), q.Get("region"), q.Get("endpoint"))
	default:
		return nil, fmt.Errorf("unsupported template store scheme: %s", u.Scheme)
	}
}
