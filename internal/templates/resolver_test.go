package templates

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(content string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(content)}
}

func TestResolve_MostSpecificWins(t *testing.T) {
	tests := []struct {
		name      string
		files     fstest.MapFS
		wantPath  string
		wantLevel Level
	}{
		{
			name:      "global default only",
			files:     fstest.MapFS{"_default/server.yaml.tmpl": file("g")},
			wantPath:  "_default/server.yaml.tmpl",
			wantLevel: GlobalDefault,
		},
		{
			name: "team default overrides global",
			files: fstest.MapFS{
				"_default/server.yaml.tmpl":    file("g"),
				"ml/_default/server.yaml.tmpl": file("t"),
			},
			wantPath:  "ml/_default/server.yaml.tmpl",
			wantLevel: TeamDefault,
		},
		{
			name: "team language overrides team default",
			files: fstest.MapFS{
				"ml/_default/server.yaml.tmpl": file("t"),
				"ml/python/server.yaml.tmpl":   file("l"),
			},
			wantPath:  "ml/python/server.yaml.tmpl",
			wantLevel: TeamLanguage,
		},
		{
			name: "team language overrides global without team default",
			files: fstest.MapFS{
				"_default/server.yaml.tmpl":  file("g"),
				"ml/python/server.yaml.tmpl": file("l"),
			},
			wantPath:  "ml/python/server.yaml.tmpl",
			wantLevel: TeamLanguage,
		},
		{
			name: "all three levels",
			files: fstest.MapFS{
				"_default/server.yaml.tmpl":    file("g"),
				"ml/_default/server.yaml.tmpl": file("t"),
				"ml/python/server.yaml.tmpl":   file("l"),
			},
			wantPath:  "ml/python/server.yaml.tmpl",
			wantLevel: TeamLanguage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(NewFSStore(tt.files))

			res, err := r.Resolve(context.Background(), ServerFile, "ml", "python")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, res.Path)
			assert.Equal(t, tt.wantLevel, res.Level)
		})
	}
}

func TestResolve_OtherTeamsAndLanguagesIgnored(t *testing.T) {
	r := NewResolver(NewFSStore(fstest.MapFS{
		"_default/dockerfile.tmpl":        file("g"),
		"ml/go/dockerfile.tmpl":           file("other language"),
		"platform/python/dockerfile.tmpl": file("other team"),
	}))

	path, err := r.ResolvePath(context.Background(), DockerfileFile, "ml", "python")
	require.NoError(t, err)
	assert.Equal(t, "_default/dockerfile.tmpl", path)
}

func TestResolve_NotFound(t *testing.T) {
	r := NewResolver(NewFSStore(fstest.MapFS{
		"_default/server.yaml.tmpl": file("g"),
	}))

	for _, name := range []string{CronJobFile, ConsumerFile, MigrationFile, DockerfileFile} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), name, "ml", "python")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTemplateNotFound))

			var nf *TemplateNotFoundError
			require.True(t, errors.As(err, &nf))
			assert.Equal(t, name, nf.File)
			assert.Equal(t, "ml", nf.Team)
			assert.Equal(t, "python", nf.Language)
		})
	}
}

func TestResolve_DirectoryIsNotATemplate(t *testing.T) {
	r := NewResolver(NewFSStore(fstest.MapFS{
		"ml/python/server.yaml.tmpl/nested": file("x"),
	}))

	_, err := r.Resolve(context.Background(), ServerFile, "ml", "python")
	assert.True(t, IsNotFound(err))
}

func TestResolve_RejectsPathTraversal(t *testing.T) {
	r := NewResolver(NewFSStore(fstest.MapFS{}))

	tests := []struct{ file, team, language string }{
		{ServerFile, "..", "python"},
		{ServerFile, "ml/../../etc", "python"},
		{ServerFile, "ml", `py\thon`},
		{ServerFile, "", "python"},
		{"../secret", "ml", "python"},
	}
	for _, tt := range tests {
		_, err := r.Resolve(context.Background(), tt.file, tt.team, tt.language)
		assert.ErrorIs(t, err, ErrInvalidScope, "%+v", tt)
	}
}

func TestCandidates_Order(t *testing.T) {
	r := NewResolver(NewFSStore(fstest.MapFS{
		"ml/_default/cronjob.yaml.tmpl": file("t"),
	}))

	candidates, err := r.Candidates(context.Background(), CronJobFile, "ml", "go")
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, "_default/cronjob.yaml.tmpl", candidates[0].Path)
	assert.False(t, candidates[0].Exists)
	assert.Equal(t, "ml/_default/cronjob.yaml.tmpl", candidates[1].Path)
	assert.True(t, candidates[1].Exists)
	assert.Equal(t, "ml/go/cronjob.yaml.tmpl", candidates[2].Path)
	assert.False(t, candidates[2].Exists)
}

func TestLoad_ReadsWinningContent(t *testing.T) {
	r := NewResolver(NewFSStore(fstest.MapFS{
		"_default/migration.yaml.tmpl":    file("global"),
		"ml/_default/migration.yaml.tmpl": file("team"),
	}))

	res, content, err := r.Load(context.Background(), MigrationFile, "ml", "python")
	require.NoError(t, err)
	assert.Equal(t, TeamDefault, res.Level)
	assert.Equal(t, "team", string(content))
}

func TestLoadOverlay(t *testing.T) {
	r := NewResolver(NewFSStore(fstest.MapFS{
		"_default/tolerations.yaml":  file("- key: global\n"),
		"ml/python/tolerations.yaml": file("dev:\n  - key: dev\n_default: []\n"),
		"_default/affinity.yaml":     file(": not yaml ["),
	}))
	ctx := context.Background()

	var tolerations any
	found, err := r.LoadOverlay(ctx, TolerationsFile, "ml", "python", &tolerations)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, tolerations, "dev")

	var missing any
	found, err = r.LoadOverlay(ctx, TolerationsFile+".bak", "ml", "python", &missing)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, missing)

	var affinity any
	_, err = r.LoadOverlay(ctx, AffinityFile, "ml", "python", &affinity)
	assert.Error(t, err)
}

func TestLevel_Dir(t *testing.T) {
	assert.Equal(t, "_default", GlobalDefault.Dir("ml", "python"))
	assert.Equal(t, "ml/_default", TeamDefault.Dir("ml", "python"))
	assert.Equal(t, "ml/python", TeamLanguage.Dir("ml", "python"))
	assert.Equal(t, "team-language", TeamLanguage.String())
}
