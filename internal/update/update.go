// Package update replaces the running manman binary with the latest
// GitHub release.
package update

import (
	"context"
	"fmt"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
)

// Repository slug for GitHub releases.
const (
	repoOwner = "cameronsjo"
	repoName  = "manman"
)

// Release describes an available release.
type Release struct {
	Version     string
	ReleaseURL  string
	PublishedAt string
	Changelog   string
}

// latest finds the newest release. ok is false when no release is newer
// than currentVersion.
func latest(ctx context.Context, currentVersion string) (*selfupdate.Updater, *selfupdate.Release, bool, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, nil, false, fmt.Errorf("create update source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, nil, false, fmt.Errorf("create updater: %w", err)
	}

	rel, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, nil, false, fmt.Errorf("detect latest version: %w", err)
	}
	if !found {
		return nil, nil, false, fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}
	if rel.LessOrEqual(currentVersion) {
		return updater, rel, false, nil
	}
	return updater, rel, true, nil
}

func describe(rel *selfupdate.Release) *Release {
	return &Release{
		Version:     rel.Version(),
		ReleaseURL:  rel.URL,
		PublishedAt: rel.PublishedAt.Format("2006-01-02"),
		Changelog:   rel.ReleaseNotes,
	}
}

// Check reports the newest release when it is newer than currentVersion.
func Check(ctx context.Context, currentVersion string) (*Release, bool, error) {
	_, rel, newer, err := latest(ctx, currentVersion)
	if err != nil || !newer {
		return nil, false, err
	}
	return describe(rel), true, nil
}

// Apply installs the newest release over the running executable. It
// returns nil when already up to date.
func Apply(ctx context.Context, currentVersion string) (*Release, error) {
	updater, rel, newer, err := latest(ctx, currentVersion)
	if err != nil || !newer {
		return nil, err
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("get executable path: %w", err)
	}
	if err := updater.UpdateTo(ctx, rel, exe); err != nil {
		return nil, fmt.Errorf("update binary: %w", err)
	}
	return describe(rel), nil
}

// Platform returns the os/arch pair releases are selected for.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
