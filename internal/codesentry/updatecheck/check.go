// Package updatecheck reports when a newer codesentry release is published.
package updatecheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/mod/semver"

	"github.com/colonyops/codesentry/internal/core/kv"
)

const (
	cacheTTL       = 24 * time.Hour
	cacheNamespace = "update-check"
	cacheKey       = "latest"

	// ReleaseOwner and ReleaseRepo locate the published releases.
	ReleaseOwner = "colonyops"
	ReleaseRepo  = "codesentry"
)

// ReleaseSource looks up the newest release tag of a repository.
type ReleaseSource interface {
	LatestRelease(ctx context.Context, owner, repo string) (string, error)
}

// ReleaseInfo holds cached release data.
type ReleaseInfo struct {
	TagName   string    `json:"tag_name"`
	CheckedAt time.Time `json:"checked_at"`
}

// Result is returned when a newer version is available.
type Result struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
}

// Check compares currentVersion to the latest release and returns a non-nil
// Result only when an update is available. Lookup failures are logged and
// reported as "no update"; the check never blocks normal operation.
func Check(ctx context.Context, store kv.KV, source ReleaseSource, currentVersion string) (*Result, error) {
	if store == nil || source == nil || currentVersion == "" || currentVersion == "dev" {
		return nil, nil
	}

	normalizedCurrent, ok := normalizeVersion(currentVersion)
	if !ok {
		log.Debug().Str("version", currentVersion).Msg("update check: invalid current version")
		return nil, nil
	}

	release, err := getLatestRelease(ctx, store, source)
	if err != nil {
		log.Debug().Err(err).Msg("update check: failed to get latest release")
		return nil, nil
	}

	normalizedLatest, ok := normalizeVersion(release.TagName)
	if !ok {
		log.Debug().Str("tag", release.TagName).Msg("update check: invalid release tag")
		return nil, nil
	}

	if semver.Compare(normalizedCurrent, normalizedLatest) >= 0 {
		return nil, nil
	}

	return &Result{Current: normalizedCurrent, Latest: normalizedLatest}, nil
}

func getLatestRelease(ctx context.Context, store kv.KV, source ReleaseSource) (ReleaseInfo, error) {
	cache := kv.Scoped[ReleaseInfo](store, cacheNamespace)

	cached, err := cache.Get(ctx, cacheKey)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		log.Debug().Err(err).Msg("update check: cache read failed")
	}

	tag, err := source.LatestRelease(ctx, ReleaseOwner, ReleaseRepo)
	if err != nil {
		return ReleaseInfo{}, fmt.Errorf("fetch latest release: %w", err)
	}
	if tag == "" {
		return ReleaseInfo{}, fmt.Errorf("fetch latest release: missing tag name")
	}

	info := ReleaseInfo{TagName: tag, CheckedAt: time.Now()}
	if err := cache.SetTTL(ctx, cacheKey, info, cacheTTL); err != nil {
		log.Debug().Err(err).Msg("update check: failed to cache release")
	}

	return info, nil
}

func normalizeVersion(version string) (string, bool) {
	if semver.IsValid(version) {
		return version, true
	}

	withPrefix := "v" + version
	if semver.IsValid(withPrefix) {
		return withPrefix, true
	}

	return "", false
}
