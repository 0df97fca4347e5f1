// Package update implements the maintainer workflow around a source file:
// pulling new builds from upstreams, refreshing digests, and applying bulk
// metadata overrides.
package update

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"

	"github.com/altsrc-dev/altsrc/altsource"
	"github.com/altsrc-dev/altsrc/internal"
	"github.com/altsrc-dev/altsrc/ipa"
)

// Stats summarizes one update run.
type Stats struct {
	AppsAdded   int
	AppsUpdated int
	NewsAdded   int
	NewsUpdated int
	Failed      int
}

// Manager applies updates to a source in memory. Saving is the caller's
// call; nothing here touches the source file.
type Manager struct {
	Source *altsource.Source

	// Client and APIBase override the GitHub transport, mainly for tests.
	Client  *http.Client
	APIBase string
}

func NewManager(src *altsource.Source) *Manager {
	return &Manager{Source: src}
}

// Apply runs every upstream of the config against the source, then the
// override table. A failing upstream is logged and skipped so one dead
// repository does not stall the whole catalog.
func (m *Manager) Apply(ctx context.Context, cfg *Config) Stats {
	var stats Stats
	internal.Logger.Info().Str("source", m.Source.Name).Msg("Starting update run")

	for _, up := range cfg.Upstreams {
		if err := m.applyUpstream(ctx, up, &stats); err != nil {
			stats.Failed++
			internal.Logger.Error().Err(err).Msg("Skipping upstream")
		}
	}

	if len(cfg.Overrides) > 0 {
		m.AlterApps(cfg.Overrides)
	}

	internal.Logger.Info().
		Int("updated", stats.AppsUpdated).
		Int("added", stats.AppsAdded).
		Int("news", stats.NewsAdded+stats.NewsUpdated).
		Msg("Update run finished")
	return stats
}

func (m *Manager) applyUpstream(ctx context.Context, up Upstream, stats *Stats) error {
	switch {
	case up.Source != "":
		parser := &FileParser{Path: up.Source, IDs: up.IDs}
		if err := m.mergeFrom(ctx, parser, true, up.PreferDate, stats); err != nil {
			return err
		}

		news, err := parser.News(ctx)
		if err != nil {
			return err
		}
		m.MergeNews(news, stats)
	case up.GitHub != nil:
		if len(up.IDs) == 0 {
			return fmt.Errorf("github upstream %s/%s: an app id is required", up.GitHub.Owner, up.GitHub.Repo)
		}
		parser := &GitHubParser{
			Owner:       up.GitHub.Owner,
			Repo:        up.GitHub.Repo,
			AppID:       up.IDs[0],
			Prereleases: up.Prereleases,
			PreferDate:  up.PreferDate,
			APIBase:     m.APIBase,
			Client:      m.Client,
		}
		if up.AssetPattern != "" {
			pattern, err := regexp.Compile(up.AssetPattern)
			if err != nil {
				return err
			}
			parser.AssetPattern = pattern
		}
		// Release upstreams only feed existing entries; a new app needs
		// its display metadata authored first.
		return m.mergeFrom(ctx, parser, false, up.PreferDate, stats)
	}
	return nil
}

func (m *Manager) mergeFrom(ctx context.Context, parser Parser, addMissing, preferDate bool, stats *Stats) error {
	apps, err := parser.Apps(ctx)
	if err != nil {
		return err
	}
	m.MergeApps(apps, addMissing, preferDate, stats)
	return nil
}

// MergeApps folds parsed app entries into the source. Known identifiers get
// the parsed latest version added when it is strictly newer; unknown ones
// are appended when addMissing is set and warned about otherwise.
func (m *Manager) MergeApps(apps []*altsource.App, addMissing bool, preferDate bool, stats *Stats) {
	for _, parsed := range apps {
		existing, err := m.Source.App(parsed.ID())
		if err != nil {
			if !addMissing {
				internal.Logger.Warn().Str("app", parsed.ID()).Str("source", m.Source.Name).Msg("App not in source, create an entry for it first")
				continue
			}
			if err := m.Source.AddApp(parsed); err != nil {
				internal.Logger.Error().Err(err).Msg("Could not add app")
				continue
			}
			stats.AppsAdded++
			continue
		}

		newVer := parsed.LatestVersion(preferDate)
		curVer := existing.LatestVersion(preferDate)
		isNewer := newer(newVer, curVer)
		if preferDate && !isNewer && newVer != nil && curVer != nil {
			isNewer = newVer.ParsedDate().After(curVer.ParsedDate())
		}
		if !isNewer {
			continue
		}

		if parsed.BundleIdentifier != "" && parsed.BundleIdentifier != existing.BundleIdentifier {
			internal.Logger.Warn().
				Str("app", existing.Name).
				Str("from", existing.BundleIdentifier).
				Str("to", parsed.BundleIdentifier).
				Msg("Bundle identifier changed")
			existing.BundleIdentifier = parsed.BundleIdentifier
		}
		if parsed.AppPermissions != nil {
			existing.AppPermissions = parsed.AppPermissions
		}
		existing.UpsertVersion(newVer)
		stats.AppsUpdated++
	}
}

// MergeNews folds news articles into the source, overwriting entries that
// share an identifier.
func (m *Manager) MergeNews(news []*altsource.Article, stats *Stats) {
	for _, article := range news {
		replaced := false
		for i, existing := range m.Source.News {
			if existing.Identifier == article.Identifier {
				m.Source.News[i] = article
				stats.NewsUpdated++
				replaced = true
				break
			}
		}
		if !replaced {
			m.Source.News = append(m.Source.News, article)
			stats.NewsAdded++
		}
	}
}

// AlterApps applies the override table: per-app field patches keyed by
// identifier, using the wire field names. Unknown identifiers are skipped
// with a warning.
func (m *Manager) AlterApps(overrides map[string]map[string]any) {
	for id, fields := range overrides {
		if err := m.Source.UpdateApp(id, fields); err != nil {
			internal.Logger.Warn().Err(err).Str("app", id).Msg("Could not apply override")
		}
	}
}

// UpdateHashes fills in missing sha256 digests by downloading each version's
// asset. With onlyLatest set only the newest version of each app is checked;
// force recomputes digests that are already present.
func (m *Manager) UpdateHashes(ctx context.Context, onlyLatest, force bool) {
	for _, app := range m.Source.Apps {
		versions := app.Versions
		if onlyLatest {
			latest := app.LatestVersion(false)
			if latest == nil {
				continue
			}
			versions = []*altsource.Version{latest}
		}
		for _, ver := range versions {
			if ver.SHA256 != "" && !force {
				continue
			}
			if err := m.updateHash(ctx, app, ver); err != nil {
				internal.Logger.Warn().Err(err).Str("app", app.ID()).Str("version", ver.Version).Msg("Could not update digest")
			}
		}
	}
}

func (m *Manager) updateHash(ctx context.Context, app *altsource.App, ver *altsource.Version) error {
	path, err := ipa.Fetch(ctx, m.Client, ver.DownloadURL)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	digest, err := ipa.SHA256(path)
	if err != nil {
		return err
	}
	ver.SHA256 = digest
	internal.Logger.Debug().Str("app", app.ID()).Str("version", ver.Version).Msg("Updated sha256 digest")
	return nil
}
