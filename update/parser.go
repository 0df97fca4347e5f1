package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/altsrc-dev/altsrc/altsource"
	"github.com/altsrc-dev/altsrc/internal"
	"github.com/altsrc-dev/altsrc/ipa"
)

// Parser produces app entries from some upstream for merging into a source.
type Parser interface {
	Apps(ctx context.Context) ([]*altsource.App, error)
}

// FileParser offers the apps and news of another AltSource document on local
// disk. Fetching remote catalogs over the network is deliberately not
// supported; mirror the file locally first.
type FileParser struct {
	Path string
	// IDs limits the apps offered; empty means all of them.
	IDs []string
}

func (p *FileParser) Apps(ctx context.Context) ([]*altsource.App, error) {
	src, err := altsource.Load(p.Path)
	if err != nil {
		return nil, err
	}

	wanted := mapset.NewThreadUnsafeSet(p.IDs...)
	var apps []*altsource.App
	found := mapset.NewThreadUnsafeSet[string]()
	for _, app := range src.Apps {
		if wanted.Cardinality() > 0 && !wanted.Contains(app.ID()) && !wanted.Contains(app.BundleIdentifier) {
			continue
		}
		if len(app.Versions) == 0 {
			internal.Logger.Warn().Str("app", app.ID()).Str("path", p.Path).Msg("Skipping app without versions")
			continue
		}
		apps = append(apps, app)
		found.Add(app.ID())
		found.Add(app.BundleIdentifier)
	}

	if missing := wanted.Difference(found); missing.Cardinality() > 0 {
		internal.Logger.Warn().Str("path", p.Path).Str("ids", fmt.Sprint(missing.ToSlice())).Msg("Requested ids not found in source")
	}
	return apps, nil
}

// News returns the news articles of the parsed source, all of them when IDs
// is empty.
func (p *FileParser) News(ctx context.Context) ([]*altsource.Article, error) {
	src, err := altsource.Load(p.Path)
	if err != nil {
		return nil, err
	}
	if len(p.IDs) == 0 {
		return src.News, nil
	}
	wanted := mapset.NewThreadUnsafeSet(p.IDs...)
	var news []*altsource.Article
	for _, article := range src.News {
		if wanted.Contains(article.Identifier) || wanted.Contains(article.AppID) {
			news = append(news, article)
		}
	}
	return news, nil
}

// GitHubParser turns the newest release of a GitHub repository into an app
// entry with a single version, mining the attached .ipa for its metadata.
type GitHubParser struct {
	Owner string
	Repo  string
	// AppID is the identifier the produced entry is merged under.
	AppID string
	// AssetPattern selects the release asset; defaults to any .ipa.
	AssetPattern *regexp.Regexp
	// Prereleases includes pre-releases when picking the newest release.
	Prereleases bool
	// PreferDate picks the release with the newest asset instead of the
	// highest version tag.
	PreferDate bool

	APIBase string
	Client  *http.Client
}

var defaultAssetPattern = regexp.MustCompile(`.*\.ipa`)

var errNoRelease = errors.New("no matching release found")

func (p *GitHubParser) Apps(ctx context.Context) ([]*altsource.App, error) {
	releases, err := fetchReleases(ctx, p.Client, p.APIBase, p.Owner, p.Repo)
	if err != nil {
		return nil, err
	}

	rel, ipaAsset, err := p.pickRelease(releases)
	if err != nil {
		return nil, err
	}

	path, err := ipa.Fetch(ctx, p.Client, ipaAsset.DownloadURL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	meta, err := ipa.Extract(path)
	if err != nil {
		return nil, err
	}
	if meta.BundleIdentifier == "" {
		internal.Logger.Error().Str("repo", p.Owner+"/"+p.Repo).Msg("No bundleIdentifier found in IPA")
	}

	version := meta.Version
	if version == "" {
		version = trimTag(rel.TagName)
	}
	size := meta.Size
	if size == 0 {
		size = ipaAsset.Size
	}

	ver := &altsource.Version{
		Version:              version,
		BuildVersion:         meta.BuildVersion,
		AbsoluteVersion:      trimTag(rel.TagName),
		Date:                 ipaAsset.UpdatedAt,
		LocalizedDescription: "# " + rel.Name + "\n\n" + rel.Body,
		DownloadURL:          ipaAsset.DownloadURL,
		Size:                 size,
		SHA256:               meta.SHA256,
	}

	app := &altsource.App{
		AppID:            p.AppID,
		BundleIdentifier: meta.BundleIdentifier,
		Versions:         []*altsource.Version{ver},
		AppPermissions:   meta.Permissions,
	}
	return []*altsource.App{app}, nil
}

func (p *GitHubParser) pickRelease(releases []release) (*release, *asset, error) {
	pattern := p.AssetPattern
	if pattern == nil {
		pattern = defaultAssetPattern
	}

	type match struct {
		rel   release
		asset asset
	}
	var matches []match
	for _, rel := range releases {
		if rel.Prerelease && !p.Prereleases {
			continue
		}
		assets := make([]asset, 0, len(rel.Assets))
		for _, a := range rel.Assets {
			if pattern.MatchString(a.Name) {
				assets = append(assets, a)
			}
		}
		if len(assets) == 0 {
			continue
		}
		// Most recently updated asset wins within a release.
		sort.Slice(assets, func(i, j int) bool {
			return assetTime(assets[i]).Before(assetTime(assets[j]))
		})
		matches = append(matches, match{rel: rel, asset: assets[len(assets)-1]})
	}
	if len(matches) == 0 {
		return nil, nil, errNoRelease
	}

	if p.PreferDate {
		sort.Slice(matches, func(i, j int) bool {
			return assetTime(matches[i].asset).Before(assetTime(matches[j].asset))
		})
	} else {
		sort.SliceStable(matches, func(i, j int) bool {
			return CompareVersions(trimTag(matches[i].rel.TagName), trimTag(matches[j].rel.TagName)) < 0
		})
	}
	best := matches[len(matches)-1]
	return &best.rel, &best.asset, nil
}

func trimTag(tag string) string {
	if len(tag) > 0 && (tag[0] == 'v' || tag[0] == 'V') {
		return tag[1:]
	}
	return tag
}

func assetTime(a asset) time.Time {
	t, err := time.Parse(altsource.DateFormat, a.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
