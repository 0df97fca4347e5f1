package altsource

import (
	"fmt"
	"net/url"

	mapset "github.com/deckarep/golang-set/v2"
)

// Issue is a single invariant violation found by Validate.
type Issue struct {
	Path string
	Msg  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Msg)
}

func issuef(issues []Issue, path, format string, args ...any) []Issue {
	return append(issues, Issue{Path: path, Msg: fmt.Sprintf(format, args...)})
}

// IsURL reports whether raw is a well formed absolute URL.
func IsURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

// Validate checks every source invariant and returns all violations found
// rather than stopping at the first, so a maintainer can fix a whole file in
// one pass. An empty slice means the source is publishable.
func (s *Source) Validate() []Issue {
	var issues []Issue

	if s.Name == "" {
		issues = issuef(issues, "source", "missing name")
	}
	if s.Identifier == "" {
		issues = issuef(issues, "source", "missing identifier")
	}
	if s.IconURL != "" && !IsURL(s.IconURL) {
		issues = issuef(issues, "source", "iconURL is not an absolute URL: %s", s.IconURL)
	}
	if s.HeaderURL != "" && !IsURL(s.HeaderURL) {
		issues = issuef(issues, "source", "headerURL is not an absolute URL: %s", s.HeaderURL)
	}

	seenApps := mapset.NewThreadUnsafeSet[string]()
	for _, app := range s.Apps {
		path := fmt.Sprintf("apps[%s]", app.ID())
		if !seenApps.Add(app.ID()) {
			issues = issuef(issues, path, "duplicate app identifier")
		}
		issues = append(issues, app.validate(path)...)
	}

	for _, id := range s.FeaturedApps {
		if !seenApps.Contains(id) {
			issues = issuef(issues, "source", "featured app %s is not in the source", id)
		}
	}

	seenNews := mapset.NewThreadUnsafeSet[string]()
	for _, article := range s.News {
		path := fmt.Sprintf("news[%s]", article.Identifier)
		if !seenNews.Add(article.Identifier) {
			issues = issuef(issues, path, "duplicate news identifier")
		}
		issues = append(issues, article.validate(path)...)
	}

	return issues
}

func (a *App) validate(path string) []Issue {
	var issues []Issue

	if a.Name == "" {
		issues = issuef(issues, path, "missing name")
	}
	if a.BundleIdentifier == "" {
		issues = issuef(issues, path, "missing bundleIdentifier")
	}
	if a.DeveloperName == "" {
		issues = issuef(issues, path, "missing developerName")
	}
	if a.LocalizedDescription == "" {
		issues = issuef(issues, path, "missing localizedDescription")
	}
	if a.IconURL == "" {
		issues = issuef(issues, path, "missing iconURL")
	} else if !IsURL(a.IconURL) {
		issues = issuef(issues, path, "iconURL is not an absolute URL: %s", a.IconURL)
	}
	if len(a.Versions) == 0 {
		issues = issuef(issues, path, "no versions listed")
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, v := range a.Versions {
		vpath := fmt.Sprintf("%s.versions[%s]", path, v.Version)
		if !seen.Add(v.Version) {
			issues = issuef(issues, vpath, "duplicate version string")
		}
		issues = append(issues, v.validate(vpath)...)
	}

	return issues
}

func (v *Version) validate(path string) []Issue {
	var issues []Issue

	if v.Version == "" {
		issues = issuef(issues, path, "missing version string")
	}
	if v.Date == "" {
		issues = issuef(issues, path, "missing date")
	}
	if v.Size <= 0 {
		issues = issuef(issues, path, "size is not positive")
	}
	if v.DownloadURL == "" {
		issues = issuef(issues, path, "missing downloadURL")
	} else if !IsURL(v.DownloadURL) {
		issues = issuef(issues, path, "downloadURL is not an absolute URL: %s", v.DownloadURL)
	}

	return issues
}

func (a *Article) validate(path string) []Issue {
	var issues []Issue

	if a.Title == "" {
		issues = issuef(issues, path, "missing title")
	}
	if a.Identifier == "" {
		issues = issuef(issues, path, "missing identifier")
	}
	if a.Caption == "" {
		issues = issuef(issues, path, "missing caption")
	}
	if a.Date == "" {
		issues = issuef(issues, path, "missing date")
	}
	if a.URL != "" && !IsURL(a.URL) {
		issues = issuef(issues, path, "url is not an absolute URL: %s", a.URL)
	}

	return issues
}
