package altsource

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/altsrc-dev/altsrc/internal"
)

// DateFormat is the timestamp layout AltStore clients expect, which matches
// the GitHub API one. Ex. 2022-05-25T03:39:23Z
const DateFormat = "2006-01-02T15:04:05Z"

// Version is one downloadable build of an App.
type Version struct {
	Version              string
	BuildVersion         string
	AbsoluteVersion      string
	Date                 string
	LocalizedDescription string
	DownloadURL          string
	Size                 int64
	SHA256               string
	MinOSVersion         string
	MaxOSVersion         string

	Extra map[string]json.RawMessage
}

var versionRequiredKeys = []string{"version", "date", "downloadURL", "size"}

func (v *Version) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	for _, key := range versionRequiredKeys {
		if _, ok := raw[key]; !ok {
			internal.Logger.Warn().Str("key", key).Msg("Version is missing a required key")
		}
	}
	steps := []error{
		raw.pop("version", &v.Version),
		raw.pop("buildVersion", &v.BuildVersion),
		raw.pop("absoluteVersion", &v.AbsoluteVersion),
		raw.pop("date", &v.Date),
		raw.pop("localizedDescription", &v.LocalizedDescription),
		raw.pop("downloadURL", &v.DownloadURL),
		raw.pop("size", &v.Size),
		raw.pop("sha256", &v.SHA256),
		raw.pop("minOSVersion", &v.MinOSVersion),
		raw.pop("maxOSVersion", &v.MaxOSVersion),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	if rest := raw.rest(); rest != nil {
		if v.Extra == nil {
			v.Extra = rest
		} else {
			mergeExtra(rawObject(v.Extra), rest)
		}
	}
	return nil
}

func (v *Version) MarshalJSON() ([]byte, error) {
	out := make(rawObject, len(v.Extra)+10)
	mergeExtra(out, v.Extra)
	out.put("version", v.Version)
	out.put("buildVersion", v.BuildVersion)
	out.put("absoluteVersion", v.AbsoluteVersion)
	out.put("date", v.Date)
	out.put("localizedDescription", v.LocalizedDescription)
	out.put("downloadURL", v.DownloadURL)
	out["size"] = mustMarshal(v.Size)
	out.put("sha256", v.SHA256)
	out.put("minOSVersion", v.MinOSVersion)
	out.put("maxOSVersion", v.MaxOSVersion)
	return json.Marshal(out)
}

// ParsedDate returns the release date as a time.Time, zero when absent or
// not in the expected layout.
func (v *Version) ParsedDate() time.Time {
	if t, err := time.Parse(DateFormat, v.Date); err == nil {
		return t
	}
	// Some sources in the wild carry a zone offset instead of a literal Z.
	t, err := time.Parse(time.RFC3339, v.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Entitlement is a single entitlement an app requests.
type Entitlement struct {
	Name string

	Extra map[string]json.RawMessage
}

func (e *Entitlement) UnmarshalJSON(data []byte) error {
	// Some sources in the wild list entitlements as bare strings.
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		e.Name = name
		return nil
	}
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := raw.pop("name", &e.Name); err != nil {
		return err
	}
	e.Extra = raw.rest()
	return nil
}

func (e *Entitlement) MarshalJSON() ([]byte, error) {
	out := make(rawObject, len(e.Extra)+1)
	mergeExtra(out, e.Extra)
	out.put("name", e.Name)
	return json.Marshal(out)
}

// Privacy is a privacy permission with its user-facing usage description.
type Privacy struct {
	Name             string
	UsageDescription string

	Extra map[string]json.RawMessage
}

func (p *Privacy) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := raw.pop("name", &p.Name); err != nil {
		return err
	}
	if err := raw.pop("usageDescription", &p.UsageDescription); err != nil {
		return err
	}
	p.Extra = raw.rest()
	return nil
}

func (p *Privacy) MarshalJSON() ([]byte, error) {
	out := make(rawObject, len(p.Extra)+2)
	mergeExtra(out, p.Extra)
	out.put("name", p.Name)
	out.put("usageDescription", p.UsageDescription)
	return json.Marshal(out)
}

// Permissions groups the entitlements and privacy declarations of an app.
type Permissions struct {
	Entitlements []*Entitlement
	Privacy      []*Privacy

	Extra map[string]json.RawMessage
}

func (p *Permissions) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := raw.pop("entitlements", &p.Entitlements); err != nil {
		return err
	}
	if err := raw.pop("privacy", &p.Privacy); err != nil {
		return err
	}
	p.Extra = raw.rest()
	return nil
}

func (p *Permissions) MarshalJSON() ([]byte, error) {
	out := make(rawObject, len(p.Extra)+2)
	mergeExtra(out, p.Extra)
	if p.Entitlements != nil {
		out["entitlements"] = mustMarshal(p.Entitlements)
	}
	if p.Privacy != nil {
		out["privacy"] = mustMarshal(p.Privacy)
	}
	return json.Marshal(out)
}

// App is one installable application entry within a source.
type App struct {
	Name                 string
	BundleIdentifier     string
	AppID                string
	DeveloperName        string
	Subtitle             string
	LocalizedDescription string
	IconURL              string
	TintColor            string
	ScreenshotURLs       []string
	Versions             []*Version
	AppPermissions       *Permissions
	Beta                 *bool

	// v1 AltSource API mirror of the newest version, kept in sync so older
	// clients keep updating.
	LegacyVersion     string
	LegacyDate        string
	LegacyDescription string
	LegacyDownloadURL string
	LegacySize        int64

	Extra map[string]json.RawMessage
}

var appRequiredKeys = []string{"name", "bundleIdentifier", "developerName", "versions", "localizedDescription", "iconURL"}

func (a *App) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	steps := []error{
		raw.pop("name", &a.Name),
		raw.pop("bundleIdentifier", &a.BundleIdentifier),
		raw.pop("appID", &a.AppID),
		raw.pop("developerName", &a.DeveloperName),
		raw.pop("subtitle", &a.Subtitle),
		raw.pop("localizedDescription", &a.LocalizedDescription),
		raw.pop("iconURL", &a.IconURL),
		raw.pop("tintColor", &a.TintColor),
		raw.pop("screenshotURLs", &a.ScreenshotURLs),
		raw.pop("versions", &a.Versions),
		raw.pop("appPermissions", &a.AppPermissions),
		raw.pop("beta", &a.Beta),
		raw.pop("version", &a.LegacyVersion),
		raw.pop("versionDate", &a.LegacyDate),
		raw.pop("versionDescription", &a.LegacyDescription),
		raw.pop("downloadURL", &a.LegacyDownloadURL),
		raw.pop("size", &a.LegacySize),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}

	// A v1-only app carries its single build in the top level fields. Lift
	// them into a Version so the rest of the package sees one shape.
	if len(a.Versions) == 0 && a.LegacyVersion != "" {
		a.Versions = []*Version{{
			Version:              a.LegacyVersion,
			Date:                 a.LegacyDate,
			LocalizedDescription: a.LegacyDescription,
			DownloadURL:          a.LegacyDownloadURL,
			Size:                 a.LegacySize,
		}}
	}

	for _, key := range appRequiredKeys {
		if a.hasRequired(key) {
			continue
		}
		internal.Logger.Warn().Str("app", a.BundleIdentifier).Str("key", key).Msg("App is missing a required key")
	}

	if rest := raw.rest(); rest != nil {
		if a.Extra == nil {
			a.Extra = rest
		} else {
			mergeExtra(rawObject(a.Extra), rest)
		}
	}
	return nil
}

func (a *App) hasRequired(key string) bool {
	switch key {
	case "name":
		return a.Name != ""
	case "bundleIdentifier":
		return a.BundleIdentifier != ""
	case "developerName":
		return a.DeveloperName != ""
	case "versions":
		return len(a.Versions) > 0
	case "localizedDescription":
		return a.LocalizedDescription != ""
	case "iconURL":
		return a.IconURL != ""
	}
	return true
}

func (a *App) MarshalJSON() ([]byte, error) {
	out := make(rawObject, len(a.Extra)+17)
	mergeExtra(out, a.Extra)
	out.put("name", a.Name)
	out.put("bundleIdentifier", a.BundleIdentifier)
	out.put("appID", a.AppID)
	out.put("developerName", a.DeveloperName)
	out.put("subtitle", a.Subtitle)
	out.put("localizedDescription", a.LocalizedDescription)
	out.put("iconURL", a.IconURL)
	out.put("tintColor", a.TintColor)
	out.put("screenshotURLs", a.ScreenshotURLs)
	if a.Versions != nil {
		out["versions"] = mustMarshal(a.Versions)
	}
	out.put("appPermissions", a.AppPermissions)
	out.put("beta", a.Beta)
	out.put("version", a.LegacyVersion)
	out.put("versionDate", a.LegacyDate)
	out.put("versionDescription", a.LegacyDescription)
	out.put("downloadURL", a.LegacyDownloadURL)
	if a.LegacyVersion != "" {
		out["size"] = mustMarshal(a.LegacySize)
	}
	return json.Marshal(out)
}

// ID is the identifier apps are looked up by: the explicit appID when set,
// the bundle identifier otherwise.
func (a *App) ID() string {
	if a.AppID != "" {
		return a.AppID
	}
	return a.BundleIdentifier
}

// Version returns the listed version with the given version string.
func (a *App) Version(version string) (*Version, error) {
	for _, v := range a.Versions {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, fmt.Errorf("version %s of %s: %w", version, a.ID(), ErrNotFound)
}

// AddVersion prepends a new version to the app. The version string must not
// already be listed; use UpsertVersion for replace-on-collision semantics.
func (a *App) AddVersion(v *Version) error {
	if _, err := a.Version(v.Version); err == nil {
		return fmt.Errorf("version %s of %s: %w", v.Version, a.ID(), ErrDuplicateVersion)
	}
	a.Versions = append([]*Version{v}, a.Versions...)
	a.syncLegacy()
	return nil
}

// UpsertVersion adds the version as the newest entry, replacing in place any
// listed version with the same version string.
func (a *App) UpsertVersion(v *Version) {
	for i, existing := range a.Versions {
		if existing.Version == v.Version {
			internal.Logger.Warn().Str("app", a.ID()).Str("version", v.Version).Msg("Version already exists, replacing")
			a.Versions[i] = v
			a.syncLegacy()
			return
		}
	}
	a.Versions = append([]*Version{v}, a.Versions...)
	a.syncLegacy()
}

// RemoveVersion deletes the listed version with the given version string.
func (a *App) RemoveVersion(version string) error {
	for i, v := range a.Versions {
		if v.Version == version {
			a.Versions = append(a.Versions[:i], a.Versions[i+1:]...)
			a.syncLegacy()
			return nil
		}
	}
	return fmt.Errorf("version %s of %s: %w", version, a.ID(), ErrNotFound)
}

// LatestVersion returns the newest version: the head of the list, or the most
// recently dated entry when preferDate is set.
func (a *App) LatestVersion(preferDate bool) *Version {
	if len(a.Versions) == 0 {
		return nil
	}
	if !preferDate {
		return a.Versions[0]
	}
	latest := a.Versions[0]
	for _, v := range a.Versions[1:] {
		if v.ParsedDate().After(latest.ParsedDate()) {
			latest = v
		}
	}
	return latest
}

// syncLegacy mirrors the newest version into the v1 AltSource API fields.
func (a *App) syncLegacy() {
	if len(a.Versions) == 0 {
		a.LegacyVersion = ""
		a.LegacyDate = ""
		a.LegacyDescription = ""
		a.LegacyDownloadURL = ""
		a.LegacySize = 0
		return
	}
	head := a.Versions[0]
	a.LegacyVersion = head.Version
	a.LegacyDate = head.Date
	a.LegacyDescription = head.LocalizedDescription
	a.LegacyDownloadURL = head.DownloadURL
	a.LegacySize = head.Size
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
